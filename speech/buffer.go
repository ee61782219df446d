package speech

import "strings"

// Buffer holds finalized segments plus the current interim segment.
type Buffer struct {
	finals  strings.Builder
	interim string
}

// Apply folds one result event in. Final texts are appended with a
// trailing space; the interim segment becomes the concatenation of the
// event's pending texts.
func (b *Buffer) Apply(results []Result) {
	var interim strings.Builder
	for _, r := range results {
		if r.Final {
			b.finals.WriteString(r.Text)
			b.finals.WriteByte(' ')
		} else {
			interim.WriteString(r.Text)
		}
	}
	b.interim = interim.String()
}

func (b *Buffer) Display() string {
	return b.finals.String() + b.interim
}

func (b *Buffer) Final() string {
	return b.finals.String()
}

func (b *Buffer) Reset() {
	b.finals.Reset()
	b.interim = ""
}
