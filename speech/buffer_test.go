package speech

import (
	"strings"
	"testing"
)

func final(text string) Result   { return Result{Text: text, Final: true} }
func interim(text string) Result { return Result{Text: text} }

func TestBufferDisplay(t *testing.T) {
	tests := []struct {
		name   string
		events [][]Result
		want   string
		final  string
	}{
		{
			name:   "empty",
			events: nil,
			want:   "",
		},
		{
			name:   "interim only",
			events: [][]Result{{interim("a dog")}},
			want:   "a dog",
		},
		{
			name:   "interim replaced",
			events: [][]Result{{interim("a do")}, {interim("a dog runs")}},
			want:   "a dog runs",
		},
		{
			name:   "final then interim",
			events: [][]Result{{final("A dog")}, {interim("on the")}},
			want:   "A dog on the",
			final:  "A dog ",
		},
		{
			name:   "final clears interim",
			events: [][]Result{{interim("a dog")}, {final("A dog.")}},
			want:   "A dog. ",
			final:  "A dog. ",
		},
		{
			name:   "mixed event",
			events: [][]Result{{final("One."), final("Two."), interim("thr"), interim("ee")}},
			want:   "One. Two. three",
			final:  "One. Two. ",
		},
		{
			name:   "empty event clears interim",
			events: [][]Result{{final("Hi.")}, {interim("there")}, {}},
			want:   "Hi. ",
			final:  "Hi. ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Buffer
			for _, ev := range tt.events {
				b.Apply(ev)
			}
			if got := b.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
			if got := b.Final(); got != tt.final {
				t.Errorf("Final() = %q, want %q", got, tt.final)
			}
		})
	}
}

// The display is always every final segment, space-suffixed, in order,
// followed by the latest interim text.
func TestBufferConcatenationProperty(t *testing.T) {
	segments := []string{"the", "cat", "sat", "on", "a", "warm", "mat"}
	var b Buffer
	var want strings.Builder
	for i, seg := range segments {
		b.Apply([]Result{final(seg), interim("pending" + seg)})
		want.WriteString(seg + " ")
		if got, w := b.Display(), want.String()+"pending"+seg; got != w {
			t.Fatalf("after %d events Display() = %q, want %q", i+1, got, w)
		}
	}
}

func TestBufferReset(t *testing.T) {
	var b Buffer
	b.Apply([]Result{final("x"), interim("y")})
	b.Reset()
	if b.Display() != "" || b.Final() != "" {
		t.Errorf("Reset left %q / %q", b.Display(), b.Final())
	}
}
