package feedback

import (
	"reflect"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Section
	}{
		{
			name: "two numbered sections",
			raw:  "1. Heading One\nline a\nline b\n2. Heading Two\nline c",
			want: []Section{
				{Heading: "Heading One", Body: "line a<br>line b", Labeled: true},
				{Heading: "Heading Two", Body: "line c", Labeled: true},
			},
		},
		{
			name: "unnumbered text is one section",
			raw:  "The description is fine.\nWell done.",
			want: []Section{
				{Heading: "The description is fine.", Body: "Well done."},
			},
		},
		{
			name: "heading only sections kept",
			raw:  "1. Description\n2. Comparison\n  \n3. Assessment\nGood.",
			want: []Section{
				{Heading: "Description", Labeled: true},
				{Heading: "Comparison", Body: "", Labeled: true},
				{Heading: "Assessment", Body: "Good.", Labeled: true},
			},
		},
		{
			name: "preamble before first marker",
			raw:  "Here is my assessment:\n1. Description\nA bike.",
			want: []Section{
				{Heading: "Here is my assessment:"},
				{Heading: "Description", Body: "A bike.", Labeled: true},
			},
		},
		{
			name: "multi digit markers and trimming",
			raw:  "9. Nine  \n body \n10. Ten\nx",
			want: []Section{
				{Heading: "Nine", Body: "body", Labeled: true},
				{Heading: "Ten", Body: "x", Labeled: true},
			},
		},
		{
			name: "marker needs a space and line start",
			raw:  "1. Score\nBand 6.5 overall\nsee 2.5x\n3.No space",
			want: []Section{
				{Heading: "Score", Body: "Band 6.5 overall<br>see 2.5x<br>3.No space", Labeled: true},
			},
		},
		{
			name: "blank line before next marker leaves a trailing break",
			raw:  "1. A\ntext\n\n2. B",
			want: []Section{
				{Heading: "A", Body: "text<br>", Labeled: true},
				{Heading: "B", Labeled: true},
			},
		},
		{
			name: "empty input",
			raw:  "",
			want: []Section{{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Format(%q)\n got  %+v\n want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSectionLines(t *testing.T) {
	s := Section{Body: "a<br>b<br>c"}
	if got := s.Lines(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Lines() = %q", got)
	}
	if got := (Section{}).Lines(); got != nil {
		t.Errorf("empty body Lines() = %q", got)
	}
}

func TestHTML(t *testing.T) {
	got := HTML("A <big> dog", Format("1. Heading One\nline a\nline b\n2. Heading Two\nline c"))
	want := "<h3>Your Response</h3><p>A &lt;big&gt; dog</p>" +
		"<h3>Heading One</h3><p>line a<br>line b</p>" +
		"<h3>Heading Two</h3><p>line c</p>"
	if got != want {
		t.Errorf("HTML()\n got  %s\n want %s", got, want)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown("A dog.", Format("1. Description\nA brown dog.\n2. Assessment\nGood.\nFluent."))
	for _, want := range []string{"### Your Response\n\nA dog.", "### Description\n\nA brown dog.", "### Assessment\n\nGood.\n\nFluent.\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown missing %q:\n%s", want, got)
		}
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("A dog.", Format("1. Description\nBrown dog."))
	want := "Your Response\nA dog.\n\nDescription\nBrown dog.\n"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}
