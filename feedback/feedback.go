// Package feedback splits a model's free-text assessment into the numbered
// sections it was asked to produce and renders them for display.
package feedback

import (
	"html"
	"regexp"
	"strings"
)

// LineBreak separates body lines inside a section.
const LineBreak = "<br>"

var (
	sectionStart = regexp.MustCompile(`\n\d+\. `)
	marker       = regexp.MustCompile(`^\d+\. `)
)

type Section struct {
	Heading string
	Body    string
	// Labeled is set when the heading carried a numbered marker.
	Labeled bool
}

// Lines returns the body split back into display lines.
func (s Section) Lines() []string {
	if s.Body == "" {
		return nil
	}
	return strings.Split(s.Body, LineBreak)
}

// Format splits raw at every newline that is followed by "N. ". The first
// line of each piece is its heading, minus the marker; the rest is the
// body. Text without numbered lines comes back as a single section.
func Format(raw string) []Section {
	var pieces []string
	start := 0
	for _, loc := range sectionStart.FindAllStringIndex(raw, -1) {
		pieces = append(pieces, raw[start:loc[0]])
		start = loc[0] + 1
	}
	pieces = append(pieces, raw[start:])

	sections := make([]Section, 0, len(pieces))
	for _, p := range pieces {
		first, rest, _ := strings.Cut(p, "\n")
		sections = append(sections, Section{
			Heading: strings.TrimSpace(marker.ReplaceAllString(first, "")),
			Body:    strings.TrimSpace(strings.ReplaceAll(rest, "\n", LineBreak)),
			Labeled: marker.MatchString(first),
		})
	}
	return sections
}

func escapeBody(body string) string {
	lines := strings.Split(body, LineBreak)
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return strings.Join(lines, LineBreak)
}

// HTML renders the user's transcript followed by one heading and paragraph
// per section.
func HTML(transcript string, sections []Section) string {
	var b strings.Builder
	b.WriteString("<h3>Your Response</h3><p>")
	b.WriteString(html.EscapeString(transcript))
	b.WriteString("</p>")
	for _, s := range sections {
		b.WriteString("<h3>")
		b.WriteString(html.EscapeString(s.Heading))
		b.WriteString("</h3><p>")
		b.WriteString(escapeBody(s.Body))
		b.WriteString("</p>")
	}
	return b.String()
}

// Markdown renders the same layout for rich-text widgets.
func Markdown(transcript string, sections []Section) string {
	var b strings.Builder
	b.WriteString("### Your Response\n\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")
	for _, s := range sections {
		if s.Heading != "" {
			b.WriteString("### ")
			b.WriteString(s.Heading)
			b.WriteString("\n\n")
		}
		for _, l := range s.Lines() {
			if l = strings.TrimSpace(l); l != "" {
				b.WriteString(l)
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// PlainText is used for the clipboard.
func PlainText(transcript string, sections []Section) string {
	var b strings.Builder
	b.WriteString("Your Response\n")
	b.WriteString(transcript)
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		for _, l := range s.Lines() {
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	return b.String()
}
