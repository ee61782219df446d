package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"picturetalk/feedback"
	"picturetalk/practice"
)

// TUI message types
type levelMsg struct {
	level  float64
	active bool
}
type controlsMsg struct{ c practice.Controls }
type statusMsg struct{ text string }
type headingMsg struct{ text string }
type imageMsg struct{ locator string }
type transcriptMsg struct{ text string }
type noVoiceMsg struct{ warn bool }
type resultMsg struct {
	kind       resultKind
	transcript string
	sections   []feedback.Section
	message    string
	hint       string
}
type tickMsg time.Time

type resultKind int

const (
	resultPlaceholder resultKind = iota
	resultPending
	resultAssessment
	resultFailed
)

const (
	leftWidth = 44
	barWidth  = 30
)

// commander is the part of the controller the TUI drives.
type commander interface {
	Do(cmd practice.Command)
}

type tuiModel struct {
	ctrl          commander
	frame         int
	width, height int
	scroll        int

	controls   practice.Controls
	level      float64
	active     bool
	status     string
	heading    string
	image      string
	transcript string
	noVoice    bool
	result     resultMsg
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	levelOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	levelOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	quoteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
)

func newTUIModel(ctrl commander) tuiModel {
	return tuiModel{ctrl: ctrl, result: resultMsg{kind: resultPlaceholder}}
}

// tuiSurface forwards controller output to the Bubble Tea program.
type tuiSurface struct{ p *tea.Program }

func (s tuiSurface) SetLevel(level float64, active bool) { s.p.Send(levelMsg{level, active}) }
func (s tuiSurface) Controls(c practice.Controls)        { s.p.Send(controlsMsg{c}) }
func (s tuiSurface) Status(text string)                  { s.p.Send(statusMsg{text}) }
func (s tuiSurface) Heading(text string)                 { s.p.Send(headingMsg{text}) }
func (s tuiSurface) Image(locator string)                { s.p.Send(imageMsg{locator}) }
func (s tuiSurface) Transcript(text string)              { s.p.Send(transcriptMsg{text}) }
func (s tuiSurface) NoVoice(warn bool)                   { s.p.Send(noVoiceMsg{warn}) }

func (s tuiSurface) AssessmentPlaceholder() {
	s.p.Send(resultMsg{kind: resultPlaceholder})
}

func (s tuiSurface) AssessmentPending() {
	s.p.Send(resultMsg{kind: resultPending})
}

func (s tuiSurface) Assessment(transcript string, sections []feedback.Section) {
	s.p.Send(resultMsg{kind: resultAssessment, transcript: transcript, sections: sections})
}

func (s tuiSurface) AssessmentFailed(message, hint string) {
	s.p.Send(resultMsg{kind: resultFailed, message: message, hint: hint})
}

// runTUI blocks until the user quits or ctx is cancelled.
func runTUI(ctx context.Context, opts practice.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ctrl *practice.Controller
	prog := tea.NewProgram(newTUIModel(commandFunc(func(cmd practice.Command) {
		ctrl.Do(cmd)
	})), tea.WithAltScreen(), tea.WithContext(ctx))
	ctrl = practice.New(tuiSurface{prog}, opts)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	_, err := prog.Run()
	cancel()
	<-done
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

type commandFunc func(cmd practice.Command)

func (f commandFunc) Do(cmd practice.Command) { f(cmd) }

func tuiTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

var keyCommands = map[string]practice.Command{
	"r": practice.Record,
	"s": practice.Stop,
	"n": practice.NextImage,
	"y": practice.CopyAssessment,
	"o": practice.OpenImage,
}

// do hands cmd to the controller off the Update goroutine; the controller
// may be blocked sending to this program.
func (m tuiModel) do(cmd practice.Command) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Do(cmd)
		return nil
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.scroll = max(m.scroll-1, 0)
		case "down", "j":
			m.scroll++
		case " ":
			if m.controls.StopVisible {
				return m, m.do(practice.Stop)
			}
			return m, m.do(practice.Record)
		default:
			if cmd, ok := keyCommands[key]; ok {
				return m, m.do(cmd)
			}
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case levelMsg:
		m.level = msg.level
		m.active = msg.active

	case controlsMsg:
		m.controls = msg.c

	case statusMsg:
		m.status = msg.text

	case headingMsg:
		m.heading = msg.text

	case imageMsg:
		m.image = msg.locator

	case transcriptMsg:
		m.transcript = msg.text

	case noVoiceMsg:
		m.noVoice = msg.warn

	case resultMsg:
		m.result = msg
		m.scroll = 0
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string
	left = append(left, titleStyle.Render("picturetalk"), dimStyle.Render(version), "")
	left = append(left, dimStyle.Render("image"))
	left = append(left, wrapText(imageName(m.image), leftWidth-2)...)
	left = append(left, "", renderLevel(m.level, m.active))
	if m.noVoice {
		left = append(left, warnStyle.Render("⚠ no voice detected"))
	}
	left = append(left, "")
	for _, l := range wrapText(m.status, leftWidth-2) {
		left = append(left, dimStyle.Render(l))
	}
	left = append(left, "", m.renderKeys())

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth - 1).
		Height(m.height).
		Render(strings.Join(left, "\n"))

	rightWidth := max(m.width-leftWidth-1, 20)
	lines := m.rightLines(max(rightWidth-2, 10))
	offset := min(m.scroll, max(len(lines)-m.height, 0))
	end := min(offset+m.height, len(lines))

	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines[offset:end], "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) renderKeys() string {
	c := m.controls
	keys := []struct {
		key, label string
		enabled    bool
	}{
		{"r", "record", c.RecordVisible && c.RecordEnabled},
		{"s", "stop", c.StopVisible && c.StopEnabled},
		{"n", "next image", c.PickerEnabled},
		{"o", "open image", true},
		{"y", "copy assessment", m.result.kind == resultAssessment},
		{"q", "quit", true},
	}
	var b strings.Builder
	for _, k := range keys {
		if k.enabled {
			b.WriteString(keyStyle.Render(k.key) + dimStyle.Render(" "+k.label))
		} else {
			b.WriteString(disabledStyle.Render(k.key + " " + k.label))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) rightLines(width int) []string {
	var lines []string
	add := func(style lipgloss.Style, text string) {
		for _, l := range wrapText(text, width) {
			lines = append(lines, style.Render(l))
		}
	}

	add(titleStyle, m.heading)
	lines = append(lines, "")
	if m.transcript != "" {
		add(quoteStyle, m.transcript)
		lines = append(lines, "")
	}

	switch r := m.result; r.kind {
	case resultPlaceholder:
		add(dimStyle, practice.Placeholder)
	case resultPending:
		add(dimStyle, practice.Pending+strings.Repeat(".", m.frame%4))
	case resultFailed:
		add(errorStyle, r.message)
		if r.hint != "" {
			add(dimStyle, r.hint)
		}
	case resultAssessment:
		for _, s := range r.sections {
			if s.Heading != "" {
				add(sectionStyle, s.Heading)
			}
			for _, l := range s.Lines() {
				if l = strings.TrimSpace(l); l != "" {
					add(lipgloss.NewStyle(), l)
				}
			}
			lines = append(lines, "")
		}
	}
	return lines
}

func renderLevel(level float64, active bool) string {
	filled := int(level / 100 * barWidth)
	filled = min(max(filled, 0), barWidth)
	style := levelOffStyle
	if active {
		style = levelOnStyle
	}
	bar := style.Render(strings.Repeat("█", filled)) + levelOffStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("mic %s %3.0f", bar, level)
}

func imageName(locator string) string {
	if locator == "" {
		return "(none)"
	}
	return path.Base(strings.ReplaceAll(locator, "\\", "/"))
}

// wrapText breaks text into lines of at most width terminal cells,
// preferring spaces and never splitting a rune.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for lipgloss.Width(text) > width {
		cut, lastSpace, w := 0, 0, 0
		for i, r := range text {
			rw := lipgloss.Width(string(r))
			if w+rw > width {
				cut = i
				break
			}
			if r == ' ' && i > 0 {
				lastSpace = i
			}
			w += rw
		}
		splitAt := cut
		switch {
		case cut == 0:
			// A single rune wider than the line.
			_, splitAt = utf8.DecodeRuneInString(text)
		case text[cut] == ' ':
		case lastSpace > 0:
			splitAt = lastSpace
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
