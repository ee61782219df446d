//go:build gui

// Package gui is the desktop front end: one window with the image, the
// record and stop buttons, a microphone level bar and the assessment.
package gui

import (
	"strings"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"picturetalk/feedback"
	"picturetalk/practice"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	do      func(practice.Command)
	running atomic.Bool

	heading    *widget.Label
	status     *widget.Label
	transcript *widget.Label
	warning    *widget.Label
	level      *widget.ProgressBar
	imageBox   *fyne.Container
	result     *widget.RichText

	record *widget.Button
	stop   *widget.Button
	next   *widget.Button
}

// NewApp returns a window whose buttons hand their command to do.
func NewApp(do func(practice.Command)) *App {
	return &App{do: do}
}

// Run builds the window, calls onReady and blocks until the window closes.
// It must be called from the main goroutine.
func Run(a *App, onReady func()) error {
	a.fyneApp = app.NewWithID("io.picturetalk.gui")
	a.fyneApp.Settings().SetTheme(&darkTheme{})
	a.window = a.fyneApp.NewWindow("picturetalk")

	a.heading = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	a.status = widget.NewLabel("")
	a.status.Wrapping = fyne.TextWrapWord
	a.transcript = widget.NewLabel("")
	a.transcript.Wrapping = fyne.TextWrapWord
	a.warning = widget.NewLabel("no voice detected")
	a.warning.Importance = widget.WarningImportance
	a.warning.Hide()
	a.level = widget.NewProgressBar()
	a.level.TextFormatter = func() string { return "" }
	a.imageBox = container.NewStack()
	a.result = widget.NewRichTextFromMarkdown(practice.Placeholder)
	a.result.Wrapping = fyne.TextWrapWord

	a.record = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), func() { a.do(practice.Record) })
	a.record.Importance = widget.HighImportance
	a.stop = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() { a.do(practice.Stop) })
	a.stop.Hide()
	a.next = widget.NewButtonWithIcon("Next image", theme.NavigateNextIcon(), func() { a.do(practice.NextImage) })
	open := widget.NewButtonWithIcon("Open", theme.ZoomInIcon(), func() { a.do(practice.OpenImage) })
	copyBtn := widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() { a.do(practice.CopyAssessment) })

	left := container.NewBorder(
		nil,
		container.NewVBox(
			a.level,
			a.warning,
			container.NewHBox(a.record, a.stop, a.next, open),
			a.status,
		),
		nil, nil,
		a.imageBox,
	)
	right := container.NewBorder(
		container.NewVBox(a.heading, a.transcript, widget.NewSeparator()),
		container.NewHBox(copyBtn),
		nil, nil,
		container.NewVScroll(a.result),
	)
	split := container.NewHSplit(left, right)
	split.Offset = 0.45

	a.window.SetContent(split)
	a.window.Resize(fyne.NewSize(1100, 700))
	a.window.Show()

	a.running.Store(true)
	go onReady()

	a.fyneApp.Run()
	a.running.Store(false)
	return nil
}

// Quit closes the window from any goroutine. It does nothing once the
// event loop has ended.
func (a *App) Quit() {
	if a.running.Load() {
		fyne.Do(a.fyneApp.Quit)
	}
}

func (a *App) SetLevel(level float64, active bool) {
	fyne.Do(func() {
		a.level.SetValue(level / 100)
	})
}

func (a *App) Controls(c practice.Controls) {
	fyne.Do(func() {
		setButton(a.record, c.RecordVisible, c.RecordEnabled)
		setButton(a.stop, c.StopVisible, c.StopEnabled)
		setButton(a.next, true, c.PickerEnabled)
	})
}

func setButton(b *widget.Button, visible, enabled bool) {
	if visible {
		b.Show()
	} else {
		b.Hide()
	}
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (a *App) Status(text string) {
	fyne.Do(func() { a.status.SetText(text) })
}

func (a *App) Heading(text string) {
	fyne.Do(func() { a.heading.SetText(text) })
}

func (a *App) Transcript(text string) {
	fyne.Do(func() { a.transcript.SetText(text) })
}

func (a *App) NoVoice(warn bool) {
	fyne.Do(func() {
		if warn {
			a.warning.Show()
		} else {
			a.warning.Hide()
		}
	})
}

// Image shows a local file or an http(s) URL.
func (a *App) Image(locator string) {
	var img *canvas.Image
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		uri, err := storage.ParseURI(locator)
		if err != nil {
			return
		}
		img = canvas.NewImageFromURI(uri)
	} else {
		img = canvas.NewImageFromFile(locator)
	}
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(400, 300))

	fyne.Do(func() {
		a.imageBox.Objects = []fyne.CanvasObject{img}
		a.imageBox.Refresh()
	})
}

func (a *App) AssessmentPlaceholder() {
	a.markdown(practice.Placeholder)
}

func (a *App) AssessmentPending() {
	a.markdown("*" + practice.Pending + "*")
}

func (a *App) Assessment(transcript string, sections []feedback.Section) {
	a.markdown(feedback.Markdown(transcript, sections))
}

func (a *App) AssessmentFailed(message, hint string) {
	a.markdown("**" + message + "**\n\n" + hint)
}

func (a *App) markdown(md string) {
	fyne.Do(func() { a.result.ParseMarkdown(md) })
}
