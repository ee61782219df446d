package practice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"picturetalk/assess"
	"picturetalk/feedback"
	"picturetalk/gallery"
	"picturetalk/level"
	"picturetalk/log"
	"picturetalk/speech"
)

// Monitor is the microphone side of a recording attempt. *level.Monitor
// implements it.
type Monitor interface {
	Start(ind level.Indicator, errs level.ErrorSink) error
	Stop(ind level.Indicator)
	Tap(fn func(pcm []byte))
	DeviceName() string
}

// Assessor sends one transcript and image for assessment. *assess.Client
// implements it.
type Assessor interface {
	BuildAndSend(ctx context.Context, transcript, imageLocator string) (*assess.Response, error)
}

type Sounds interface {
	PlayStart()
	PlayEnd()
	PlayError()
}

type Options struct {
	// Recognizer may be nil, in which case recording stays disabled and
	// Unavailable explains why on the status line.
	Recognizer  speech.Recognizer
	Unavailable error
	Speech      speech.Config

	Monitor  Monitor
	Assessor Assessor
	Gallery  *gallery.Gallery
	Sounds   Sounds // optional

	Copy func(text string) error     // optional
	Open func(locator string) error // optional

	SilenceWarn     time.Duration // zero disables the no-voice warning
	SilenceLevelMin float64
}

type event any

type commandEvent struct{ cmd Command }

type streamEvent struct {
	attempt string
	ev      speech.Event
}

type streamClosed struct{ attempt string }

type silenceEvent struct {
	attempt string
	ev      SilenceEvent
}

type assessmentDone struct {
	attempt    string
	transcript string
	resp       *assess.Response
	err        error
}

// Controller serialises user commands, recognition events, silence
// warnings and assessment completions on the goroutine running Run.
type Controller struct {
	opts    Options
	surface Surface
	session *speech.Session

	events chan event
	quit   chan struct{}
	ctx    context.Context

	mu    sync.Mutex
	state State

	// owned by the Run goroutine
	attempt    string
	stopping   bool
	lastResult string
}

func New(surface Surface, opts Options) *Controller {
	c := &Controller{
		opts:    opts,
		surface: surface,
		events:  make(chan event, 64),
		quit:    make(chan struct{}),
	}
	if opts.Recognizer != nil {
		c.session = speech.NewSession(opts.Recognizer, opts.Speech)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Do queues a user command. Commands whose control is disabled when they
// are handled are dropped.
func (c *Controller) Do(cmd Command) {
	c.post(commandEvent{cmd: cmd})
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// Run shows the first image and handles events until ctx is done. An
// assessment still in flight at that point is abandoned.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.quit)
	c.ctx = ctx

	c.surface.Heading(HeadingAssessment)
	c.surface.Image(c.opts.Gallery.Next())
	c.surface.AssessmentPlaceholder()
	if c.session == nil {
		reason := c.opts.Unavailable
		if reason == nil {
			reason = speech.ErrNoBackend
		}
		c.surface.Status("recording disabled, no backend: " + reason.Error())
	}
	c.pushControls()

	for {
		select {
		case <-ctx.Done():
			c.release()
			return nil
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case commandEvent:
		c.handleCommand(ev.cmd)
	case streamEvent:
		if ev.attempt != c.attempt || c.State() != Listening {
			return
		}
		switch ev.ev.Kind {
		case speech.EventResult:
			c.surface.Transcript(c.session.HandleResult(ev.ev.Results))
		case speech.EventError:
			c.recognitionFailed(ev.ev.Err)
		}
	case streamClosed:
		if ev.attempt != c.attempt || c.State() != Listening {
			return
		}
		c.sessionEnded()
	case silenceEvent:
		if ev.attempt != c.attempt || c.State() != Listening {
			return
		}
		switch ev.ev {
		case SilenceWarn:
			log.Info("no_voice_warning")
			c.surface.NoVoice(true)
			c.playError()
		case SilenceClear:
			log.Info("no_voice_cleared")
			c.surface.NoVoice(false)
		}
	case assessmentDone:
		c.assessmentFinished(ev)
	}
}

func (c *Controller) controls() Controls {
	ctl := c.State().Controls()
	if c.session == nil {
		ctl.RecordEnabled = false
	}
	if c.stopping {
		ctl.StopEnabled = false
	}
	return ctl
}

func (c *Controller) pushControls() {
	c.surface.Controls(c.controls())
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.pushControls()
}

func (c *Controller) handleCommand(cmd Command) {
	ctl := c.controls()
	switch cmd {
	case Record:
		if ctl.RecordVisible && ctl.RecordEnabled {
			c.startRecording()
		}
	case Stop:
		if ctl.StopVisible && ctl.StopEnabled {
			c.stopRecording()
		}
	case NextImage:
		if ctl.PickerEnabled {
			img := c.opts.Gallery.Next()
			log.Info("image: " + img)
			c.surface.Image(img)
		}
	case CopyAssessment:
		c.copyAssessment()
	case OpenImage:
		c.openImage()
	}
}

func (c *Controller) startRecording() {
	c.attempt = uuid.NewString()
	c.stopping = false
	attempt := c.attempt
	log.SessionStart(attempt, c.opts.Recognizer.Name(), c.opts.Monitor.DeviceName())

	c.surface.AssessmentPlaceholder()
	c.surface.Transcript("")
	c.surface.NoVoice(false)

	var silence *silenceMonitor
	if c.opts.SilenceWarn > 0 {
		silence = newSilenceMonitor(c.opts.SilenceWarn, c.opts.SilenceLevelMin)
	}
	ind := level.IndicatorFunc(func(lvl float64, active bool) {
		c.surface.SetLevel(lvl, active)
		if silence == nil {
			return
		}
		if ev := silence.Tick(lvl); ev != SilenceNone {
			select {
			case c.events <- silenceEvent{attempt: attempt, ev: ev}:
			default:
			}
		}
	})
	errs := level.ErrorSinkFunc(func(err error) {
		log.Errorf("microphone: %v", err)
		c.surface.Status(StatusMicError)
	})

	if err := c.opts.Monitor.Start(ind, errs); err != nil {
		c.playError()
		log.SessionEnd(attempt, "mic_error", 0)
		return
	}

	events, err := c.session.Start(c.ctx)
	if err != nil {
		c.opts.Monitor.Stop(c.surface)
		log.Errorf("recognition start: %v", err)
		c.surface.Status(fmt.Sprintf("Error starting recognition: %v", err))
		c.playError()
		log.SessionEnd(attempt, "start_error", 0)
		return
	}
	c.opts.Monitor.Tap(c.session.Feed)

	c.surface.Status(StatusListening)
	c.surface.Heading(HeadingPrompt)
	c.setState(Listening)
	c.playStart()

	go func() {
		for ev := range events {
			c.post(streamEvent{attempt: attempt, ev: ev})
		}
		c.post(streamClosed{attempt: attempt})
	}()
}

// stopRecording releases the microphone right away; the session stays
// Listening until the stream has flushed its last results and closed.
func (c *Controller) stopRecording() {
	log.Info("record_stop")
	c.stopping = true
	c.releaseMic()
	c.session.Stop()
	c.pushControls()
	c.playEnd()
}

func (c *Controller) releaseMic() {
	c.opts.Monitor.Tap(nil)
	c.opts.Monitor.Stop(c.surface)
}

func (c *Controller) recognitionFailed(err error) {
	rerr := c.session.HandleError(err)
	c.releaseMic()
	log.Errorf("recognition: %v", rerr)
	c.surface.Status("Error occurred in recognition: " + rerr.Reason)
	c.surface.Transcript("")
	c.surface.NoVoice(false)
	c.stopping = false
	c.setState(Idle)
	c.playError()
	log.SessionEnd(c.attempt, "recognition_error", 0)
}

func (c *Controller) sessionEnded() {
	text, submit := c.session.HandleEnd()
	c.releaseMic()
	c.stopping = false
	c.surface.NoVoice(false)
	c.surface.Status(StatusProcessing)
	c.setState(Processing)

	if !submit {
		log.SessionEnd(c.attempt, "no_speech", 0)
		c.surface.Transcript("")
		c.surface.Status(StatusNoSpeech)
		c.setState(Idle)
		return
	}

	log.SessionEnd(c.attempt, "submitted", len(text))
	c.surface.Transcript(`"` + text + `"`)
	c.startAssessment(text)
}

func (c *Controller) startAssessment(transcript string) {
	c.setState(AwaitingAssessment)
	c.surface.AssessmentPending()

	ctx, attempt, image := c.ctx, c.attempt, c.opts.Gallery.Current()
	go func() {
		resp, err := c.opts.Assessor.BuildAndSend(ctx, transcript, image)
		c.post(assessmentDone{attempt: attempt, transcript: transcript, resp: resp, err: err})
	}()
}

func (c *Controller) assessmentFinished(ev assessmentDone) {
	defer c.setState(Idle)

	if ev.err != nil {
		log.Errorf("assessment %s: %v", ev.attempt, ev.err)
		c.surface.AssessmentFailed(FailedMessage, hint(ev.err))
		c.surface.Status(StatusFailed)
		c.playError()
		return
	}

	sections := feedback.Format(ev.resp.Text)
	c.lastResult = feedback.PlainText(ev.transcript, sections)
	c.surface.Assessment(ev.transcript, sections)
	c.surface.Status(StatusComplete)
	c.surface.Heading(HeadingAssessment)
}

// hint is the advice shown under a failed assessment.
func hint(err error) string {
	var svc *assess.ServiceUnavailableError
	if errors.As(err, &svc) {
		return svc.Error()
	}
	var img *assess.ImageFetchError
	if errors.As(err, &img) {
		return fmt.Sprintf("Could not read the image %s: %v", img.Locator, img.Err)
	}
	return err.Error()
}

func (c *Controller) copyAssessment() {
	if c.lastResult == "" || c.opts.Copy == nil {
		return
	}
	if err := c.opts.Copy(c.lastResult); err != nil {
		log.Warnf("clipboard copy: %v", err)
		c.surface.Status(fmt.Sprintf("Error copying assessment: %v", err))
		return
	}
	c.surface.Status(StatusCopied)
}

func (c *Controller) openImage() {
	img := c.opts.Gallery.Current()
	if img == "" || c.opts.Open == nil {
		return
	}
	if err := c.opts.Open(img); err != nil {
		log.Warnf("open image: %v", err)
		c.surface.Status(fmt.Sprintf("Error opening image: %v", err))
	}
}

// release drops a live recording on shutdown.
func (c *Controller) release() {
	if c.State() != Listening {
		return
	}
	c.releaseMic()
	c.session.Stop()
	log.SessionEnd(c.attempt, "aborted", 0)
}

func (c *Controller) playStart() {
	if c.opts.Sounds != nil {
		go c.opts.Sounds.PlayStart()
	}
}

func (c *Controller) playEnd() {
	if c.opts.Sounds != nil {
		go c.opts.Sounds.PlayEnd()
	}
}

func (c *Controller) playError() {
	if c.opts.Sounds != nil {
		go c.opts.Sounds.PlayError()
	}
}
