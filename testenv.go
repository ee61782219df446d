package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"picturetalk/audio"
	"picturetalk/beep"
	"picturetalk/feedback"
	"picturetalk/level"
	"picturetalk/log"
	"picturetalk/practice"
	"picturetalk/speech"
)

// lineSurface prints every display change as one "key: value" line, for
// scripts that drive the binary through stdin.
type lineSurface struct {
	mu      sync.Mutex
	out     io.Writer
	busy    bool
	settled chan struct{}
}

func newLineSurface(out io.Writer) *lineSurface {
	return &lineSurface{out: out, settled: make(chan struct{}, 1)}
}

func (s *lineSurface) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *lineSurface) SetLevel(float64, bool) {}

// Controls marks an attempt as settled once recording is offered again
// after it was not.
func (s *lineSurface) Controls(c practice.Controls) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "controls: record=%t stop=%t picker=%t\n",
		c.RecordVisible && c.RecordEnabled, c.StopVisible && c.StopEnabled, c.PickerEnabled)
	idle := c.RecordVisible && c.RecordEnabled
	if !idle {
		s.busy = true
		return
	}
	if s.busy {
		s.busy = false
		select {
		case s.settled <- struct{}{}:
		default:
		}
	}
}

func (s *lineSurface) Status(text string)     { s.printf("status: %s", text) }
func (s *lineSurface) Heading(text string)    { s.printf("heading: %s", text) }
func (s *lineSurface) Image(locator string)   { s.printf("image: %s", locator) }
func (s *lineSurface) Transcript(text string) { s.printf("transcript: %s", text) }
func (s *lineSurface) NoVoice(warn bool)      { s.printf("novoice: %t", warn) }

func (s *lineSurface) AssessmentPlaceholder() { s.printf("assessment: %s", practice.Placeholder) }
func (s *lineSurface) AssessmentPending()     { s.printf("assessment: %s", practice.Pending) }

func (s *lineSurface) Assessment(transcript string, sections []feedback.Section) {
	s.printf("assessment: %d sections", len(sections))
	for _, sec := range sections {
		s.printf("section: %s", sec.Heading)
	}
}

func (s *lineSurface) AssessmentFailed(message, hint string) {
	s.printf("assessment: %s %s", message, hint)
}

// runTestMode replays a WAV file as the microphone and reads commands from
// stdin: RECORD, STOP, NEXT, COPY, WAIT, SLEEP <ms> and QUIT. With
// -fakespeech, SAY <text>, PARTIAL <text>, FAIL <reason> and END stand in
// for the recognition service.
func runTestMode(p *program) {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContextFromWAV(p.testWAV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	var fake *speech.Fake
	opts := p.options(level.NewMonitor(fakeCtx, nil))
	opts.Sounds = nil
	opts.Copy = func(text string) error {
		fmt.Printf("copied: %d bytes\n", len(text))
		return nil
	}
	opts.Open = nil
	if p.fakeSpeech {
		fake = speech.NewFake()
		opts.Recognizer, opts.Unavailable = fake, nil
	}

	surface := newLineSurface(os.Stdout)
	ctrl := practice.New(surface, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	quit := func() {
		cancel()
		<-done
		log.Close()
		os.Exit(0)
	}

	stream := func() *speech.FakeStream {
		if fake == nil {
			fmt.Fprintln(os.Stderr, "SAY/PARTIAL/FAIL/END need -fakespeech")
			return nil
		}
		// RECORD is asynchronous; give the controller a moment to open the stream.
		for deadline := time.Now().Add(2 * time.Second); ctrl.State() != practice.Listening; {
			if time.Now().After(deadline) {
				fmt.Fprintln(os.Stderr, "no recognition stream open")
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
		return fake.Last()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "RECORD":
			ctrl.Do(practice.Record)
		case "STOP":
			ctrl.Do(practice.Stop)
		case "NEXT":
			ctrl.Do(practice.NextImage)
		case "COPY":
			ctrl.Do(practice.CopyAssessment)
		case "WAIT":
			<-surface.settled
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "SAY":
			if s := stream(); s != nil {
				s.Say(arg)
			}
		case "PARTIAL":
			if s := stream(); s != nil {
				s.Partial(arg)
			}
		case "FAIL":
			if s := stream(); s != nil {
				s.Fail(errors.New(arg))
			}
		case "END":
			if s := stream(); s != nil {
				s.End()
			}
		case "QUIT":
			quit()
		}
	}
	quit()
}
