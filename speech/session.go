package speech

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"nhooyr.io/websocket"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

var ErrBusy = errors.New("a speech session is already running")

// RecognitionError ends a session early. Reason is a short machine-ish
// label ("network", "not-allowed", "aborted", ...).
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "recognition error: " + e.Reason
	}
	return fmt.Sprintf("recognition error: %s: %v", e.Reason, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

func reason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "aborted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case websocket.CloseStatus(err) == websocket.StatusPolicyViolation:
		return "not-allowed"
	case websocket.CloseStatus(err) != -1, errors.As(err, &netErr):
		return "network"
	default:
		return "service"
	}
}

// Session is the Idle/Listening state machine around one Recognizer. The
// owner feeds it events from the channel returned by Start, one call per
// event.
type Session struct {
	rec Recognizer
	cfg Config

	mu     sync.Mutex
	state  State
	buf    Buffer
	stream Stream
}

func NewSession(rec Recognizer, cfg Config) *Session {
	return &Session{rec: rec, cfg: cfg}
}

func (s *Session) Recognizer() Recognizer { return s.rec }

// Start opens a stream and enters Listening with an empty transcript.
func (s *Session) Start(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Listening {
		return nil, ErrBusy
	}
	stream, err := s.rec.Open(ctx, s.cfg)
	if err != nil {
		return nil, &RecognitionError{Reason: reason(err), Err: err}
	}
	s.buf.Reset()
	s.stream = stream
	s.state = Listening
	return stream.Events(), nil
}

// Feed forwards captured audio while listening.
func (s *Session) Feed(pcm []byte) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.Feed(pcm)
	}
}

// Stop asks the stream to flush and end. The session stays Listening until
// HandleEnd sees the stream close.
func (s *Session) Stop() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

// HandleResult applies one result event and returns the transcript to
// display.
func (s *Session) HandleResult(results []Result) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Listening {
		s.buf.Apply(results)
	}
	return s.buf.Display()
}

// HandleEnd moves back to Idle. submit is true when the finalized text has
// any non-space content; text is that content trimmed.
func (s *Session) HandleEnd() (text string, submit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Listening {
		return "", false
	}
	text = strings.TrimSpace(s.buf.Final())
	s.buf.Reset()
	s.stream = nil
	s.state = Idle
	return text, text != ""
}

// HandleError aborts the session and drops whatever was transcribed.
func (s *Session) HandleError(err error) *RecognitionError {
	var rerr *RecognitionError
	if !errors.As(err, &rerr) {
		rerr = &RecognitionError{Reason: reason(err), Err: err}
	}

	s.mu.Lock()
	stream := s.stream
	s.buf.Reset()
	s.stream = nil
	s.state = Idle
	s.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
	return rerr
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Display() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Display()
}
