package speech

import (
	"context"
	"sync"
)

// Fake is a scripted Recognizer. Each Open returns a FakeStream that first
// replays Script and then waits to be driven through Emit, Fail and End.
// OnStop results are emitted as the stream flushes on Stop.
type Fake struct {
	OpenErr error
	Script  []Event
	OnStop  []Result

	mu      sync.Mutex
	streams []*FakeStream
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Open(_ context.Context, cfg Config) (Stream, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	s := &FakeStream{
		Config: cfg,
		events: make(chan Event, 64),
		onStop: f.OnStop,
	}
	for _, ev := range f.Script {
		s.Emit(ev)
	}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

// Last returns the most recently opened stream, or nil.
func (f *Fake) Last() *FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

func (f *Fake) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type FakeStream struct {
	Config Config

	events chan Event
	onStop []Result

	mu      sync.Mutex
	fed     int
	stopped bool
	closed  bool
}

func (s *FakeStream) Events() <-chan Event { return s.events }

func (s *FakeStream) Feed(pcm []byte) {
	s.mu.Lock()
	if !s.stopped {
		s.fed += len(pcm)
	}
	s.mu.Unlock()
}

// Emit queues an event unless the stream has already ended.
func (s *FakeStream) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

func (s *FakeStream) Say(text string) {
	s.Emit(Event{Kind: EventResult, Results: []Result{{Text: text, Final: true}}})
}

func (s *FakeStream) Partial(text string) {
	s.Emit(Event{Kind: EventResult, Results: []Result{{Text: text}}})
}

// Fail emits an error and ends the stream.
func (s *FakeStream) Fail(err error) {
	s.Emit(Event{Kind: EventError, Err: err})
	s.End()
}

// End closes the event channel as a remote hang-up would.
func (s *FakeStream) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *FakeStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	onStop := s.onStop
	s.mu.Unlock()
	if len(onStop) > 0 {
		s.Emit(Event{Kind: EventResult, Results: onStop})
	}
	s.End()
}

func (s *FakeStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Fed is the number of PCM bytes received so far.
func (s *FakeStream) Fed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}
