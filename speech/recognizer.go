// Package speech runs continuous speech recognition for one recording
// attempt at a time and accumulates the transcript it produces.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// Result is one recognition hypothesis. Final results will not be revised.
type Result struct {
	Text  string
	Final bool
}

type EventKind int

const (
	EventResult EventKind = iota
	EventError
)

type Event struct {
	Kind    EventKind
	Results []Result
	Err     error
}

// Stream is one open recognition session. Events is closed when the stream
// has ended, either after Stop has flushed the last results or after an
// error.
type Stream interface {
	Feed(pcm []byte)
	Events() <-chan Event
	Stop()
}

type Config struct {
	Language   string // BCP 47, e.g. en-US
	SampleRate int
	Channels   int
}

type Recognizer interface {
	Name() string
	Open(ctx context.Context, cfg Config) (Stream, error)
}

// ErrNoBackend means no recognition service is configured.
var ErrNoBackend = errors.New("speech recognition unavailable: set DEEPGRAM_API_KEY or GROQ_API_KEY")

type Options struct {
	Provider      string // auto, deepgram, groq
	DeepgramKey   string
	DeepgramModel string
	GroqKey       string
	GroqModel     string
}

// New picks a backend. With Provider "auto" streaming Deepgram wins over
// batch Groq.
func New(opts Options) (Recognizer, error) {
	switch opts.Provider {
	case "deepgram":
		if opts.DeepgramKey == "" {
			return nil, fmt.Errorf("deepgram selected: %w", ErrNoBackend)
		}
		return NewDeepgram(opts.DeepgramKey, opts.DeepgramModel), nil
	case "groq":
		if opts.GroqKey == "" {
			return nil, fmt.Errorf("groq selected: %w", ErrNoBackend)
		}
		return NewGroq(opts.GroqKey, opts.GroqModel), nil
	case "", "auto":
		if opts.DeepgramKey != "" {
			return NewDeepgram(opts.DeepgramKey, opts.DeepgramModel), nil
		}
		if opts.GroqKey != "" {
			return NewGroq(opts.GroqKey, opts.GroqModel), nil
		}
		return nil, ErrNoBackend
	default:
		return nil, fmt.Errorf("unknown speech provider %q", opts.Provider)
	}
}
