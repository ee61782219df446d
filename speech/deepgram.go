package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"picturetalk/encoder"
	"picturetalk/log"
)

const (
	deepgramURL = "wss://api.deepgram.com/v1/listen"

	streamChunkMs      = 200
	streamChunkBytes   = encoder.SampleRate * encoder.Channels * (encoder.BitsPerSample / 8) * streamChunkMs / 1000
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = 1000 * time.Millisecond
)

// Deepgram streams PCM over a websocket and receives interim and final
// hypotheses as they are produced.
type Deepgram struct {
	apiKey string
	model  string
	url    string
}

func NewDeepgram(apiKey, model string) *Deepgram {
	if model == "" {
		model = "nova-3"
	}
	return &Deepgram{apiKey: apiKey, model: model, url: deepgramURL}
}

// WithURL points the client at another listen endpoint.
func (d *Deepgram) WithURL(u string) *Deepgram {
	d.url = u
	return d
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) endpoint(cfg Config) (string, error) {
	endpoint, err := url.Parse(d.url)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", fmt.Sprintf("%d", cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		q.Set("channels", fmt.Sprintf("%d", cfg.Channels))
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

// Open returns immediately; the connection is dialed in the background and
// audio fed before it is ready is queued.
func (d *Deepgram) Open(ctx context.Context, cfg Config) (Stream, error) {
	endpoint, err := d.endpoint(cfg)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	streamCtx, cancel := context.WithCancel(ctx)
	s := &deepgramStream{
		ctx:       streamCtx,
		cancel:    cancel,
		events:    make(chan Event, 64),
		audioCh:   make(chan []byte, 128),
		finalized: make(chan struct{}),
		startedAt: time.Now(),
	}
	go s.run(func() (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(streamCtx, endpoint, &websocket.DialOptions{HTTPHeader: headers})
		return conn, err
	})
	return s, nil
}

type deepgramResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn

	events    chan Event
	audioCh   chan []byte
	finalized chan struct{}
	startedAt time.Time

	feedMu  sync.Mutex
	feedBuf []byte
	stopped bool

	finalizedOnce sync.Once
	errOnce       sync.Once

	mu      sync.Mutex
	closing bool
	failed  bool
	stats   log.RecognitionData
}

func (s *deepgramStream) Events() <-chan Event { return s.events }

func (s *deepgramStream) Feed(pcm []byte) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.stopped {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf[:streamChunkBytes])
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		s.enqueue(chunk)
	}
}

func (s *deepgramStream) enqueue(chunk []byte) {
	select {
	case s.audioCh <- chunk:
	default:
		log.Warn("deepgram send queue full, dropping audio")
	}
}

// Stop flushes buffered audio and starts finalization. It does not wait.
func (s *deepgramStream) Stop() {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if len(s.feedBuf) > 0 {
		s.enqueue(s.feedBuf)
		s.feedBuf = nil
	}
	close(s.audioCh)
}

func (s *deepgramStream) fail(err error) {
	s.errOnce.Do(func() {
		s.mu.Lock()
		s.failed = true
		s.mu.Unlock()
		s.events <- Event{Kind: EventError, Err: &RecognitionError{Reason: reason(err), Err: err}}
		s.cancel()
	})
}

func (s *deepgramStream) run(dial func() (*websocket.Conn, error)) {
	defer close(s.events)
	defer s.cancel()

	connectStart := time.Now()
	conn, err := dial()
	s.stats.ConnectMs = float64(time.Since(connectStart).Milliseconds())
	if err != nil {
		log.Errorf("deepgram connect: %v", err)
		s.fail(err)
		return
	}
	s.conn = conn

	recvDone := make(chan struct{})
	go s.receive(recvDone)

	if !s.send() {
		conn.Close(websocket.StatusNormalClosure, "")
		<-recvDone
		return
	}

	finalizeStart := time.Now()
	select {
	case <-s.finalized:
		time.Sleep(streamFinalizeIdle)
	case <-time.After(streamFinalizeMax):
	case <-s.ctx.Done():
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
	s.cancel()
	<-recvDone

	s.mu.Lock()
	s.stats.FinalizeMs = float64(time.Since(finalizeStart).Milliseconds())
	s.stats.TotalMs = float64(time.Since(s.startedAt).Milliseconds())
	stats := s.stats
	s.mu.Unlock()
	log.RecognitionMetrics("deepgram", stats)
}

// send pumps audio until Stop closes the queue, then asks the server to
// finalize. It reports false when the stream failed.
func (s *deepgramStream) send() bool {
	for {
		select {
		case <-s.ctx.Done():
			s.fail(s.ctx.Err())
			return false
		case chunk, ok := <-s.audioCh:
			if !ok {
				if err := s.conn.Write(s.ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`)); err != nil {
					s.fail(err)
					return false
				}
				return true
			}
			if err := s.conn.Write(s.ctx, websocket.MessageBinary, chunk); err != nil {
				s.fail(err)
				return false
			}
			s.mu.Lock()
			s.stats.SentChunks++
			s.stats.SentKB += float64(len(chunk)) / 1024
			s.stats.AudioS += float64(len(chunk)) / float64(encoder.SampleRate*encoder.Channels*(encoder.BitsPerSample/8))
			s.mu.Unlock()
		}
	}
}

func (s *deepgramStream) receive(done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.mu.Lock()
			closing, failed := s.closing, s.failed
			s.mu.Unlock()
			if !closing && !failed {
				s.fail(err)
			}
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Warnf("deepgram: bad message: %v", err)
			continue
		}
		if resp.FromFinalize {
			s.finalizedOnce.Do(func() { close(s.finalized) })
		}
		if resp.Type != "Results" {
			continue
		}

		text := ""
		if len(resp.Channel.Alternatives) > 0 {
			text = strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
		}
		final := resp.IsFinal || resp.FromFinalize

		s.mu.Lock()
		s.stats.RecvMessages++
		if final {
			s.stats.RecvFinal++
		}
		s.mu.Unlock()

		// An empty final only clears the pending interim text.
		var results []Result
		if text != "" {
			results = []Result{{Text: text, Final: final}}
		}
		s.events <- Event{Kind: EventResult, Results: results}
	}
}
