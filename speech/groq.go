package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"picturetalk/encoder"
	"picturetalk/log"
	"picturetalk/traced"
)

const (
	groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

	// Recordings shorter than this are dropped without a request.
	minBatchAudioMs = 100
)

// Groq is a batch backend: audio is buffered for the whole attempt and
// transcribed once on Stop, producing a single final result.
type Groq struct {
	apiKey string
	model  string
	url    string
	client *traced.Client
}

func NewGroq(apiKey, model string) *Groq {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Groq{apiKey: apiKey, model: model, url: groqURL, client: traced.New()}
}

func (g *Groq) WithURL(u string) *Groq {
	g.url = u
	return g
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Open(ctx context.Context, cfg Config) (Stream, error) {
	return &groqStream{
		g:      g,
		ctx:    ctx,
		lang:   baseLanguage(cfg.Language),
		events: make(chan Event, 1),
	}, nil
}

// baseLanguage turns en-US into en; whisper takes ISO 639-1 codes.
func baseLanguage(tag string) string {
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

func (g *Groq) transcribe(ctx context.Context, flac []byte, lang string) (string, *traced.Metrics, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", nil, err
	}
	if _, err := part.Write(flac); err != nil {
		return "", nil, err
	}
	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "json")
	if lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.url, &body)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", resp.Metrics, &RecognitionError{Reason: "not-allowed", Err: fmt.Errorf("groq API error %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.Metrics, &RecognitionError{Reason: "network", Err: fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))}
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return "", resp.Metrics, fmt.Errorf("groq response parse error: %w", err)
	}
	if remaining := resp.Header.Get("x-ratelimit-remaining-requests"); remaining != "" {
		log.Info("groq rate limit remaining: " + remaining)
	}
	return strings.TrimSpace(gResp.Text), resp.Metrics, nil
}

type groqStream struct {
	g      *Groq
	ctx    context.Context
	lang   string
	events chan Event

	mu      sync.Mutex
	pcm     []byte
	stopped bool
}

func (s *groqStream) Events() <-chan Event { return s.events }

func (s *groqStream) Feed(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.pcm = append(s.pcm, pcm...)
	}
}

func (s *groqStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	pcm := s.pcm
	s.pcm = nil
	s.mu.Unlock()

	go s.finish(pcm)
}

func (s *groqStream) finish(pcm []byte) {
	defer close(s.events)

	if encoder.DurationMs(pcm) < minBatchAudioMs {
		return
	}
	start := time.Now()
	data, err := encoder.FLAC(pcm)
	if err != nil {
		s.events <- Event{Kind: EventError, Err: &RecognitionError{Reason: "audio-capture", Err: err}}
		return
	}

	text, metrics, err := s.g.transcribe(s.ctx, data, s.lang)
	stats := log.RecognitionData{
		TotalMs:    float64(time.Since(start).Milliseconds()),
		AudioS:     float64(encoder.DurationMs(pcm)) / 1000,
		SentChunks: 1,
		SentKB:     float64(len(data)) / 1024,
	}
	if metrics != nil {
		stats.ConnectMs = float64((metrics.DNS + metrics.TCP + metrics.TLS).Milliseconds())
	}
	if err != nil {
		log.Errorf("groq transcribe: %v", err)
		s.events <- Event{Kind: EventError, Err: err}
		return
	}
	stats.RecvMessages, stats.RecvFinal = 1, 1
	log.RecognitionMetrics("groq", stats)

	if text != "" {
		s.events <- Event{Kind: EventResult, Results: []Result{{Text: text, Final: true}}}
	}
}
