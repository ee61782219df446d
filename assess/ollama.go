// Package assess sends a transcript and the image it describes to a local
// Ollama server and returns the model's assessment.
package assess

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"picturetalk/log"
	"picturetalk/traced"
)

const DefaultEndpoint = "http://localhost:11434"

// Payload is the /api/generate request body.
type Payload struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Response is the model's answer. Token counts are zero when Ollama omits
// them.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

type Client struct {
	endpoint string
	model    string
	timeout  time.Duration
	http     *traced.Client
}

type Option func(*Client)

// WithTimeout bounds each request. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *traced.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(endpoint, model string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     traced.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }
func (c *Client) Endpoint() string { return c.endpoint }

// BuildPayload reads the image and assembles the request body.
func (c *Client) BuildPayload(ctx context.Context, transcript, imageLocator string) (Payload, error) {
	img, err := FetchImage(ctx, c.http, imageLocator)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Model:  c.model,
		Prompt: BuildPrompt(transcript),
		Images: []string{base64.StdEncoding.EncodeToString(img)},
		Stream: false,
	}, nil
}

// BuildAndSend performs exactly one generate request for the transcript and
// image. There is no retry.
func (c *Client) BuildAndSend(ctx context.Context, transcript, imageLocator string) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := c.BuildPayload(ctx, transcript, imageLocator)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/api/generate", payload)
	if err != nil {
		return nil, err
	}

	var gen generateResponse
	if err := json.Unmarshal(resp.Body, &gen); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}

	m := resp.Metrics
	log.AssessmentMetrics(log.AssessmentData{
		Model:            c.model,
		ImageKB:          float64(len(payload.Images[0])) * 3 / 4 / 1024,
		PromptTokens:     gen.PromptEvalCount,
		CompletionTokens: gen.EvalCount,
		DNSMs:            float64(m.DNS.Milliseconds()),
		ConnectMs:        float64(m.TCP.Milliseconds()),
		TTFBMs:           float64(m.TTFB.Milliseconds()),
		TotalMs:          float64(m.Total.Milliseconds()),
		ConnReused:       m.ConnReused,
	})

	return &Response{
		Text:             gen.Response,
		PromptTokens:     gen.PromptEvalCount,
		CompletionTokens: gen.EvalCount,
	}, nil
}

// Show returns the modelfile Ollama reports for a model.
func (c *Client) Show(ctx context.Context, name string) (string, error) {
	resp, err := c.post(ctx, "/api/show", map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	var show struct {
		Modelfile string `json:"modelfile"`
	}
	if err := json.Unmarshal(resp.Body, &show); err != nil {
		return "", fmt.Errorf("decoding ollama show response: %w", err)
	}
	return show.Modelfile, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*traced.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ServiceUnavailableError{Endpoint: c.endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceUnavailableError{
			Endpoint:   c.endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(resp.Body))),
		}
	}
	return resp, nil
}
