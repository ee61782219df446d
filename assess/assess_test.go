package assess

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-data")

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bike.png")
	if err := os.WriteFile(path, pngBytes, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildPrompt(t *testing.T) {
	transcript := `A man rides a "red" bike.`
	p := BuildPrompt(transcript)
	if !strings.Contains(p, `"`+transcript+`"`) {
		t.Errorf("prompt does not quote transcript verbatim:\n%s", p)
	}
	for _, want := range []string{"own concise description", "Compare your description", "accuracy and descriptive quality"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildAndSend(t *testing.T) {
	img := writeImage(t)
	var got Payload
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"response":"1. Description\nA bike.","prompt_eval_count":17,"eval_count":42}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "llava")
	resp, err := c.BuildAndSend(context.Background(), "A bike.", img)
	if err != nil {
		t.Fatalf("BuildAndSend: %v", err)
	}
	if resp.Text != "1. Description\nA bike." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.PromptTokens != 17 || resp.CompletionTokens != 42 {
		t.Errorf("tokens = %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want exactly 1", calls.Load())
	}
	if got.Model != "llava" || got.Stream || len(got.Images) != 1 {
		t.Errorf("payload = %+v", got)
	}
	if dec, _ := base64.StdEncoding.DecodeString(got.Images[0]); string(dec) != string(pngBytes) {
		t.Error("image not base64 of file bytes")
	}
	if !strings.Contains(got.Prompt, `"A bike."`) {
		t.Errorf("prompt = %q", got.Prompt)
	}
}

func TestBuildAndSendMissingCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "llava").BuildAndSend(context.Background(), "x", writeImage(t))
	if err != nil {
		t.Fatal(err)
	}
	if resp.PromptTokens != 0 || resp.CompletionTokens != 0 {
		t.Errorf("tokens = %d/%d, want 0/0", resp.PromptTokens, resp.CompletionTokens)
	}
}

func TestBuildAndSendStatusError(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "boom", status)
			}))
			defer srv.Close()

			_, err := New(srv.URL, "llava").BuildAndSend(context.Background(), "x", writeImage(t))
			var sue *ServiceUnavailableError
			if !errors.As(err, &sue) {
				t.Fatalf("err = %T %v, want *ServiceUnavailableError", err, err)
			}
			if sue.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", sue.StatusCode, status)
			}
			msg := err.Error()
			if !strings.Contains(msg, fmt.Sprint(status)) {
				t.Errorf("message %q does not carry the status", msg)
			}
			if !strings.Contains(msg, "OLLAMA_ORIGINS") || !strings.Contains(msg, "running") {
				t.Errorf("message lacks configuration hint: %q", msg)
			}
			if calls.Load() != 1 {
				t.Errorf("requests = %d, want 1 (no retry)", calls.Load())
			}
		})
	}
}

func TestBuildAndSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "llava").BuildAndSend(context.Background(), "x", writeImage(t))
	var sue *ServiceUnavailableError
	if !errors.As(err, &sue) || sue.StatusCode != 0 {
		t.Fatalf("err = %v, want ServiceUnavailableError with status 0", err)
	}
}

func TestBuildAndSendImageMissing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "gone.jpg")
	_, err := New(srv.URL, "llava").BuildAndSend(context.Background(), "x", missing)
	var ife *ImageFetchError
	if !errors.As(err, &ife) {
		t.Fatalf("err = %v, want *ImageFetchError", err)
	}
	if ife.Locator != missing || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ImageFetchError = %+v", ife)
	}
	if calls.Load() != 0 {
		t.Error("no generate request should be sent without an image")
	}
}

func TestFetchImageLocators(t *testing.T) {
	path := writeImage(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(pngBytes)
	}))
	defer srv.Close()

	c := New(srv.URL, "llava")
	for _, loc := range []string{path, "file://" + path, srv.URL + "/bike.png"} {
		data, err := FetchImage(context.Background(), c.http, loc)
		if err != nil {
			t.Errorf("FetchImage(%q): %v", loc, err)
			continue
		}
		if string(data) != string(pngBytes) {
			t.Errorf("FetchImage(%q) returned wrong bytes", loc)
		}
	}

	var ife *ImageFetchError
	if _, err := FetchImage(context.Background(), c.http, srv.URL+"/missing.png"); !errors.As(err, &ife) {
		t.Errorf("404 image: err = %v", err)
	}
	empty := filepath.Join(t.TempDir(), "empty.png")
	os.WriteFile(empty, nil, 0644)
	if _, err := FetchImage(context.Background(), c.http, empty); !errors.As(err, &ife) {
		t.Errorf("empty image: err = %v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := New(srv.URL, "llava", WithTimeout(100*time.Millisecond)).BuildAndSend(context.Background(), "x", writeImage(t))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout not honoured")
	}
}

func TestShow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/api/show" || body["name"] != "llava" {
			t.Errorf("unexpected request %s %v", r.URL.Path, body)
		}
		w.Write([]byte(`{"modelfile":"FROM llava:latest"}`))
	}))
	defer srv.Close()

	mf, err := New(srv.URL+"/", "llava").Show(context.Background(), "llava")
	if err != nil {
		t.Fatal(err)
	}
	if mf != "FROM llava:latest" {
		t.Errorf("modelfile = %q", mf)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New("", "llava")
	if c.Endpoint() != DefaultEndpoint {
		t.Errorf("Endpoint = %q", c.Endpoint())
	}
	if c.timeout != 0 {
		t.Errorf("default timeout = %v, want none", c.timeout)
	}
}
