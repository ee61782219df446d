package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ollama.Endpoint != "http://localhost:11434" {
		t.Errorf("Endpoint = %q", cfg.Ollama.Endpoint)
	}
	if cfg.Ollama.Model != "llava" {
		t.Errorf("Model = %q", cfg.Ollama.Model)
	}
	if cfg.Ollama.Timeout() != 0 {
		t.Errorf("Timeout = %v, want none", cfg.Ollama.Timeout())
	}
	if cfg.Speech.Language != "en-US" {
		t.Errorf("Language = %q", cfg.Speech.Language)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "picturetalk.yaml", `
ollama:
  model: llava:13b
  timeout_ms: 90000
speech:
  provider: groq
images:
  dir: ./pics
audio:
  beep: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ollama.Model != "llava:13b" {
		t.Errorf("Model = %q", cfg.Ollama.Model)
	}
	if cfg.Ollama.Timeout() != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Ollama.Timeout())
	}
	if cfg.Ollama.Endpoint != "http://localhost:11434" {
		t.Errorf("unset keys should keep defaults, Endpoint = %q", cfg.Ollama.Endpoint)
	}
	if cfg.Speech.Provider != "groq" || cfg.Images.Dir != "./pics" || cfg.Audio.Beep {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PICTURETALK_OLLAMA_ENDPOINT", "http://gpu-box:11434")
	t.Setenv("PICTURETALK_OLLAMA_TIMEOUT_MS", "not-a-number")
	t.Setenv("PICTURETALK_IMAGES_LIST", "a.jpg, b.png,,")
	t.Setenv("PICTURETALK_AUDIO_BEEP", "false")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ollama.Endpoint != "http://gpu-box:11434" {
		t.Errorf("Endpoint = %q", cfg.Ollama.Endpoint)
	}
	if cfg.Ollama.TimeoutMS != 0 {
		t.Errorf("unparseable int should be ignored, got %d", cfg.Ollama.TimeoutMS)
	}
	if got := strings.Join(cfg.Images.List, "|"); got != "a.jpg|b.png" {
		t.Errorf("List = %q", got)
	}
	if cfg.Audio.Beep {
		t.Error("Beep should be overridden to false")
	}
	if cfg.Speech.DeepgramAPIKey != "dg-key" {
		t.Errorf("DeepgramAPIKey = %q", cfg.Speech.DeepgramAPIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad provider", "speech:\n  provider: whisper\n", "speech.provider"},
		{"bad endpoint", "ollama:\n  endpoint: localhost:11434\n", "ollama.endpoint"},
		{"negative timeout", "ollama:\n  timeout_ms: -1\n", "timeout_ms"},
		{"dir and list", "images:\n  dir: x\n  list: [a.jpg]\n", "mutually exclusive"},
		{"silence level", "audio:\n  silence_level_min: 101\n", "silence_level_min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "GROQ_API_KEY=from-file\nPICTURETALK_OLLAMA_MODEL=bakllava\n")
	t.Setenv("GROQ_API_KEY", "")
	os.Unsetenv("GROQ_API_KEY")
	t.Setenv("PICTURETALK_OLLAMA_MODEL", "already-set")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GROQ_API_KEY") })

	if got := os.Getenv("GROQ_API_KEY"); got != "from-file" {
		t.Errorf("GROQ_API_KEY = %q", got)
	}
	if got := os.Getenv("PICTURETALK_OLLAMA_MODEL"); got != "already-set" {
		t.Errorf("existing variables must win, got %q", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("missing default .env should be ignored: %v", err)
	}
	if err := LoadEnvFile("does-not-exist.env"); err == nil {
		t.Error("missing explicit env file should fail")
	}
}
