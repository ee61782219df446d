package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const diagnosticsFile = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady atomic.Bool
	dir      string
)

// ResolveDir picks the log directory: the -logpath flag first, then
// PICTURETALK_LOG_PATH, then the OS default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv("PICTURETALK_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, diagnosticsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = f

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", os.Getpid()).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(attempt, provider, device string) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("attempt", attempt).
		Str("provider", provider).
		Str("device", device).
		Msg("session_start")
}

// SessionEnd records how a recording attempt finished: "submitted",
// "no_speech", "mic_error", "start_error", "recognition_error" or "aborted".
func SessionEnd(attempt, outcome string, chars int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("attempt", attempt).
		Str("outcome", outcome).
		Int("chars", chars).
		Msg("session_end")
}

type RecognitionData struct {
	ConnectMs    float64
	FinalizeMs   float64
	TotalMs      float64
	AudioS       float64
	SentChunks   int
	SentKB       float64
	RecvMessages int
	RecvFinal    int
}

func RecognitionMetrics(provider string, m RecognitionData) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Float64("connect_ms", m.ConnectMs).
		Float64("finalize_ms", m.FinalizeMs).
		Float64("total_ms", m.TotalMs).
		Float64("audio_s", m.AudioS).
		Int("sent_chunks", m.SentChunks).
		Float64("sent_kb", m.SentKB).
		Int("recv_messages", m.RecvMessages).
		Int("recv_final", m.RecvFinal).
		Msg("recognition")
}

type AssessmentData struct {
	Model            string
	ImageKB          float64
	PromptTokens     int
	CompletionTokens int
	DNSMs            float64
	ConnectMs        float64
	TTFBMs           float64
	TotalMs          float64
	ConnReused       bool
}

func AssessmentMetrics(m AssessmentData) {
	if !logReady.Load() {
		return
	}
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	diagLog.Info().
		Str("model", m.Model).
		Str("conn", conn).
		Float64("image_kb", m.ImageKB).
		Int("prompt_tokens", m.PromptTokens).
		Int("completion_tokens", m.CompletionTokens).
		Int("total_tokens", m.PromptTokens+m.CompletionTokens).
		Float64("dns_ms", m.DNSMs).
		Float64("connect_ms", m.ConnectMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("assessment")
}
