// Package config loads picturetalk settings from an optional YAML file,
// a .env file and PICTURETALK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type OllamaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"` // 0 waits forever
}

type SpeechConfig struct {
	Provider       string `yaml:"provider"` // auto, deepgram, groq
	Language       string `yaml:"language"`
	DeepgramModel  string `yaml:"deepgram_model"`
	GroqModel      string `yaml:"groq_model"`
	DeepgramAPIKey string `yaml:"-"`
	GroqAPIKey     string `yaml:"-"`
}

type ImagesConfig struct {
	Dir  string   `yaml:"dir"`
	List []string `yaml:"list"`
}

type AudioConfig struct {
	Device          string `yaml:"device"`
	Beep            bool   `yaml:"beep"`
	SilenceWarnMS   int    `yaml:"silence_warn_ms"`
	SilenceLevelMin int    `yaml:"silence_level_min"`
}

type LogConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Ollama OllamaConfig `yaml:"ollama"`
	Speech SpeechConfig `yaml:"speech"`
	Images ImagesConfig `yaml:"images"`
	Audio  AudioConfig  `yaml:"audio"`
	Log    LogConfig    `yaml:"log"`
}

func Default() Config {
	return Config{
		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
			Model:    "llava",
		},
		Speech: SpeechConfig{
			Provider:      "auto",
			Language:      "en-US",
			DeepgramModel: "nova-3",
			GroqModel:     "whisper-large-v3-turbo",
		},
		Audio: AudioConfig{
			Beep:            true,
			SilenceWarnMS:   5000,
			SilenceLevelMin: 30,
		},
	}
}

// Timeout is the assessment request deadline; zero means none.
func (c OllamaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c AudioConfig) SilenceWarn() time.Duration {
	return time.Duration(c.SilenceWarnMS) * time.Millisecond
}

// LoadEnvFile reads KEY=value pairs into the process environment without
// overriding variables that are already set. A missing file is not an error
// unless the caller asked for it by name.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Ollama.Endpoint, "PICTURETALK_OLLAMA_ENDPOINT")
	overrideString(&cfg.Ollama.Model, "PICTURETALK_OLLAMA_MODEL")
	overrideInt(&cfg.Ollama.TimeoutMS, "PICTURETALK_OLLAMA_TIMEOUT_MS")
	overrideString(&cfg.Speech.Provider, "PICTURETALK_SPEECH_PROVIDER")
	overrideString(&cfg.Speech.Language, "PICTURETALK_SPEECH_LANGUAGE")
	overrideString(&cfg.Speech.DeepgramModel, "PICTURETALK_SPEECH_DEEPGRAM_MODEL")
	overrideString(&cfg.Speech.GroqModel, "PICTURETALK_SPEECH_GROQ_MODEL")
	overrideString(&cfg.Speech.DeepgramAPIKey, "DEEPGRAM_API_KEY")
	overrideString(&cfg.Speech.GroqAPIKey, "GROQ_API_KEY")
	overrideString(&cfg.Images.Dir, "PICTURETALK_IMAGES_DIR")
	overrideStringSlice(&cfg.Images.List, "PICTURETALK_IMAGES_LIST")
	overrideString(&cfg.Audio.Device, "PICTURETALK_AUDIO_DEVICE")
	overrideBool(&cfg.Audio.Beep, "PICTURETALK_AUDIO_BEEP")
	overrideInt(&cfg.Audio.SilenceWarnMS, "PICTURETALK_AUDIO_SILENCE_WARN_MS")
	overrideInt(&cfg.Audio.SilenceLevelMin, "PICTURETALK_AUDIO_SILENCE_LEVEL_MIN")
	overrideString(&cfg.Log.Path, "PICTURETALK_LOG_PATH")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Ollama.Endpoint == "" {
		return errors.New("ollama.endpoint must not be empty")
	}
	if !strings.HasPrefix(cfg.Ollama.Endpoint, "http://") && !strings.HasPrefix(cfg.Ollama.Endpoint, "https://") {
		return errors.New("ollama.endpoint must be an http(s) URL")
	}
	if cfg.Ollama.Model == "" {
		return errors.New("ollama.model must not be empty")
	}
	if cfg.Ollama.TimeoutMS < 0 {
		return errors.New("ollama.timeout_ms must be >= 0")
	}
	switch cfg.Speech.Provider {
	case "auto", "deepgram", "groq":
	default:
		return errors.New("speech.provider must be one of auto|deepgram|groq")
	}
	if cfg.Speech.Language == "" {
		return errors.New("speech.language must not be empty")
	}
	if cfg.Images.Dir != "" && len(cfg.Images.List) > 0 {
		return errors.New("images.dir and images.list are mutually exclusive")
	}
	if cfg.Audio.SilenceWarnMS < 0 {
		return errors.New("audio.silence_warn_ms must be >= 0")
	}
	if cfg.Audio.SilenceLevelMin < 0 || cfg.Audio.SilenceLevelMin > 100 {
		return errors.New("audio.silence_level_min must be between 0 and 100")
	}
	return nil
}
