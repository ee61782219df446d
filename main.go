package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"picturetalk/assess"
	"picturetalk/audio"
	"picturetalk/beep"
	"picturetalk/clipboard"
	"picturetalk/config"
	"picturetalk/doctor"
	"picturetalk/encoder"
	"picturetalk/gallery"
	"picturetalk/level"
	"picturetalk/log"
	"picturetalk/practice"
	"picturetalk/shutdown"
	"picturetalk/speech"
)

var version = "dev"

// program holds everything resolved from flags and configuration before a
// front end is chosen.
type program struct {
	cfg config.Config

	gallery    *gallery.Gallery
	galleryErr error

	recognizer    speech.Recognizer
	recognizerErr error
	speech        speech.Config

	ollama *assess.Client

	device     string
	setup      bool
	gui        bool
	doctor     bool
	testWAV    string
	fakeSpeech bool
}

func setup() *program {
	configFlag := flag.String("config", "", "YAML config file")
	envFlag := flag.String("env", "", "env file with API keys (default: ./.env when present)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	imagesFlag := flag.String("images", "", "Directory of images to describe")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	fakeSpeechFlag := flag.Bool("fakespeech", false, "In test mode, take recognition results from stdin instead of a service")
	guiFlag := flag.Bool("gui", false, "Run in a desktop window (requires a build with -tags gui)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("picturetalk %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if err := config.LoadEnvFile(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *imagesFlag != "" {
		cfg.Images.Dir, cfg.Images.List = *imagesFlag, nil
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}

	p := &program{
		cfg:        cfg,
		device:     cfg.Audio.Device,
		setup:      *setupFlag,
		gui:        *guiFlag,
		doctor:     *doctorFlag,
		fakeSpeech: *fakeSpeechFlag,
		speech: speech.Config{
			Language:   cfg.Speech.Language,
			SampleRate: encoder.SampleRate,
			Channels:   encoder.Channels,
		},
	}
	if *testFlag {
		if flag.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "Usage: picturetalk -test <wav-file>")
			os.Exit(1)
		}
		p.testWAV = flag.Arg(0)
	}

	p.gallery, p.galleryErr = gallery.Open(cfg.Images.Dir, cfg.Images.List)
	if p.galleryErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", p.galleryErr)
		if !p.doctor {
			os.Exit(1)
		}
	}

	p.recognizer, p.recognizerErr = speech.New(speech.Options{
		Provider:      cfg.Speech.Provider,
		DeepgramKey:   cfg.Speech.DeepgramAPIKey,
		DeepgramModel: cfg.Speech.DeepgramModel,
		GroqKey:       cfg.Speech.GroqAPIKey,
		GroqModel:     cfg.Speech.GroqModel,
	})
	if p.recognizerErr != nil {
		log.Warnf("speech recognition unavailable: %v", p.recognizerErr)
	}

	p.ollama = assess.New(cfg.Ollama.Endpoint, cfg.Ollama.Model, assess.WithTimeout(cfg.Ollama.Timeout()))

	if !cfg.Audio.Beep {
		beep.Disable()
	}
	return p
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run(p *program) {
	defer log.Close()

	if p.doctor {
		code := runDoctor(p)
		log.Close()
		os.Exit(code)
	}
	if p.testWAV != "" {
		runTestMode(p)
		return
	}

	actx, err := audio.NewContext()
	if err != nil {
		// Without audio the image and assessment views still work; Record
		// reports the microphone error.
		log.Errorf("audio context init error: %v", err)
		actx = audio.Unavailable(err)
	}
	defer actx.Close()
	dev := p.resolveDevice(actx)

	go beep.Init()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	if err := runTUI(ctx, p.options(level.NewMonitor(actx, dev))); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveDevice turns -device, the config file and -setup into a capture
// device. Nil means the system default.
func (p *program) resolveDevice(actx audio.Context) *audio.DeviceInfo {
	if p.device != "" {
		dev, err := audio.FindDevice(actx, p.device)
		if err != nil {
			log.Warnf("device %q: %v", p.device, err)
			fmt.Printf("Warning: %v, falling back to default device\n", err)
			return nil
		}
		return dev
	}
	if p.setup {
		dev, err := audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			return nil
		}
		return dev
	}
	return nil
}

// options wires the configured pieces into the controller.
func (p *program) options(mon *level.Monitor) practice.Options {
	log.Info("recording_device: " + mon.DeviceName())
	return practice.Options{
		Recognizer:      p.recognizer,
		Unavailable:     p.recognizerErr,
		Speech:          p.speech,
		Monitor:         mon,
		Assessor:        p.ollama,
		Gallery:         p.gallery,
		Sounds:          beep.Cues{},
		Copy:            clipboard.Copy,
		Open:            openImage,
		SilenceWarn:     p.cfg.Audio.SilenceWarn(),
		SilenceLevelMin: float64(p.cfg.Audio.SilenceLevelMin),
	}
}

func runDoctor(p *program) int {
	opts := doctor.Options{
		Out:           os.Stdout,
		In:            os.Stdin,
		Gallery:       p.gallery,
		GalleryErr:    p.galleryErr,
		Ollama:        p.ollama,
		Recognizer:    p.recognizer,
		RecognizerErr: p.recognizerErr,
		Speech:        p.speech,
		Clipboard:     true,
	}
	if p.testWAV != "" {
		fake, err := audio.NewFakeContextFromWAV(p.testWAV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			return 1
		}
		opts.Audio, opts.In = fake, nil
	} else if actx, err := audio.NewContext(); err == nil {
		defer actx.Close()
		opts.Audio = actx
		opts.Device = p.resolveDevice(actx)
	} else {
		log.Errorf("audio context init error: %v", err)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	return doctor.Run(ctx, opts)
}
