package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"picturetalk/assess"
	"picturetalk/audio"
	"picturetalk/clipboard"
	"picturetalk/gallery"
	"picturetalk/level"
	"picturetalk/speech"
	"picturetalk/traced"
)

const feedChunk = 6400 // 200ms of 16kHz mono PCM16

var errNoSpeech = errors.New("no speech recognized")

// Options carries the pieces the checks exercise. Nil pieces are reported
// together with the matching *Err field.
type Options struct {
	Out io.Writer
	In  io.Reader // when set, wait for Enter before listening

	Gallery    *gallery.Gallery
	GalleryErr error

	Ollama *assess.Client

	Audio  audio.Context
	Device *audio.DeviceInfo
	Listen time.Duration

	Recognizer    speech.Recognizer
	RecognizerErr error
	Speech        speech.Config

	Clipboard bool
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Listen <= 0 {
		opts.Listen = 3 * time.Second
	}
	d := &doctor{opts: opts}

	checks := []check{
		{"Images", d.checkImages},
		{"Ollama", d.checkOllama},
		{"Microphone level", d.checkMicrophone},
		{"Speech recognition", d.checkRecognition},
	}
	if opts.Clipboard {
		checks = append(checks, check{"Clipboard", d.checkClipboard})
	}

	fmt.Fprintln(opts.Out, "picturetalk doctor - system diagnostics")
	fmt.Fprintln(opts.Out, "=======================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintln(opts.Out)
		fmt.Fprintf(opts.Out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		detail, err := c.run(ctx)
		if err != nil {
			allPass = false
			fmt.Fprintf(opts.Out, "  FAIL: %v\n", err)
			continue
		}
		fmt.Fprintf(opts.Out, "  PASS: %s\n", detail)
	}

	fmt.Fprintln(opts.Out)
	if allPass {
		fmt.Fprintln(opts.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(opts.Out, "Some checks failed. See details above.")
	return 1
}

type doctor struct {
	opts Options

	// audio captured by the microphone check, replayed to the recognizer
	pcm []byte
}

func (d *doctor) checkImages(ctx context.Context) (string, error) {
	if d.opts.Gallery == nil {
		return "", fmt.Errorf("no images: %w", d.opts.GalleryErr)
	}
	client := traced.New()
	images := d.opts.Gallery.Images()
	var failed []string
	for _, img := range images {
		if _, err := assess.FetchImage(ctx, client, img); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return "", fmt.Errorf("%d of %d images unreadable, first: %s", len(failed), len(images), failed[0])
	}
	return fmt.Sprintf("%d images readable", len(images)), nil
}

func (d *doctor) checkOllama(ctx context.Context) (string, error) {
	c := d.opts.Ollama
	if c == nil {
		return "", errors.New("no Ollama client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	modelfile, err := c.Show(ctx, c.Model())
	if err != nil {
		return "", err
	}
	detail := fmt.Sprintf("model %s available at %s", c.Model(), c.Endpoint())
	for _, line := range strings.Split(modelfile, "\n") {
		if strings.HasPrefix(line, "FROM ") {
			detail += " (" + strings.TrimSpace(line) + ")"
			break
		}
	}
	return detail, nil
}

func (d *doctor) checkMicrophone(ctx context.Context) (string, error) {
	if d.opts.Audio == nil {
		return "", errors.New("no audio backend")
	}
	if d.opts.In != nil {
		fmt.Fprintf(d.opts.Out, "Press Enter and describe something for %s...", d.opts.Listen)
		bufio.NewReader(d.opts.In).ReadString('\n')
	}

	pcm, peak, err := listen(ctx, level.NewMonitor(d.opts.Audio, d.opts.Device), d.opts.Listen)
	if err != nil {
		return "", err
	}
	d.pcm = pcm
	if len(pcm) == 0 {
		return "", errors.New("no audio captured")
	}
	if peak <= level.ActiveThreshold {
		return "", fmt.Errorf("peak level %.0f never rose above the silence floor; check the input volume", peak)
	}
	return fmt.Sprintf("peak level %.0f, %.1f KB captured", peak, float64(len(pcm))/1024), nil
}

func listen(ctx context.Context, mon *level.Monitor, d time.Duration) ([]byte, float64, error) {
	var mu sync.Mutex
	var pcm []byte
	var peak float64

	mon.Tap(func(b []byte) {
		mu.Lock()
		pcm = append(pcm, b...)
		mu.Unlock()
	})
	ind := level.IndicatorFunc(func(lvl float64, _ bool) {
		mu.Lock()
		peak = max(peak, lvl)
		mu.Unlock()
	})
	if err := mon.Start(ind, nil); err != nil {
		return nil, 0, err
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	mon.Stop(nil)
	mon.Tap(nil)

	mu.Lock()
	defer mu.Unlock()
	return pcm, peak, ctx.Err()
}

func (d *doctor) checkRecognition(ctx context.Context) (string, error) {
	if d.opts.Recognizer == nil {
		err := d.opts.RecognizerErr
		if err == nil {
			err = speech.ErrNoBackend
		}
		return "", err
	}
	if len(d.pcm) == 0 {
		return "", errors.New("skipped, no audio from the microphone check")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	text, err := transcribe(ctx, speech.NewSession(d.opts.Recognizer, d.opts.Speech), d.pcm)
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.opts.Recognizer.Name(), err)
	}
	return fmt.Sprintf("%s heard %q", d.opts.Recognizer.Name(), text), nil
}

func transcribe(ctx context.Context, sess *speech.Session, pcm []byte) (string, error) {
	events, err := sess.Start(ctx)
	if err != nil {
		return "", err
	}
	for off := 0; off < len(pcm); off += feedChunk {
		sess.Feed(pcm[off:min(off+feedChunk, len(pcm))])
	}
	sess.Stop()

	for ev := range events {
		switch ev.Kind {
		case speech.EventResult:
			sess.HandleResult(ev.Results)
		case speech.EventError:
			return "", sess.HandleError(ev.Err)
		}
	}
	text, ok := sess.HandleEnd()
	if !ok {
		return "", errNoSpeech
	}
	return text, nil
}

func (d *doctor) checkClipboard(_ context.Context) (string, error) {
	prev, _ := clipboard.Read()
	defer clipboard.Copy(prev)

	const sentinel = "picturetalk-doctor-test"
	if err := clipboard.Copy(sentinel); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return "", fmt.Errorf("read back: %w", err)
	}
	if got != sentinel {
		return "", fmt.Errorf("read back %q, want %q", got, sentinel)
	}
	return "copy and read back verified", nil
}
