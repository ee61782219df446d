// Package level turns live microphone input into a 0..100 loudness signal
// sampled every 50ms for the on-screen level indicator.
package level

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"picturetalk/audio"
	"picturetalk/encoder"
)

const (
	SampleInterval = 50 * time.Millisecond

	// ActiveThreshold is the level above which the indicator shows activity.
	ActiveThreshold = 20.0
)

// Indicator is the visual element the monitor drives.
type Indicator interface {
	SetLevel(level float64, active bool)
}

// ErrorSink receives microphone acquisition failures.
type ErrorSink interface {
	Report(err error)
}

type IndicatorFunc func(level float64, active bool)

func (f IndicatorFunc) SetLevel(level float64, active bool) { f(level, active) }

type ErrorSinkFunc func(err error)

func (f ErrorSinkFunc) Report(err error) { f(err) }

// PermissionError means the microphone could not be opened, whether it is
// missing, busy or access was denied.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("could not access microphone: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Level maps an average byte amplitude to the indicator scale.
func Level(average float64) float64 {
	return math.Max(0, math.Min(100, average*2+20))
}

func Average(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}

// Monitor owns the microphone for one recording attempt at a time. The
// captured PCM feeds its analyser and, through Tap, any other consumer.
type Monitor struct {
	ctx    audio.Context
	device *audio.DeviceInfo
	tap    atomic.Pointer[func([]byte)]

	mu       sync.Mutex
	capture  audio.CaptureDevice
	analyser *Analyser
	stop     chan struct{}
	done     chan struct{}
}

func NewMonitor(ctx audio.Context, device *audio.DeviceInfo) *Monitor {
	return &Monitor{ctx: ctx, device: device}
}

// SetDevice changes the device used by the next Start.
func (m *Monitor) SetDevice(device *audio.DeviceInfo) {
	m.mu.Lock()
	m.device = device
	m.mu.Unlock()
}

func (m *Monitor) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return m.device.Name
	}
	return "system default"
}

// Tap forwards every captured PCM chunk to fn. Pass nil to detach.
func (m *Monitor) Tap(fn func(pcm []byte)) {
	if fn == nil {
		m.tap.Store(nil)
		return
	}
	m.tap.Store(&fn)
}

// Start opens the microphone and begins sampling into ind. Failures are
// reported to errs and returned as *PermissionError; nothing stays open.
func (m *Monitor) Start(ind Indicator, errs ErrorSink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capture != nil {
		return nil
	}

	fail := func(err error) error {
		perr := &PermissionError{Err: err}
		if errs != nil {
			errs.Report(perr)
		}
		return perr
	}

	capture, err := m.ctx.NewCapture(m.device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return fail(err)
	}

	analyser := NewAnalyser()
	capture.SetCallback(func(data []byte, _ uint32) {
		analyser.Write(data)
		if fn := m.tap.Load(); fn != nil {
			(*fn)(data)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return fail(err)
	}

	m.capture = capture
	m.analyser = analyser
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.sample(analyser, ind, m.stop, m.done)
	return nil
}

func (m *Monitor) sample(a *Analyser, ind Indicator, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()
	bins := make([]byte, BinCount)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		n := a.ByteFrequencyData(bins)
		lvl := Level(Average(bins[:n]))
		if ind != nil {
			ind.SetLevel(lvl, lvl > ActiveThreshold)
		}
	}
}

// Stop halts sampling, zeroes the indicator and releases the microphone.
// It is safe to call at any time, including after a failed Start.
func (m *Monitor) Stop(ind Indicator) {
	m.mu.Lock()
	capture, stop, done := m.capture, m.stop, m.done
	m.capture, m.analyser, m.stop, m.done = nil, nil, nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if ind != nil {
		ind.SetLevel(0, false)
	}
	if capture != nil {
		capture.Stop()
		capture.ClearCallback()
		capture.Close()
	}
}

// Running reports whether the microphone is currently held.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture != nil
}
