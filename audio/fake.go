package audio

import (
	"errors"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 800 // 50ms at 16kHz
	fakeBytesPerFrame = 2   // 16-bit mono
)

// FakeContext replays a fixed PCM buffer as if it came from a microphone.
// Once the buffer runs out it keeps delivering silence until stopped.
type FakeContext struct {
	pcm []byte

	// CaptureErr and StartErr simulate a missing device and a denied
	// permission respectively.
	CaptureErr error
	StartErr   error

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

func NewFakeContextFromWAV(wavPath string) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) < WAVHeaderSize {
		return nil, errors.New("invalid WAV file")
	}
	return NewFakeContext(data[WAVHeaderSize:]), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	c := &FakeCapture{pcm: f.pcm, startErr: f.StartErr}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Captures returns every capture device handed out so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	pcm      []byte
	startErr error

	mu       sync.Mutex
	cb       DataCallback
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.closed {
		return errCaptureClosed
	}
	if f.running {
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	go f.feed(f.stopCh, f.feedDone)
	return nil
}

func (f *FakeCapture) feed(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := 50 * time.Millisecond
	silence := make([]byte, chunkBytes)
	pos := 0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		f.mu.Lock()
		cb := f.cb
		f.mu.Unlock()
		if cb == nil {
			continue
		}
		chunk := silence
		if pos < len(f.pcm) {
			end := min(pos+chunkBytes, len(f.pcm))
			chunk = make([]byte, end-pos)
			copy(chunk, f.pcm[pos:end])
			pos = end
		}
		cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	}
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.feedDone
	f.mu.Unlock()
	<-done
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.cb = nil
	f.mu.Unlock()
}

// Running reports whether the capture is currently delivering audio.
func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Released reports whether the device has been closed.
func (f *FakeCapture) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
