package audio

import "strings"

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth reports whether a device name looks like a bluetooth headset.
// Those fall back to a narrowband profile while the mic is open, which hurts
// recognition noticeably.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives little-endian PCM16 frames from the capture device.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is one open microphone stream. Close releases the
// underlying hardware stream; a closed device cannot be restarted.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// unavailable stands in for a backend that failed to initialize, so the
// rest of the program runs and every capture attempt reports why.
type unavailable struct{ err error }

// Unavailable returns a Context whose Devices and NewCapture fail with err.
func Unavailable(err error) Context { return unavailable{err} }

func (u unavailable) Devices() ([]DeviceInfo, error) { return nil, u.err }
func (u unavailable) Close()                         {}

func (u unavailable) NewCapture(*DeviceInfo, CaptureConfig) (CaptureDevice, error) {
	return nil, u.err
}
