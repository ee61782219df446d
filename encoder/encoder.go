package encoder

import "encoding/binary"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Samples decodes little-endian PCM16 bytes. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// DurationMs is the length of a mono PCM16 buffer at SampleRate.
func DurationMs(pcm []byte) int {
	return len(pcm) / 2 * 1000 / SampleRate
}
