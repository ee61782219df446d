package level

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	FFTSize     = 256
	BinCount    = FFTSize / 2
	Smoothing   = 0.8
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

const pcm16FullScale = 32768.0

// Analyser keeps the most recent FFTSize samples and turns them into
// byte-scaled frequency magnitudes the way a browser AnalyserNode does:
// Blackman window, magnitude smoothing over time, decibel range mapped
// onto 0..255.
type Analyser struct {
	mu       sync.Mutex
	fft      *fourier.FFT
	window   [FFTSize]float64
	ring     [FFTSize]float64
	pos      int
	smoothed [BinCount]float64
	frame    []float64
	coeffs   []complex128
}

func NewAnalyser() *Analyser {
	a := &Analyser{
		fft:    fourier.NewFFT(FFTSize),
		frame:  make([]float64, FFTSize),
		coeffs: make([]complex128, FFTSize/2+1),
	}
	for i := range a.window {
		x := 2 * math.Pi * float64(i) / FFTSize
		a.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return a
}

// Write appends little-endian PCM16 samples.
func (a *Analyser) Write(pcm []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		a.ring[a.pos] = float64(s) / pcm16FullScale
		a.pos = (a.pos + 1) % FFTSize
	}
}

// ByteFrequencyData fills dst (up to BinCount entries) with the current
// spectrum and returns the number of bins written. Each call advances the
// smoothing state.
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range FFTSize {
		a.frame[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	n := min(len(dst), BinCount)
	scale := 255 / (MaxDecibels - MinDecibels)
	for k := range BinCount {
		mag := cmplx.Abs(a.coeffs[k]) / FFTSize
		a.smoothed[k] = Smoothing*a.smoothed[k] + (1-Smoothing)*mag
		if k >= n {
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(scale * (db - MinDecibels))
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		dst[k] = byte(v)
	}
	return n
}
