package beep

import (
	"math"
	"testing"
)

func TestToneLengthAndDecay(t *testing.T) {
	s := tone(1000, 0.1, 0.5, 40)
	if len(s) != 4410 {
		t.Fatalf("len = %d, want 4410", len(s))
	}
	peak := func(from, to int) int {
		m := 0
		for _, v := range s[from:to] {
			m = max(m, int(math.Abs(float64(v))))
		}
		return m
	}
	head, tail := peak(0, 441), peak(len(s)-441, len(s))
	if head <= tail {
		t.Errorf("no decay: head peak %d, tail peak %d", head, tail)
	}
	if head > int(math.Floor(32767*0.5))+1 {
		t.Errorf("head peak %d exceeds volume", head)
	}
}

func TestDoubleBeep(t *testing.T) {
	beep := tone(errorFreq, errorBeep, errorVolume, errorDecay)
	d := doubleBeep(errorFreq, errorBeep, errorGap, errorVolume, errorDecay)
	gap := int(sampleRate * errorGap)
	if len(d) != 2*len(beep)+gap {
		t.Fatalf("len = %d, want %d", len(d), 2*len(beep)+gap)
	}
	for i, v := range d[len(beep) : len(beep)+gap] {
		if v != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, v)
		}
	}
}

func TestStereoAndBytes(t *testing.T) {
	mono := []int16{1, -2, 0x1234}
	st := stereo(mono)
	want := []int16{1, 1, -2, -2, 0x1234, 0x1234}
	for i := range want {
		if st[i] != want[i] {
			t.Fatalf("stereo = %v, want %v", st, want)
		}
	}

	b := le16(mono)
	wantBytes := []byte{0x01, 0x00, 0xfe, 0xff, 0x34, 0x12}
	for i := range wantBytes {
		if b[i] != wantBytes[i] {
			t.Fatalf("le16 = % x, want % x", b, wantBytes)
		}
	}
}
