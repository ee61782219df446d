package practice

import (
	"testing"
	"time"
)

const (
	quiet = 20.0 // level of a silent microphone
	loud  = 80.0
)

// oneSecond warns after 20 samples at the 50ms level cadence.
func oneSecond() *silenceMonitor {
	return newSilenceMonitor(time.Second, 30)
}

func feedN(m *silenceMonitor, lvl float64, n int) SilenceEvent {
	var last SilenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(lvl)
	}
	return last
}

func TestSilenceWarnAfterWindow(t *testing.T) {
	m := oneSecond()
	for i := 0; i < 19; i++ {
		if ev := m.Tick(quiet); ev != SilenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(quiet); ev != SilenceWarn {
		t.Fatalf("expected SilenceWarn at tick 20, got %d", ev)
	}
	if ev := feedN(m, quiet, 40); ev != SilenceNone {
		t.Fatalf("warning repeated: %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := oneSecond()
	feedN(m, quiet, 20)

	// 25% of a 20-tick window is 5 ticks of speech.
	for i := 0; i < 4; i++ {
		if ev := m.Tick(loud); ev != SilenceNone {
			t.Fatalf("cleared too early at tick %d", i)
		}
	}
	if ev := m.Tick(loud); ev != SilenceClear {
		t.Fatalf("expected SilenceClear, got %d", ev)
	}
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := oneSecond()
	for i := 0; i < 200; i++ {
		if ev := m.Tick(loud); ev == SilenceWarn {
			t.Fatalf("unexpected warn during speech at tick %d", i)
		}
	}
}

func TestSparseSpeechAvoidsWarning(t *testing.T) {
	m := oneSecond()
	for i := 0; i < 100; i++ {
		lvl := quiet
		if i%5 == 0 {
			lvl = loud
		}
		if ev := m.Tick(lvl); ev == SilenceWarn {
			t.Fatalf("warned with 20%% speech at tick %d", i)
		}
	}
}

func TestSilenceMinimumWindow(t *testing.T) {
	m := newSilenceMonitor(time.Millisecond, 30)
	if ev := m.Tick(quiet); ev != SilenceWarn {
		t.Fatalf("expected immediate warning with a one-sample window, got %d", ev)
	}
}
