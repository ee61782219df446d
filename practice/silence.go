package practice

import (
	"time"

	"picturetalk/level"
)

const (
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone  SilenceEvent = iota
	SilenceWarn               // no voice detected
	SilenceClear              // speech resumed after warning
)

// silenceMonitor watches the level samples of one recording attempt and
// flags a window with almost no voice in it.
type silenceMonitor struct {
	minLevel float64
	window   []bool
	ticks    int
	warned   bool
}

func newSilenceMonitor(warnAfter time.Duration, minLevel float64) *silenceMonitor {
	n := max(int(warnAfter/level.SampleInterval), 1)
	return &silenceMonitor{minLevel: minLevel, window: make([]bool, n)}
}

func (m *silenceMonitor) ratio() float64 {
	n := min(m.ticks, len(m.window))
	if n == 0 {
		return 1.0
	}
	count := 0
	for _, speech := range m.window[:n] {
		if speech {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Tick takes one level sample.
func (m *silenceMonitor) Tick(lvl float64) SilenceEvent {
	m.window[m.ticks%len(m.window)] = lvl >= m.minLevel
	m.ticks++

	r := m.ratio()
	if !m.warned && m.ticks >= len(m.window) && r < speechMinRatio {
		m.warned = true
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceClear
	}
	return SilenceNone
}
