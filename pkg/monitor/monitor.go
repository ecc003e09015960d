// Package monitor keeps a sliding time window of classified light samples and
// derives dwell times, statistics and alarm episodes from it.
package monitor

import (
	"sync"
	"time"

	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
)

var _ LightMonitor = (*Monitor)(nil)

// Episode is a run of consecutive samples in an alarm band.
type Episode struct {
	StartIndex int        `json:"-"` // Start sample index in buffer
	EndIndex   int        `json:"-"` // End sample index in buffer (updated while the alarm lasts)
	StartTime  time.Time  `json:"start"`
	EndTime    time.Time  `json:"end"`
	Band       guard.Band `json:"band"`
}

// Duration returns how long the alarm has lasted so far.
func (e Episode) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// UpdateFunc receives the window, its statistics and the alarm episodes.
type UpdateFunc func(samples []telemetry.Sample, stats Stats, episodes []Episode)

// LightMonitor processes samples, maintains the window and detects alarm episodes.
type LightMonitor interface {
	ProcessSamples(input <-chan telemetry.Sample)
	Samples() []telemetry.Sample // Current window (FIFO, ordered first to last)
	Stats() Stats
	Episodes() []Episode
	Latest() (telemetry.Sample, bool)
	OnUpdate(UpdateFunc)
}

// Monitor implements LightMonitor. Samples are kept in timestamp order and
// removed once they fall out of the time window.
type Monitor struct {
	samples  []telemetry.Sample
	episodes []Episode

	mu sync.RWMutex

	callbacks []UpdateFunc
	cbMu      sync.RWMutex

	windowDuration time.Duration

	// shutdown is set when the input channel closes and suppresses callbacks.
	shutdown bool
}

// New creates a monitor with the configured window.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		samples:        make([]telemetry.Sample, 0),
		episodes:       make([]Episode, 0),
		windowDuration: time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second)),
	}
}

// Window returns the configured window length.
func (m *Monitor) Window() time.Duration {
	return m.windowDuration
}

// ProcessSamples consumes input until it closes, then stops notifying.
func (m *Monitor) ProcessSamples(input <-chan telemetry.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// Add processes a single sample synchronously.
func (m *Monitor) Add(s telemetry.Sample) {
	m.processSample(s)
}

func (m *Monitor) processSample(s telemetry.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)

	// Drop samples at or before the cutoff.
	cutoff := s.Timestamp.Add(-m.windowDuration)
	drop := 0
	for drop < len(m.samples)-1 && !m.samples[drop].Timestamp.After(cutoff) {
		drop++
	}
	if drop > 0 {
		m.samples = m.samples[drop:]
		m.shiftEpisodes(drop)
	}

	m.updateEpisodes()

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// shiftEpisodes moves episode indices after n samples were dropped from the
// front, discarding episodes that ended before the window.
func (m *Monitor) shiftEpisodes(n int) {
	valid := m.episodes[:0]
	for _, e := range m.episodes {
		e.StartIndex -= n
		e.EndIndex -= n
		if e.EndIndex < 0 {
			continue
		}
		if e.StartIndex < 0 {
			e.StartIndex = 0
			e.StartTime = m.samples[0].Timestamp
		}
		valid = append(valid, e)
	}
	m.episodes = valid
}

// updateEpisodes extends the running episode or starts a new one when the
// latest sample sounds the alarm.
func (m *Monitor) updateEpisodes() {
	last := len(m.samples) - 1
	s := m.samples[last]
	if !s.Alarm() {
		return
	}

	if n := len(m.episodes); n > 0 {
		e := &m.episodes[n-1]
		if e.EndIndex == last-1 && e.Band == s.Band {
			e.EndIndex = last
			e.EndTime = s.Timestamp
			return
		}
	}

	m.episodes = append(m.episodes, Episode{
		StartIndex: last,
		EndIndex:   last,
		StartTime:  s.Timestamp,
		EndTime:    s.Timestamp,
		Band:       s.Band,
	})
}

// Samples returns a copy of the current window.
func (m *Monitor) Samples() []telemetry.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]telemetry.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Episodes returns a copy of the alarm episodes within the window.
func (m *Monitor) Episodes() []Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Episode, len(m.episodes))
	copy(result, m.episodes)
	return result
}

// Stats summarizes the current window.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return computeStats(m.samples)
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() (telemetry.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.samples) == 0 {
		return telemetry.Sample{}, false
	}
	return m.samples[len(m.samples)-1], true
}

// OnUpdate registers a callback invoked after every processed sample.
// The callback should copy what it needs and return quickly.
func (m *Monitor) OnUpdate(callback UpdateFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again. Call it before starting a new chain.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// Reset clears the window and episodes.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = m.samples[:0]
	m.episodes = m.episodes[:0]
}

func (m *Monitor) notifyCallbacks() {
	m.mu.RLock()
	samples := make([]telemetry.Sample, len(m.samples))
	copy(samples, m.samples)
	episodes := make([]Episode, len(m.episodes))
	copy(episodes, m.episodes)
	stats := computeStats(m.samples)
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samples, stats, episodes)
		}
	}
}
