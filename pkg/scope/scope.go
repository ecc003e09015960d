// Package scope draws the light level history as a Fyne widget.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/monitor"
	"github.com/itohio/plantguard/pkg/telemetry"
)

// ScopeWidget plots light readings over the monitor window. The band table
// is drawn behind the trace and alarm episodes are marked.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu       sync.RWMutex
	samples  []telemetry.Sample
	episodes []monitor.Episode
	stats    monitor.Stats
	shade    guard.Position

	// Display buffer (reused for downsampling)
	displaySamples []telemetry.Sample

	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		samples:          make([]telemetry.Sample, 0),
		episodes:         make([]monitor.Episode, 0),
		displaySamples:   make([]telemetry.Sample, 0, 1000),
		maxDisplayPoints: 1000,
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the plotted window. Call it from the monitor callback
// using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []telemetry.Sample, stats monitor.Stats, episodes []monitor.Episode) {
	s.mu.Lock()

	s.displaySamples = telemetry.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.samples = samples
	s.stats = stats
	s.episodes = episodes
	s.xMin, s.xMax = timeRange(s.displaySamples, s.window(), time.Now())

	s.mu.Unlock()

	// Refresh outside the lock; the renderer takes a read lock.
	s.Refresh()
}

// SetShade records the shade position shown in the overlay.
func (s *ScopeWidget) SetShade(p guard.Position) {
	s.mu.Lock()
	s.shade = p
	s.mu.Unlock()
	s.Refresh()
}

func (s *ScopeWidget) window() time.Duration {
	if s.cfg == nil {
		return 0
	}
	return time.Duration(s.cfg.Monitor.WindowSeconds * float64(time.Second))
}

// timeRange returns the x axis span. It is at least window long so a
// filling buffer scrolls in from the left.
func timeRange(samples []telemetry.Sample, window time.Duration, now time.Time) (time.Time, time.Time) {
	if window <= 0 {
		window = 10 * time.Second
	}
	if len(samples) == 0 {
		return now, now.Add(window)
	}
	xMin := samples[0].Timestamp
	xMax := samples[len(samples)-1].Timestamp
	if xMax.Sub(xMin) < window {
		xMax = xMin.Add(window)
	}
	return xMin, xMax
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
