package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/monitor"
	"github.com/itohio/plantguard/pkg/telemetry"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	episodeColor = color.RGBA{R: 0, G: 100, B: 200, A: 255}
)

// indicatorColor maps an indicator LED to its trace colour.
func indicatorColor(c guard.Color) color.RGBA {
	switch c {
	case guard.ColorRed:
		return color.RGBA{R: 230, G: 60, B: 60, A: 255}
	case guard.ColorYellow:
		return color.RGBA{R: 240, G: 200, B: 40, A: 255}
	case guard.ColorGreen:
		return color.RGBA{R: 60, G: 200, B: 90, A: 255}
	}
	return color.RGBA{R: 120, G: 120, B: 120, A: 255}
}

// bandRegion is a horizontal strip of the plot covering one band.
type bandRegion struct {
	lo, hi int
	color  guard.Color
}

// bandRegions splits 0..100 into the strips of the band table.
func bandRegions() []bandRegion {
	regions := make([]bandRegion, 0, len(guard.Bands))
	lo := 0
	for _, p := range guard.Bands {
		hi := p.Max
		if hi == guard.Unbounded || hi > guard.PercentMax {
			hi = guard.PercentMax
		}
		regions = append(regions, bandRegion{lo: lo, hi: hi, color: p.Color})
		lo = hi
	}
	return regions
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	bg *canvas.Rectangle

	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// plot maps data coordinates into the drawing area.
type plot struct {
	x, y, w, h float32
	xMin, xMax time.Time
}

func (p plot) X(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plot) Y(percent int) float32 {
	return p.y + p.h - float32(percent)/float32(guard.PercentMax)*p.h
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	episodes := r.scope.episodes
	stats := r.scope.stats
	shade := r.scope.shade
	xMin, xMax := r.scope.xMin, r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}

	const (
		marginLeft   = 50
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	p := plot{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		xMin: xMin,
		xMax: xMax,
	}

	r.drawBands(p)
	r.drawGrid(p)
	r.drawEpisodes(p, samples, episodes)
	r.drawTrace(p, samples)
	r.drawStatus(p, samples, stats, shade)
}

// drawBands shades the band strips behind the trace.
func (r *scopeRenderer) drawBands(p plot) {
	for _, b := range bandRegions() {
		c := indicatorColor(b.color)
		c.A = 28
		rect := canvas.NewRectangle(c)
		top := p.Y(b.hi)
		rect.Move(fyne.NewPos(p.x, top))
		rect.Resize(fyne.NewSize(p.w, p.Y(b.lo)-top))
		r.objects = append(r.objects, rect)
	}
}

// drawGrid draws percent lines at the band bounds and time divisions.
func (r *scopeRenderer) drawGrid(p plot) {
	levels := []int{0}
	for _, b := range bandRegions() {
		levels = append(levels, b.hi)
	}
	for _, lvl := range levels {
		y := p.Y(lvl)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(p.x, y)
		line.Position2 = fyne.NewPos(p.x+p.w, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		text := canvas.NewText(fmt.Sprintf("%d%%", lvl), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const divisions = 10
	span := p.xMax.Sub(p.xMin)
	for i := range divisions + 1 {
		x := p.x + float32(i)*p.w/divisions
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, p.y)
		line.Position2 = fyne.NewPos(x, p.y+p.h)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		offset := span * time.Duration(i) / divisions
		text := canvas.NewText(formatOffset(offset), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws the readings, each segment in the colour of its starting
// sample's indicator.
func (r *scopeRenderer) drawTrace(p plot, samples []telemetry.Sample) {
	for i := range len(samples) - 1 {
		a, b := samples[i], samples[i+1]
		line := canvas.NewLine(indicatorColor(a.Indicator))
		line.Position1 = fyne.NewPos(p.X(a.Timestamp), p.Y(a.Percent))
		line.Position2 = fyne.NewPos(p.X(b.Timestamp), p.Y(b.Percent))
		line.StrokeWidth = 2
		r.objects = append(r.objects, line)
	}
}

// drawEpisodes marks alarm episodes with start and end lines and a label.
func (r *scopeRenderer) drawEpisodes(p plot, samples []telemetry.Sample, episodes []monitor.Episode) {
	if len(samples) == 0 {
		return
	}
	for _, e := range episodes {
		for _, t := range []time.Time{e.StartTime, e.EndTime} {
			x := p.X(t)
			line := canvas.NewLine(episodeColor)
			line.Position1 = fyne.NewPos(x, p.y)
			line.Position2 = fyne.NewPos(x, p.y+p.h)
			line.StrokeWidth = 1
			r.objects = append(r.objects, line)
		}

		center := e.StartTime.Add(e.Duration() / 2)
		text := canvas.NewText(fmt.Sprintf("%s %s", e.Band, formatOffset(e.Duration())), episodeColor)
		text.TextSize = 11
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(p.X(center)-30, p.y+4))
		r.objects = append(r.objects, text)
	}
}

// drawStatus writes the latest reading and window summary in the corner.
func (r *scopeRenderer) drawStatus(p plot, samples []telemetry.Sample, stats monitor.Stats, shade guard.Position) {
	msg := "waiting for readings"
	c := labelColor
	if n := len(samples); n > 0 {
		last := samples[n-1]
		msg = statusLine(last, stats, shade)
		c = indicatorColor(last.Indicator)
	}
	text := canvas.NewText(msg, c)
	text.TextSize = 12
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(p.x+10, p.y+p.h-20))
	r.objects = append(r.objects, text)
}

func statusLine(last telemetry.Sample, stats monitor.Stats, shade guard.Position) string {
	line := fmt.Sprintf("%d%% %s", last.Percent, last.Band)
	if last.Alarm() {
		line += fmt.Sprintf(" alarm %d Hz", last.ToneHz)
	}
	if stats.Count > 0 {
		line += fmt.Sprintf("  min %d max %d mean %.1f", stats.Min, stats.Max, stats.Mean)
	}
	if stats.Span > 0 {
		line += fmt.Sprintf("  ideal %.0f%%", 100*stats.DwellFraction(guard.BandIdeal))
	}
	return line + "  shade " + shade.String()
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatOffset(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Truncate(time.Second).String()
}
