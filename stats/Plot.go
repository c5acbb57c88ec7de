package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/trustpvp/botgo/utils/floatutils"
)

// Plot canvas geometry
const (
	plotW      = 800
	plotH      = 400
	plotMargin = 40.0
)

// WritePlots renders the reward and score histories as PNG line charts
// under dir, creating dir if needed. Series with fewer than two points
// are skipped.
func (t *Tracker) WritePlots(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writeplots: could not create plot directory: %v",
			err)
	}

	t.mu.Lock()
	rewards := append([]float64(nil), t.rewards...)
	scores := append([]float64(nil), t.scores...)
	t.mu.Unlock()

	plots := []struct {
		file   string
		title  string
		values []float64
	}{
		{"rewards.png", "Shaped reward per round", rewards},
		{"scores.png", "Final score per game", scores},
	}
	for _, p := range plots {
		if len(p.values) < 2 {
			continue
		}
		path := filepath.Join(dir, p.file)
		if err := plotSeries(path, p.title, p.values); err != nil {
			return fmt.Errorf("writeplots: %v", err)
		}
	}
	return nil
}

// plotSeries renders a single line chart to path
func plotSeries(path, title string, values []float64) error {
	dc := gg.NewContext(plotW, plotH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Axes
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.SetLineWidth(1)
	dc.DrawLine(plotMargin, plotMargin, plotMargin, plotH-plotMargin)
	dc.DrawLine(plotMargin, plotH-plotMargin, plotW-plotMargin,
		plotH-plotMargin)
	dc.Stroke()
	dc.DrawString(title, plotMargin, plotMargin-10)

	lo := floatutils.Min(values...)
	hi := floatutils.Max(values...)
	if hi == lo {
		// Flat series: pad the range so the line sits mid-chart
		hi, lo = hi+1, lo-1
	}

	toX := func(i int) float64 {
		return plotMargin + float64(i)/float64(len(values)-1)*
			(plotW-2*plotMargin)
	}
	toY := func(v float64) float64 {
		return plotH - plotMargin - (v-lo)/(hi-lo)*(plotH-2*plotMargin)
	}

	dc.SetRGB(0.12, 0.36, 0.66)
	dc.SetLineWidth(1.5)
	dc.MoveTo(toX(0), toY(values[0]))
	for i := 1; i < len(values); i++ {
		dc.LineTo(toX(i), toY(values[i]))
	}
	dc.Stroke()

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("plotseries: could not save %v: %v", path, err)
	}
	return nil
}
