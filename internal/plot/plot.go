// Package plot renders snapshots as terminal charts for headless runs.
package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/thebtf/coinscope/pkg/models"
)

var palette = []asciigraph.AnsiColor{
	asciigraph.Default,
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Blue,
	asciigraph.Yellow,
}

// Render draws the density curves and the log_f history of snap.
// Missing points become gaps; curves with fewer than two data points are
// left out.
func Render(snap models.Snapshot, width, height int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "session %s  N=%d  elapsed %.1fs", snap.SessionID, snap.Params.N, snap.Elapsed)
	if snap.Paused {
		b.WriteString("  PAUSED")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "adaptive %d steps (log_f %.3g)  refinement %d steps (%d refinements)  direct %d samples\n\n",
		snap.Progress.AdaptiveSteps, snap.Progress.LogF,
		snap.Progress.RefinementSteps, snap.Progress.Refinements,
		snap.Progress.DirectSamples)

	curves := []models.DisplayCurve{snap.Analytic, snap.Adaptive, snap.Refinement, snap.Direct}
	if snap.Reference != nil {
		curves = append(curves, *snap.Reference)
	}
	b.WriteString(chart(curves, "probability", width, height))
	b.WriteString("\n\n")
	b.WriteString(chart([]models.DisplayCurve{snap.LogF}, "log_f", width, height/2+1))
	b.WriteString("\n")
	return b.String()
}

func chart(curves []models.DisplayCurve, caption string, width, height int) string {
	var (
		series  [][]float64
		colors  []asciigraph.AnsiColor
		legends []string
	)
	for _, c := range curves {
		if len(c.Present()) < 2 {
			continue
		}
		series = append(series, gaps(c.Ys()))
		colors = append(colors, palette[len(colors)%len(palette)])
		legends = append(legends, c.Name)
	}
	if len(series) == 0 {
		return caption + ": no data"
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption+" ("+strings.Join(legends, ", ")+")"),
	)
	return graph
}

// gaps maps every non-finite value to NaN, which asciigraph leaves blank.
func gaps(ys []float64) []float64 {
	for i, y := range ys {
		if math.IsInf(y, 0) {
			ys[i] = math.NaN()
		}
	}
	return ys
}
