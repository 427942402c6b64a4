// Package density turns raw estimator output into comparable display curves.
//
// Every input is a log10 curve over head counts 0..N. The pipeline
//  1. normalizes it so that the linear values sum to one,
//  2. optionally replaces it with the pairwise view 10^-|c[i]-c[i+1]|,
//  3. maps it to the selected scale (log10 or linear), and
//  4. assigns x = index / len(input) so curves of different lengths share
//     the unit x-axis.
//
// NaN marks a bin without data. It survives every step and must be skipped
// by renderers, never drawn as zero.
package density

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/thebtf/coinscope/pkg/models"
)

// NormalizeLog10SumTo1 shifts a log10 curve in place so that the sum of
// 10^v over all non-NaN entries is one. Curves without finite entries are
// left unchanged.
func NormalizeLog10SumTo1(curve []float64) {
	ln := make([]float64, 0, len(curve))
	for _, v := range curve {
		if !math.IsNaN(v) {
			ln = append(ln, v*math.Ln10)
		}
	}
	if len(ln) == 0 {
		return
	}
	lse := floats.LogSumExp(ln)
	if math.IsInf(lse, 0) {
		return
	}
	shift := lse / math.Ln10
	for i := range curve {
		curve[i] -= shift
	}
}

// Normalized returns a normalized copy of curve.
func Normalized(curve []float64) []float64 {
	out := make([]float64, len(curve))
	copy(out, curve)
	NormalizeLog10SumTo1(out)
	return out
}

// Pairwise returns the N-entry log10 pairwise view of an (N+1)-entry log10
// curve: entry i is -|c[i] - c[i+1]|, the log10 of 10^-|c[i]-c[i+1]|.
// Curves with fewer than two entries have no pairwise view.
func Pairwise(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, len(curve)-1)
	for i := range out {
		out[i] = -math.Abs(curve[i] - curve[i+1])
	}
	return out
}

// ToLinear exponentiates a log10 curve in place.
func ToLinear(curve []float64) {
	for i, v := range curve {
		curve[i] = math.Pow(10, v)
	}
}

// Transform runs the full pipeline on a log10 curve. The input is not
// modified.
func Transform(name string, curve []float64, opts *models.Options) models.DisplayCurve {
	values := Normalized(curve)
	if opts.Pairwise {
		values = Pairwise(values)
	}
	if opts.Scale == models.ScaleLinear {
		ToLinear(values)
	}
	return MapX(name, values, len(curve))
}

// MapX pairs every value with x = index / originalLen.
func MapX(name string, values []float64, originalLen int) models.DisplayCurve {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{X: float64(i) / float64(originalLen), Y: v}
	}
	return models.DisplayCurve{Name: name, Points: points}
}

// HistogramCurve plots raw hit counts. In log scale bins with fewer than
// one hit become NaN.
func HistogramCurve(name string, hits []uint64, scale models.Scale) models.DisplayCurve {
	values := make([]float64, len(hits))
	for i, h := range hits {
		v := float64(h)
		if scale == models.ScaleLog {
			if v < 1 {
				v = math.NaN()
			} else {
				v = math.Log10(v)
			}
		}
		values[i] = v
	}
	return MapX(name, values, len(hits))
}

// LogFCurve plots the log_f series against elapsed simulation seconds,
// optionally as log10(log_f).
func LogFCurve(name string, samples []models.LogFSample, scale models.Scale) models.DisplayCurve {
	points := make([]models.Point, len(samples))
	for i, s := range samples {
		y := s.LogF
		if scale == models.ScaleLog {
			y = math.Log10(y)
		}
		points[i] = models.Point{X: s.Elapsed, Y: y}
	}
	return models.DisplayCurve{Name: name, Points: points}
}

// SumLinear returns the sum of 10^v over the non-NaN entries of a log10 curve.
func SumLinear(curve []float64) float64 {
	sum := 0.0
	for _, v := range curve {
		if !math.IsNaN(v) {
			sum += math.Pow(10, v)
		}
	}
	return sum
}
