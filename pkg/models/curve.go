// Package models contains domain models for coinscope.
package models

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Point is one (x, y) sample of a display curve.
// A non-finite Y means "no data point" and must be skipped by renderers.
type Point struct {
	X float64
	Y float64
}

// Missing reports whether the point carries no data.
func (p Point) Missing() bool {
	return math.IsNaN(p.Y) || math.IsInf(p.Y, 0)
}

// MarshalJSON encodes the point as a two-element array, writing null for
// missing values so browsers can leave a gap.
func (p Point) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 48)
	buf = append(buf, '[')
	buf = appendFloat(buf, p.X)
	buf = append(buf, ',')
	buf = appendFloat(buf, p.Y)
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON decodes [x, y] with null mapped to NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw [2]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.X, p.Y = math.NaN(), math.NaN()
	if raw[0] != nil {
		p.X = *raw[0]
	}
	if raw[1] != nil {
		p.Y = *raw[1]
	}
	return nil
}

func appendFloat(buf []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, v, 'g', -1, 64)
}

// DisplayCurve is an ordered, plot-ready sequence of points.
// Curves are regenerated every tick and never persisted.
type DisplayCurve struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Len returns the number of points, including missing ones.
func (c DisplayCurve) Len() int {
	return len(c.Points)
}

// Ys returns the y values in order.
func (c DisplayCurve) Ys() []float64 {
	ys := make([]float64, len(c.Points))
	for i, p := range c.Points {
		ys[i] = p.Y
	}
	return ys
}

// Present returns the points that carry data.
func (c DisplayCurve) Present() []Point {
	out := make([]Point, 0, len(c.Points))
	for _, p := range c.Points {
		if !p.Missing() {
			out = append(out, p)
		}
	}
	return out
}

// LogFSample is one entry of the log_f convergence series.
type LogFSample struct {
	Elapsed float64 `json:"elapsed"` // seconds of simulation time, pauses excluded
	LogF    float64 `json:"log_f"`
}
