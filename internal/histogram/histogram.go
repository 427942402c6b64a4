// Package histogram provides a fixed-range integer histogram.
package histogram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange indicates right < left.
	ErrInvalidRange = errors.New("histogram: right border must not be smaller than left border")

	// ErrOutOfRange indicates a value outside [left, right].
	ErrOutOfRange = errors.New("histogram: value outside of histogram range")
)

// BinHit pairs a bin value with its hit count.
type BinHit struct {
	Bin  int
	Hits uint64
}

// Histogram counts hits of integer values in the inclusive range [left, right],
// one bin per value.
type Histogram struct {
	left  int
	right int
	hits  []uint64
}

// New creates an empty histogram covering [left, right].
func New(left, right int) (*Histogram, error) {
	if right < left {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, left, right)
	}
	return &Histogram{
		left:  left,
		right: right,
		hits:  make([]uint64, right-left+1),
	}, nil
}

// Left returns the smallest value covered.
func (h *Histogram) Left() int { return h.left }

// Right returns the largest value covered.
func (h *Histogram) Right() int { return h.right }

// BinCount returns the number of bins.
func (h *Histogram) BinCount() int { return len(h.hits) }

// Contains reports whether v falls inside the histogram.
func (h *Histogram) Contains(v int) bool {
	return v >= h.left && v <= h.right
}

// Index maps v to its bin index.
func (h *Histogram) Index(v int) (int, error) {
	if !h.Contains(v) {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v, h.left, h.right)
	}
	return v - h.left, nil
}

// Increment counts one hit for v.
func (h *Histogram) Increment(v int) error {
	idx, err := h.Index(v)
	if err != nil {
		return err
	}
	h.hits[idx]++
	return nil
}

// IncrementQuiet counts one hit for v and silently drops out-of-range values.
func (h *Histogram) IncrementQuiet(v int) {
	if h.Contains(v) {
		h.hits[v-h.left]++
	}
}

// IncrementIndex counts one hit for the bin at idx.
func (h *Histogram) IncrementIndex(idx int) {
	h.hits[idx]++
}

// Hits returns a copy of the per-bin hit counts.
func (h *Histogram) Hits() []uint64 {
	out := make([]uint64, len(h.hits))
	copy(out, h.hits)
	return out
}

// HitsAt returns the hit count of the bin at idx.
func (h *Histogram) HitsAt(idx int) uint64 {
	return h.hits[idx]
}

// BinHits returns every bin with its count, in bin order.
func (h *Histogram) BinHits() []BinHit {
	out := make([]BinHit, len(h.hits))
	for i, hits := range h.hits {
		out[i] = BinHit{Bin: h.left + i, Hits: hits}
	}
	return out
}

// Total returns the sum of all hits.
func (h *Histogram) Total() uint64 {
	var total uint64
	for _, hits := range h.hits {
		total += hits
	}
	return total
}

// AnyBinZero reports whether at least one bin has not been hit yet.
func (h *Histogram) AnyBinZero() bool {
	for _, hits := range h.hits {
		if hits == 0 {
			return true
		}
	}
	return false
}

// Reset zeroes all bins.
func (h *Histogram) Reset() {
	clear(h.hits)
}

// Clone returns an independent copy.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{
		left:  h.left,
		right: h.right,
		hits:  h.Hits(),
	}
}
