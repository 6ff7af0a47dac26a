// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"paraeq/internal/fifo"
)

// Frequency range covered by the horizontal axis of every curve.
const (
	MinDisplayFreq = 20.0
	MaxDisplayFreq = 20000.0

	// DefaultStride plots every second bin.
	DefaultStride = 2

	// maxCurvePoints bounds the preallocated size of a path slot: one point
	// per bin of the largest supported transform.
	maxCurvePoints = 1 << (Order8192 - 1)
)

// Rect is a render area in abstract units. Y grows downwards, so the top of
// the area is Y and the bottom is Y+Height.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns Y+Height.
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Point is one vertex of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is an open polyline ready for rendering. It has no identity; a new
// one replaces the previous one wholesale.
type Curve []Point

// MapFromLog10 maps v in [lo, hi] to [0, 1] on a logarithmic scale.
func MapFromLog10(v, lo, hi float64) float64 {
	return math.Log10(v/lo) / math.Log10(hi/lo)
}

// MapToLog10 is the inverse of MapFromLog10.
func MapToLog10(t, lo, hi float64) float64 {
	return lo * math.Pow(hi/lo, t)
}

// mapRange linearly maps v from [srcLo, srcHi] to [dstLo, dstHi].
func mapRange(v, srcLo, srcHi, dstLo, dstHi float64) float64 {
	return dstLo + (v-srcLo)*(dstHi-dstLo)/(srcHi-srcLo)
}

// FrequencyForX inverts the horizontal mapping used by PathGenerator.
func FrequencyForX(x float64, bounds Rect) float64 {
	return MapToLog10((x-bounds.X)/bounds.Width, MinDisplayFreq, MaxDisplayFreq)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PathGenerator turns decibel spectra into curves and queues them on its
// own ring. Only the newest curve matters to a renderer; older ones may be
// discarded unread.
type PathGenerator struct {
	stride  int
	scratch Curve
	ring    fifo.Ring[Point]
}

// NewPathGenerator returns a generator with DefaultStride.
func NewPathGenerator() *PathGenerator {
	g := &PathGenerator{
		stride:  DefaultStride,
		scratch: make(Curve, 0, maxCurvePoints),
	}
	g.ring.Prepare(fifo.DefaultCapacity, maxCurvePoints)
	return g
}

// SetStride changes the bin step. Values below 1 are treated as 1.
func (g *PathGenerator) SetStride(n int) {
	g.stride = max(1, n)
}

// Generate maps the first fftSize/2 magnitudes (decibels, one per bin) into
// bounds and queues the curve. The first vertex is bin 0 at the left edge;
// after that every stride-th bin from bin 1 is placed at
//
//	x = bounds.X + MapFromLog10(bin*binWidth, 20, 20000) * bounds.Width
//
// with y mapping [floorDB, 0] dB onto [bottom, top]. Vertices with a
// non-finite coordinate are omitted.
func (g *PathGenerator) Generate(magnitudes []float64, bounds Rect, fftSize int, binWidth, floorDB float64) {
	g.scratch = g.scratch[:0]
	numBins := min(len(magnitudes), fftSize/2)
	if numBins <= 0 {
		return
	}

	top, bottom := bounds.Y, bounds.Bottom()
	mapY := func(db float64) float64 {
		return mapRange(db, floorDB, 0, bottom, top)
	}

	if y := mapY(magnitudes[0]); finite(y) {
		g.scratch = append(g.scratch, Point{X: bounds.X, Y: y})
	}

	for bin := 1; bin < numBins; bin += g.stride {
		y := mapY(magnitudes[bin])
		if !finite(y) {
			continue
		}
		x := bounds.X + MapFromLog10(float64(bin)*binWidth, MinDisplayFreq, MaxDisplayFreq)*bounds.Width
		if !finite(x) {
			continue
		}
		g.scratch = append(g.scratch, Point{X: x, Y: y})
	}

	if g.ring.NumAvailableForReading() == g.ring.Capacity() {
		g.ring.Discard(1)
	}
	g.ring.Push(g.scratch)
}

// NumAvailable returns the number of queued curves.
func (g *PathGenerator) NumAvailable() int {
	return g.ring.NumAvailableForReading()
}

// Pull copies the oldest queued curve into dst[:0].
func (g *PathGenerator) Pull(dst Curve) (Curve, bool) {
	pts, ok := g.ring.Pull(dst)
	return Curve(pts), ok
}

// Discard drops up to n queued curves.
func (g *PathGenerator) Discard(n int) int {
	return g.ring.Discard(n)
}
