// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"paraeq/internal/fifo"
	applog "paraeq/internal/log"
	"paraeq/pkg/bitint"
)

// ErrUnsupportedOrder is returned for transform orders other than the
// supported 2048, 4096 and 8192 point sizes.
var ErrUnsupportedOrder = errors.New("unsupported transform order")

// Order is a transform size expressed as a power of two.
type Order int

const (
	Order2048 Order = 11
	Order4096 Order = 12
	Order8192 Order = 13

	DefaultOrder = Order2048
)

// Size returns the number of points, 1 << o.
func (o Order) Size() int {
	return 1 << o
}

// Valid reports whether o is one of the supported orders.
func (o Order) Valid() bool {
	return o >= Order2048 && o <= Order8192
}

// OrderForSize maps 2048, 4096 or 8192 to its Order.
func OrderForSize(size int) (Order, error) {
	if !bitint.IsPowerOfTwo(size) {
		return 0, fmt.Errorf("transform size %d is not a power of two: %w", size, ErrUnsupportedOrder)
	}
	o := Order(bitint.Log2(size))
	if !o.Valid() {
		return 0, fmt.Errorf("transform size %d: %w", size, ErrUnsupportedOrder)
	}
	return o, nil
}

// DefaultFloorDB is the level reported for silent bins.
const DefaultFloorDB = -48.0

// SpectrumGenerator turns a sample window into a decibel magnitude
// spectrum of Size()/2 bins and queues it on its own ring. It is owned by
// the analysis goroutine; ChangeOrder must not run concurrently with
// Produce or Pull.
type SpectrumGenerator struct {
	order      Order
	windowFunc WindowFunc

	fft    *fourier.FFT
	table  []float64    // precomputed window coefficients
	work   []float64    // windowed input
	coeffs []complex128 // N/2+1 transform output
	bins   []float64    // N/2 decibel values

	ring fifo.Ring[float64]
}

// NewSpectrumGenerator allocates a generator for order.
func NewSpectrumGenerator(order Order, wf WindowFunc) (*SpectrumGenerator, error) {
	g := &SpectrumGenerator{windowFunc: wf}
	if err := g.ChangeOrder(order); err != nil {
		return nil, err
	}
	return g, nil
}

// ChangeOrder reallocates every buffer for the new transform size and
// empties the output ring.
func (g *SpectrumGenerator) ChangeOrder(order Order) error {
	if !order.Valid() {
		return fmt.Errorf("transform order %d: %w", order, ErrUnsupportedOrder)
	}

	n := order.Size()
	g.order = order
	g.fft = fourier.NewFFT(n)
	g.table = make([]float64, n)
	fillWindow(g.table, g.windowFunc)
	g.work = make([]float64, n)
	g.coeffs = make([]complex128, n/2+1)
	g.bins = make([]float64, n/2)
	g.ring.Prepare(fifo.DefaultCapacity, n/2)

	applog.Debugf("Analysis: Spectrum generator ready (Size: %d, Window: %s)", n, g.windowFunc)
	return nil
}

// Produce windows samples, transforms them and publishes the decibel
// spectrum. samples shorter than Size() are zero-padded at the end; longer
// ones are truncated. Every published value is finite and >= floorDB.
//
// If the ring is full the oldest spectrum is discarded to make room, which
// is only valid because the generator owns both ends of its ring.
func (g *SpectrumGenerator) Produce(samples []float32, floorDB float64) {
	n := len(g.work)
	for i := range g.work {
		if i < len(samples) {
			g.work[i] = float64(samples[i]) * g.table[i]
		} else {
			g.work[i] = 0
		}
	}

	g.fft.Coefficients(g.coeffs, g.work)

	norm := float64(n / 2)
	for i := range g.bins {
		g.bins[i] = gainToDecibels(cmplx.Abs(g.coeffs[i])/norm, floorDB)
	}

	if g.ring.NumAvailableForReading() == g.ring.Capacity() {
		g.ring.Discard(1)
	}
	g.ring.Push(g.bins)
}

// NumAvailable returns the number of queued spectra.
func (g *SpectrumGenerator) NumAvailable() int {
	return g.ring.NumAvailableForReading()
}

// Pull copies the oldest queued spectrum into dst[:0].
func (g *SpectrumGenerator) Pull(dst []float64) ([]float64, bool) {
	return g.ring.Pull(dst)
}

// Discard drops up to n queued spectra.
func (g *SpectrumGenerator) Discard(n int) int {
	return g.ring.Discard(n)
}

// Order returns the current transform order.
func (g *SpectrumGenerator) Order() Order {
	return g.order
}

// Size returns the current transform size in samples.
func (g *SpectrumGenerator) Size() int {
	return len(g.work)
}

// NumBins returns the length of each published spectrum.
func (g *SpectrumGenerator) NumBins() int {
	return len(g.bins)
}

// gainToDecibels converts a linear magnitude. Zero, negative and
// non-finite gains map to floorDB.
func gainToDecibels(gain, floorDB float64) float64 {
	if !(gain > 0) {
		return floorDB
	}
	db := 20 * math.Log10(gain)
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return floorDB
	}
	return math.Max(floorDB, db)
}
