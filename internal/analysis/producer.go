// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"paraeq/internal/fifo"
)

// PathProducer runs the analysis pipeline for one channel: it drains the
// channel's SampleFifo into a Reassembler, produces a spectrum per block and
// keeps the newest curve. Everything here runs on the analysis goroutine.
type PathProducer struct {
	fifo        *fifo.SampleFifo
	reassembler *Reassembler
	spectrum    *SpectrumGenerator
	paths       *PathGenerator

	floorDB float64

	block   []float32
	bins    []float64
	latest  Curve
	lastBin []float64 // newest spectrum, kept for band levels
}

// NewPathProducer builds a pipeline reading from f.
func NewPathProducer(f *fifo.SampleFifo, order Order, wf WindowFunc) (*PathProducer, error) {
	spectrum, err := NewSpectrumGenerator(order, wf)
	if err != nil {
		return nil, fmt.Errorf("channel %d: %w", f.Channel(), err)
	}
	return &PathProducer{
		fifo:        f,
		reassembler: NewReassembler(order.Size()),
		spectrum:    spectrum,
		paths:       NewPathGenerator(),
		floorDB:     DefaultFloorDB,
		block:       make([]float32, 0, f.BlockSize()),
		bins:        make([]float64, 0, order.Size()/2),
		latest:      make(Curve, 0, maxCurvePoints),
		lastBin:     make([]float64, 0, order.Size()/2),
	}, nil
}

// SetFloorDB changes the level used for silent bins and the bottom of the
// curve.
func (p *PathProducer) SetFloorDB(db float64) {
	p.floorDB = db
}

// ChangeOrder resizes the window and transform. The curve is kept until the
// next completed spectrum replaces it.
func (p *PathProducer) ChangeOrder(order Order) error {
	if err := p.spectrum.ChangeOrder(order); err != nil {
		return err
	}
	p.reassembler.Resize(order.Size())
	return nil
}

// Process drains every complete block, advances the pipeline and replaces
// the current curve with the newest one. It returns false, leaving the
// previous curve in place, when no new block arrived.
func (p *PathProducer) Process(bounds Rect, sampleRate float64) bool {
	produced := false
	for p.fifo.NumCompleteBuffersAvailable() > 0 {
		var ok bool
		if p.block, ok = p.fifo.GetAudioBuffer(p.block); !ok {
			break
		}
		p.reassembler.Push(p.block)
		p.spectrum.Produce(p.reassembler.Window(), p.floorDB)
		produced = true
	}
	if !produced {
		return false
	}

	fftSize := p.spectrum.Size()
	binWidth := sampleRate / float64(fftSize)

	// Only the newest spectrum is rendered.
	if n := p.spectrum.NumAvailable(); n > 1 {
		p.spectrum.Discard(n - 1)
	}
	var ok bool
	if p.bins, ok = p.spectrum.Pull(p.bins); ok {
		p.lastBin = append(p.lastBin[:0], p.bins...)
		p.paths.Generate(p.bins, bounds, fftSize, binWidth, p.floorDB)
	}

	updated := false
	for p.paths.NumAvailable() > 0 {
		if p.latest, ok = p.paths.Pull(p.latest); ok {
			updated = true
		}
	}
	return updated
}

// Drain consumes queued blocks without running the transform. The window is
// still updated so re-enabling analysis starts from current audio.
func (p *PathProducer) Drain() {
	for p.fifo.NumCompleteBuffersAvailable() > 0 {
		var ok bool
		if p.block, ok = p.fifo.GetAudioBuffer(p.block); !ok {
			return
		}
		p.reassembler.Push(p.block)
	}
}

// Path returns the newest curve. The slice is reused by the next Process.
func (p *PathProducer) Path() Curve {
	return p.latest
}

// Spectrum returns the newest decibel spectrum. The slice is reused by the
// next Process.
func (p *PathProducer) Spectrum() []float64 {
	return p.lastBin
}

// FFTSize returns the current transform size.
func (p *PathProducer) FFTSize() int {
	return p.spectrum.Size()
}

// Order returns the current transform order.
func (p *PathProducer) Order() Order {
	return p.spectrum.Order()
}

// Channel returns the index of the channel being analysed.
func (p *PathProducer) Channel() int {
	return p.fifo.Channel()
}

// Analyzer groups one PathProducer per channel.
type Analyzer struct {
	producers []*PathProducer
}

// NewAnalyzer builds a producer for every fifo.
func NewAnalyzer(fifos []*fifo.SampleFifo, order Order, wf WindowFunc) (*Analyzer, error) {
	a := &Analyzer{producers: make([]*PathProducer, 0, len(fifos))}
	for _, f := range fifos {
		p, err := NewPathProducer(f, order, wf)
		if err != nil {
			return nil, err
		}
		a.producers = append(a.producers, p)
	}
	return a, nil
}

// Process advances every channel and reports whether any curve changed.
func (a *Analyzer) Process(bounds Rect, sampleRate float64) bool {
	updated := false
	for _, p := range a.producers {
		if p.Process(bounds, sampleRate) {
			updated = true
		}
	}
	return updated
}

// Drain consumes queued blocks on every channel without analysing them.
func (a *Analyzer) Drain() {
	for _, p := range a.producers {
		p.Drain()
	}
}

// Order returns the transform order shared by every channel, or
// DefaultOrder when there are none.
func (a *Analyzer) Order() Order {
	if len(a.producers) == 0 {
		return DefaultOrder
	}
	return a.producers[0].Order()
}

// ChangeOrder resizes every channel's transform.
func (a *Analyzer) ChangeOrder(order Order) error {
	if !order.Valid() {
		return fmt.Errorf("transform order %d: %w", order, ErrUnsupportedOrder)
	}
	for _, p := range a.producers {
		if err := p.ChangeOrder(order); err != nil {
			return err
		}
	}
	return nil
}

// SetFloorDB applies db to every channel.
func (a *Analyzer) SetFloorDB(db float64) {
	for _, p := range a.producers {
		p.SetFloorDB(db)
	}
}

// Producers returns the per-channel pipelines in channel order.
func (a *Analyzer) Producers() []*PathProducer {
	return a.producers
}

// Paths returns the newest curve of every channel.
func (a *Analyzer) Paths() []Curve {
	out := make([]Curve, len(a.producers))
	for i, p := range a.producers {
		out[i] = p.Path()
	}
	return out
}
