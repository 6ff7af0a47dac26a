// SPDX-License-Identifier: MIT
/*
Package eq ties the filter chain, the per-channel fifos and the analysis
pipeline together across the two execution contexts:

  - The audio context owns Processor.Process / ProcessBlock / PushBlock.
    These never allocate, lock or block.
  - The analysis context owns Controller.Tick, normally driven by a Poller
    at 60 Hz. It recomputes coefficients when parameters changed and
    advances the spectrum pipeline.

New coefficients cross from the analysis side to the audio side through a
single atomic pointer: the analysis side stores a freshly designed set, the
audio side swaps it out at the start of its next block and installs it with
whole-struct assignments.
*/
package eq

import (
	"fmt"
	"strings"
	"sync/atomic"

	"paraeq/internal/fifo"
	"paraeq/internal/filter"
)

// Tap selects which signal feeds the analyzer.
type Tap int

const (
	// TapPre analyses the raw input, before filtering.
	TapPre Tap = iota
	// TapPost analyses the filtered output.
	TapPost
)

func (t Tap) String() string {
	if t == TapPost {
		return "post"
	}
	return "pre"
}

// ParseTap accepts "pre" or "post" (case-insensitive). Empty means pre.
func ParseTap(s string) (Tap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pre":
		return TapPre, nil
	case "post":
		return TapPost, nil
	default:
		return TapPre, fmt.Errorf("unknown analyzer tap %q (want pre or post)", s)
	}
}

// Processor is the real-time half of the equalizer: one filter chain and
// one sample fifo per channel.
type Processor struct {
	chains []*filter.Chain
	fifos  []*fifo.SampleFifo
	tap    Tap

	pending atomic.Pointer[filter.ChainCoefficients]
	applied atomic.Uint64 // coefficient sets installed by the audio side
}

// NewProcessor returns a processor for channels channels. Until the first
// UpdateChain every stage passes audio through.
func NewProcessor(channels int, tap Tap) *Processor {
	channels = max(channels, 1)
	p := &Processor{
		chains: make([]*filter.Chain, channels),
		fifos:  make([]*fifo.SampleFifo, channels),
		tap:    tap,
	}
	for ch := range channels {
		p.chains[ch] = filter.NewChain()
		p.fifos[ch] = fifo.NewSampleFifo(ch)
	}
	return p
}

// Prepare sizes every channel fifo to blockSize samples and clears filter
// state. Call before the stream starts, never concurrently with Process.
func (p *Processor) Prepare(blockSize, capacity int) {
	for ch := range p.chains {
		p.chains[ch].Reset()
		p.fifos[ch].Prepare(blockSize, capacity)
	}
}

// UpdateChain designs coefficients for settings and hands them to the audio
// side. Safe to call from any goroutine; the newest set wins.
func (p *Processor) UpdateChain(settings filter.ChainSettings, sampleRate float64) {
	cc := filter.ComputeCoefficients(settings, sampleRate)
	p.pending.Store(&cc)
}

// Process filters every channel buffer in place. Extra buffers beyond the
// processor's channel count are left untouched.
func (p *Processor) Process(buffers [][]float32) {
	if cc := p.pending.Swap(nil); cc != nil {
		for _, c := range p.chains {
			c.Apply(*cc)
		}
		p.applied.Add(1)
	}

	for ch, buf := range buffers {
		if ch >= len(p.chains) {
			break
		}
		p.chains[ch].Process(buf)
	}
}

// PushBlock queues samples for analysis on channel ch. Unknown channels are
// ignored.
func (p *Processor) PushBlock(ch int, samples []float32) {
	if ch < 0 || ch >= len(p.fifos) {
		return
	}
	p.fifos[ch].Update(samples)
}

// ProcessBlock is the full per-callback work: filter every channel and feed
// the analyzer from the configured tap.
func (p *Processor) ProcessBlock(buffers [][]float32) {
	if p.tap == TapPre {
		p.pushAll(buffers)
	}
	p.Process(buffers)
	if p.tap == TapPost {
		p.pushAll(buffers)
	}
}

func (p *Processor) pushAll(buffers [][]float32) {
	for ch, buf := range buffers {
		p.PushBlock(ch, buf)
	}
}

// Fifos returns the per-channel analysis fifos, for the consumer side.
func (p *Processor) Fifos() []*fifo.SampleFifo {
	return p.fifos
}

// Channels returns the channel count.
func (p *Processor) Channels() int {
	return len(p.chains)
}

// Tap returns the analyzer tap point.
func (p *Processor) Tap() Tap {
	return p.tap
}

// Applied returns how many coefficient sets the audio side has installed.
func (p *Processor) Applied() uint64 {
	return p.applied.Load()
}

// Overflows sums dropped analysis blocks across channels.
func (p *Processor) Overflows() uint64 {
	var n uint64
	for _, f := range p.fifos {
		n += f.Overflows()
	}
	return n
}
