// SPDX-License-Identifier: MIT
package eq

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"paraeq/internal/analysis"
	"paraeq/internal/filter"
	applog "paraeq/internal/log"
	"paraeq/internal/params"
	"paraeq/internal/transport"
)

// Controller is the analysis-side half of the equalizer. Tick must only be
// called from one goroutine; Latest and the setters may be called from any.
type Controller struct {
	store     *params.Store
	processor *Processor
	analyzer  *analysis.Analyzer

	changed atomic.Bool
	order   atomic.Int32 // requested analysis.Order

	// Owned by the Tick goroutine.
	uiChain    *filter.Chain
	settings   filter.ChainSettings
	seq        uint32
	sampleRate float64
	floorDB    float64

	mu     sync.Mutex
	bounds analysis.Rect
	latest *transport.Frame
}

// NewController wires a store, a processor and an analyzer built on the
// processor's fifos. It registers a store listener that marks parameters as
// changed; the first Tick always recomputes.
func NewController(store *params.Store, processor *Processor, analyzer *analysis.Analyzer, sampleRate float64, bounds analysis.Rect) *Controller {
	c := &Controller{
		store:      store,
		processor:  processor,
		analyzer:   analyzer,
		uiChain:    filter.NewChain(),
		sampleRate: sampleRate,
		floorDB:    analysis.DefaultFloorDB,
		bounds:     bounds,
	}
	c.changed.Store(true)
	c.order.Store(int32(analyzer.Order()))
	store.AddListener(func(params.ID, float64) {
		c.ParameterChanged()
	})
	return c
}

// ParameterChanged flags a pending recomputation. Multiple calls between
// ticks coalesce into one.
func (c *Controller) ParameterChanged() {
	c.changed.Store(true)
}

// SetBounds changes the render area used from the next Tick.
func (c *Controller) SetBounds(bounds analysis.Rect) {
	c.mu.Lock()
	c.bounds = bounds
	c.mu.Unlock()
	c.changed.Store(true)
}

// Bounds returns the current render area.
func (c *Controller) Bounds() analysis.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

// SetFloorDB changes the analyzer's silence floor. Call before ticking
// starts.
func (c *Controller) SetFloorDB(db float64) {
	c.floorDB = db
	c.analyzer.SetFloorDB(db)
}

// SetOrder requests a new analyzer transform order. It is applied by the
// next Tick; the current curves stay until the resized pipeline replaces
// them.
func (c *Controller) SetOrder(order analysis.Order) error {
	if !order.Valid() {
		return fmt.Errorf("transform order %d: %w", order, analysis.ErrUnsupportedOrder)
	}
	c.order.Store(int32(order))
	return nil
}

// Order returns the most recently requested transform order.
func (c *Controller) Order() analysis.Order {
	return analysis.Order(c.order.Load())
}

// SampleRate returns the rate the controller designs filters for.
func (c *Controller) SampleRate() float64 {
	return c.sampleRate
}

// Tick runs one poll: recompute coefficients if parameters changed, advance
// the analyzer (or just drain it when disabled) and build a frame. It
// returns the frame and true when anything visible changed.
func (c *Controller) Tick() (*transport.Frame, bool) {
	bounds := c.Bounds()

	recomputed := false
	if c.changed.CompareAndSwap(true, false) {
		c.updateChain()
		recomputed = true
	}

	if want := c.Order(); want != c.analyzer.Order() {
		if err := c.analyzer.ChangeOrder(want); err != nil {
			applog.Errorf("Analysis: %v", err)
		} else {
			applog.Infof("Analysis: Transform size %d", want.Size())
			recomputed = true
		}
	}

	analysed := false
	if c.settings.AnalyzerEnabled {
		_, analysed = c.PollAnalysis(bounds, c.sampleRate)
	} else {
		c.analyzer.Drain()
	}

	if !recomputed && !analysed {
		return nil, false
	}

	c.seq++
	var curves []analysis.Curve
	if c.settings.AnalyzerEnabled {
		curves = c.analyzer.Paths()
	}
	f := transport.NewFrame(c.seq, c.sampleRate, bounds, curves,
		analysis.MapResponse(c.ResponseCurve(int(bounds.Width)), bounds))
	f.Params = c.paramSnapshot()
	if c.settings.AnalyzerEnabled {
		f.Bands = c.bandLevels()
	}

	c.mu.Lock()
	c.latest = f
	c.mu.Unlock()
	return f, true
}

// updateChain reads a fresh settings snapshot and installs it on both the
// audio side and the controller's own chain used for the response curve.
func (c *Controller) updateChain() {
	c.settings = params.ComputeChainSettings(c.store)
	c.processor.UpdateChain(c.settings, c.sampleRate)
	c.uiChain.Apply(filter.ComputeCoefficients(c.settings, c.sampleRate))
	applog.Debugf("EQ: Chain updated %+v", c.settings)
}

// PollAnalysis drains every channel fifo, advances the spectrum pipeline
// and returns the newest curve of every channel. The bool reports whether
// any curve was replaced; otherwise the previous curves are returned
// unchanged.
func (c *Controller) PollAnalysis(bounds analysis.Rect, sampleRate float64) ([]analysis.Curve, bool) {
	updated := c.analyzer.Process(bounds, sampleRate)
	return c.analyzer.Paths(), updated
}

// ResponseCurve samples the chain's magnitude response at width
// log-spaced frequencies in [20, 20000] Hz and returns decibels.
func (c *Controller) ResponseCurve(width int) []float64 {
	freqs := analysis.ResponseFrequencies(width)
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		m := c.uiChain.MagnitudeForFrequency(f, c.sampleRate)
		out[i] = 20 * math.Log10(m)
	}
	return out
}

// Settings returns the settings installed by the last recomputation. Tick
// goroutine only.
func (c *Controller) Settings() filter.ChainSettings {
	return c.settings
}

// Latest returns the most recent frame, or nil before the first Tick.
func (c *Controller) Latest() *transport.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func (c *Controller) paramSnapshot() map[string]float64 {
	snap := c.store.Snapshot()
	out := make(map[string]float64, len(snap))
	for id, v := range snap {
		out[string(id)] = v
	}
	return out
}

func (c *Controller) bandLevels() [][]float64 {
	producers := c.analyzer.Producers()
	out := make([][]float64, len(producers))
	for i, p := range producers {
		binWidth := c.sampleRate / float64(p.FFTSize())
		out[i] = analysis.BandLevels(p.Spectrum(), analysis.DefaultBands, binWidth, c.floorDB)
	}
	return out
}
