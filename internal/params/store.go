// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"paraeq/internal/filter"
)

// ErrUnknownParameter is returned for ids that are not part of the layout.
var ErrUnknownParameter = errors.New("unknown parameter")

// Listener is called after a parameter's stored value changes. It runs on
// the goroutine that called Set and must not block.
type Listener func(id ID, value float64)

// Source is anything that can report a parameter value.
type Source interface {
	Get(id ID) float64
}

// Store holds the current value of every parameter. Reads and writes are
// lock-free; the listener list is guarded separately and copied before
// listeners run, so a listener may call Set.
type Store struct {
	layout []Parameter
	index  map[ID]int
	values []atomic.Uint64 // math.Float64bits

	mu        sync.Mutex
	listeners []Listener
}

var _ Source = (*Store)(nil)

// NewStore returns a store initialised with the layout's defaults.
func NewStore() *Store {
	layout := Layout()
	s := &Store{
		layout: layout,
		index:  make(map[ID]int, len(layout)),
		values: make([]atomic.Uint64, len(layout)),
	}
	for i, p := range layout {
		s.index[p.ID] = i
		s.values[i].Store(math.Float64bits(p.Default))
	}
	return s
}

// Parameters returns a copy of the layout backing the store.
func (s *Store) Parameters() []Parameter {
	out := make([]Parameter, len(s.layout))
	copy(out, s.layout)
	return out
}

// Parameter looks up a layout entry.
func (s *Store) Parameter(id ID) (Parameter, bool) {
	i, ok := s.index[id]
	if !ok {
		return Parameter{}, false
	}
	return s.layout[i], true
}

// Get returns the stored value, or 0 for an unknown id.
func (s *Store) Get(id ID) float64 {
	i, ok := s.index[id]
	if !ok {
		return 0
	}
	return math.Float64frombits(s.values[i].Load())
}

// Bool reports whether a Bool parameter is on.
func (s *Store) Bool(id ID) bool {
	return s.Get(id) >= 0.5
}

// Set clamps v into the parameter's range and stores it. Listeners run only
// if the stored value actually changed.
func (s *Store) Set(id ID, v float64) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("set %q: %w", id, ErrUnknownParameter)
	}
	v = s.layout[i].Clamp(v)
	old := s.values[i].Swap(math.Float64bits(v))
	if old != math.Float64bits(v) {
		s.notify(id, v)
	}
	return nil
}

// SetBool stores a Bool parameter.
func (s *Store) SetBool(id ID, on bool) error {
	if on {
		return s.Set(id, 1)
	}
	return s.Set(id, 0)
}

// Toggle flips a Bool parameter.
func (s *Store) Toggle(id ID) error {
	return s.SetBool(id, !s.Bool(id))
}

// Reset restores every parameter to its default.
func (s *Store) Reset() {
	for _, p := range s.layout {
		_ = s.Set(p.ID, p.Default)
	}
}

// Snapshot copies all current values.
func (s *Store) Snapshot() map[ID]float64 {
	out := make(map[ID]float64, len(s.layout))
	for i, p := range s.layout {
		out[p.ID] = math.Float64frombits(s.values[i].Load())
	}
	return out
}

// Format renders the current value of id for display.
func (s *Store) Format(id ID) string {
	p, ok := s.Parameter(id)
	if !ok {
		return ""
	}
	return p.FormatValue(s.Get(id))
}

// AddListener registers l for every subsequent change.
func (s *Store) AddListener(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) notify(id ID, v float64) {
	s.mu.Lock()
	ls := s.listeners
	s.mu.Unlock()

	for _, l := range ls {
		l(id, v)
	}
}

// ComputeChainSettings reads a fresh settings snapshot from src. It has no
// side effects; the result is clamped so it is safe for any Source.
func ComputeChainSettings(src Source) filter.ChainSettings {
	s := filter.ChainSettings{
		PeakFreq:    src.Get(PeakFreq),
		PeakGainDB:  src.Get(PeakGain),
		PeakQuality: src.Get(PeakQuality),

		LowCutFreq:  src.Get(LowCutFreq),
		HighCutFreq: src.Get(HighCutFreq),

		LowCutSlopeOrder:  filter.Slope(math.Round(src.Get(LowCutSlope))).Order(),
		HighCutSlopeOrder: filter.Slope(math.Round(src.Get(HighCutSlope))).Order(),

		PeakBypassed:    src.Get(PeakBypassed) >= 0.5,
		LowCutBypassed:  src.Get(LowCutBypassed) >= 0.5,
		HighCutBypassed: src.Get(HighCutBypassed) >= 0.5,
		AnalyzerEnabled: src.Get(AnalyzerEnabled) >= 0.5,
	}
	return s.Clamped(0)
}
