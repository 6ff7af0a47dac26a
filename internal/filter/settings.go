// SPDX-License-Identifier: MIT
package filter

import (
	"fmt"
	"math"
)

// Parameter bounds shared by the parameter layout and the settings
// boundary.
const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
	MinGainDB    = -24.0
	MaxGainDB    = 24.0
	MinQuality   = 0.1
	MaxQuality   = 10.0

	// MaxStages is the number of biquads in each cut group.
	MaxStages = 4

	// nyquistGuard keeps designed frequencies strictly below Nyquist.
	nyquistGuard = 0.499
)

// Slope is a cut filter roll-off, stored as the choice index used by the
// parameter layout (0 -> 12 dB/Oct ... 3 -> 48 dB/Oct).
type Slope int

const (
	Slope12 Slope = iota
	Slope24
	Slope36
	Slope48
)

// Order returns the number of active biquad stages for the slope.
func (s Slope) Order() int {
	return int(s) + 1
}

// DBPerOctave returns the nominal roll-off.
func (s Slope) DBPerOctave() int {
	return 12 * s.Order()
}

func (s Slope) String() string {
	return fmt.Sprintf("%d dB/Oct", s.DBPerOctave())
}

// SlopeFromOrder converts a stage count (1..4) back to a Slope.
func SlopeFromOrder(order int) Slope {
	return Slope(clampInt(order, 1, MaxStages) - 1)
}

// ChainSettings is an immutable snapshot of every value the filter chain
// and analyzer depend on. It is produced fresh from the parameter store and
// never mutated in place.
type ChainSettings struct {
	PeakFreq    float64 // Hz
	PeakGainDB  float64
	PeakQuality float64

	LowCutFreq  float64 // Hz
	HighCutFreq float64 // Hz

	LowCutSlopeOrder  int // 1..4 stages, 12 dB/Oct each
	HighCutSlopeOrder int

	PeakBypassed    bool
	LowCutBypassed  bool
	HighCutBypassed bool

	AnalyzerEnabled bool
}

// DefaultSettings matches the default parameter layout.
func DefaultSettings() ChainSettings {
	return ChainSettings{
		PeakFreq:          750,
		PeakGainDB:        0,
		PeakQuality:       1,
		LowCutFreq:        MinFrequency,
		HighCutFreq:       MaxFrequency,
		LowCutSlopeOrder:  1,
		HighCutSlopeOrder: 1,
		AnalyzerEnabled:   true,
	}
}

// Clamped returns a copy with every field forced into its valid range for
// sampleRate. This is the single validation point; the audio path never
// re-checks settings.
func (s ChainSettings) Clamped(sampleRate float64) ChainSettings {
	maxFreq := MaxFrequency
	if sampleRate > 0 {
		maxFreq = math.Min(maxFreq, sampleRate*nyquistGuard)
	}
	minFreq := math.Min(MinFrequency, maxFreq)

	s.PeakFreq = clampFloat(s.PeakFreq, minFreq, maxFreq)
	s.LowCutFreq = clampFloat(s.LowCutFreq, minFreq, maxFreq)
	s.HighCutFreq = clampFloat(s.HighCutFreq, minFreq, maxFreq)
	s.PeakGainDB = clampFloat(s.PeakGainDB, MinGainDB, MaxGainDB)
	s.PeakQuality = clampFloat(s.PeakQuality, MinQuality, MaxQuality)
	s.LowCutSlopeOrder = clampInt(s.LowCutSlopeOrder, 1, MaxStages)
	s.HighCutSlopeOrder = clampInt(s.HighCutSlopeOrder, 1, MaxStages)
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
