// SPDX-License-Identifier: MIT
package filter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Coefficients is one normalized second-order section (a0 == 1), in the
// Direct Form II Transposed convention processed by Stage.
type Coefficients = biquad.Coefficients

// Identity is the pass-through section. Stages that are not part of the
// active slope carry it so re-activating them can never expose stale
// coefficients.
var Identity = Coefficients{B0: 1}

// IsIdentity reports whether c passes the signal through unchanged.
func IsIdentity(c Coefficients) bool {
	return c == Identity
}

// IsFinite reports whether every coefficient is a finite number.
func IsFinite(c Coefficients) bool {
	for _, v := range [...]float64{c.B0, c.B1, c.B2, c.A1, c.A2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Magnitude returns the linear gain |H(f)| of c.
func Magnitude(c Coefficients, freq, sampleRate float64) float64 {
	return math.Sqrt(c.MagnitudeSquared(freq, sampleRate))
}

// DesignPeak returns an RBJ peaking section. Inputs the designer rejects
// (frequency outside (0, Nyquist), bad sample rate) yield Identity.
func DesignPeak(freq, quality, gainDB, sampleRate float64) Coefficients {
	return usable(design.Peak(freq, gainDB, quality, sampleRate))
}

// DesignLowCut returns the stages sections of a Butterworth highpass of
// order 2*stages.
func DesignLowCut(freq float64, stages int, sampleRate float64) []Coefficients {
	return cascade(design.ButterworthHP, freq, stages, sampleRate)
}

// DesignHighCut returns the stages sections of a Butterworth lowpass of
// order 2*stages.
func DesignHighCut(freq float64, stages int, sampleRate float64) []Coefficients {
	return cascade(design.ButterworthLP, freq, stages, sampleRate)
}

func cascade(designer func(freq float64, order int, sampleRate float64) []biquad.Coefficients,
	freq float64, stages int, sampleRate float64) []Coefficients {
	if stages <= 0 {
		return nil
	}
	sections := designer(freq, 2*stages, sampleRate)
	for i := range sections {
		sections[i] = usable(sections[i])
	}
	return sections
}

// usable maps the designer's zero section (its rejection value) and any
// non-finite result to Identity, so a bad design never silences a stage.
func usable(c Coefficients) Coefficients {
	if c == (Coefficients{}) || !IsFinite(c) {
		return Identity
	}
	return c
}
