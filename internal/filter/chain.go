// SPDX-License-Identifier: MIT
/*
Package filter implements the equalizer's mono filter chain: a low-cut
Butterworth cascade, a peaking bell and a high-cut Butterworth cascade,
applied in that fixed order.

Coefficient design (ComputeCoefficients) is a pure function of a
ChainSettings snapshot and a sample rate and may run anywhere. Installing
the result (Chain.Apply) and processing (Chain.Process) belong to the
goroutine that owns the Chain, normally the audio callback; see package eq
for the atomic handoff between the two.
*/
package filter

// ChainCoefficients is a complete, immutable coefficient set for one
// Chain. It is designed off the audio path and installed in one step.
type ChainCoefficients struct {
	LowCut         [MaxStages]Coefficients
	LowCutOrder    int
	LowCutBypassed bool

	Peak         Coefficients
	PeakBypassed bool

	HighCut         [MaxStages]Coefficients
	HighCutOrder    int
	HighCutBypassed bool
}

// ComputeCoefficients designs all three groups from settings. Settings are
// clamped first; the bypassed peak is still designed so it is ready the
// moment it is re-enabled, and cut stages beyond the slope order hold
// Identity.
func ComputeCoefficients(settings ChainSettings, sampleRate float64) ChainCoefficients {
	s := settings.Clamped(sampleRate)

	cc := ChainCoefficients{
		Peak:            DesignPeak(s.PeakFreq, s.PeakQuality, s.PeakGainDB, sampleRate),
		PeakBypassed:    s.PeakBypassed,
		LowCutOrder:     s.LowCutSlopeOrder,
		LowCutBypassed:  s.LowCutBypassed,
		HighCutOrder:    s.HighCutSlopeOrder,
		HighCutBypassed: s.HighCutBypassed,
	}

	fillCut(&cc.LowCut, DesignLowCut(s.LowCutFreq, s.LowCutSlopeOrder, sampleRate))
	fillCut(&cc.HighCut, DesignHighCut(s.HighCutFreq, s.HighCutSlopeOrder, sampleRate))

	return cc
}

func fillCut(dst *[MaxStages]Coefficients, sections []Coefficients) {
	for i := range dst {
		if i < len(sections) {
			dst[i] = sections[i]
		} else {
			dst[i] = Identity
		}
	}
}

// Chain is the mono processing chain. It owns its delay lines; one Chain is
// used per audio channel.
type Chain struct {
	LowCut  CutFilter
	Peak    Stage
	HighCut CutFilter
}

// NewChain returns a chain with every stage set to Identity and the cut
// groups at slope order 1.
func NewChain() *Chain {
	c := &Chain{}
	c.Apply(ComputeCoefficients(DefaultSettings(), 0))
	return c
}

// Apply installs cc. Each stage's coefficient set is replaced by a single
// struct assignment and the bypass flags follow the slope orders. Running
// stages keep their state so parameter sweeps do not click; a stage that
// comes back from bypass starts from silence.
func (c *Chain) Apply(cc ChainCoefficients) {
	c.LowCut.apply(&cc.LowCut, cc.LowCutOrder, cc.LowCutBypassed)
	c.Peak.install(cc.Peak, cc.PeakBypassed)

	c.HighCut.apply(&cc.HighCut, cc.HighCutOrder, cc.HighCutBypassed)
}

// Process filters buf in place: low cut, then peak, then high cut.
// Bypassed stages and groups cost nothing beyond a flag check.
func (c *Chain) Process(buf []float32) {
	c.LowCut.ProcessBlock(buf)
	c.Peak.ProcessBlock(buf)
	c.HighCut.ProcessBlock(buf)
}

// ProcessSample filters a single sample through the whole chain.
func (c *Chain) ProcessSample(x float64) float64 {
	x = c.LowCut.ProcessSample(x)
	x = c.Peak.ProcessSample(x)
	return c.HighCut.ProcessSample(x)
}

// MagnitudeForFrequency returns the chain's linear gain at freq, the
// product of every non-bypassed stage.
func (c *Chain) MagnitudeForFrequency(freq, sampleRate float64) float64 {
	m := c.LowCut.Magnitude(freq, sampleRate)
	if !c.Peak.Bypassed {
		m *= c.Peak.Magnitude(freq, sampleRate)
	}
	return m * c.HighCut.Magnitude(freq, sampleRate)
}

// Reset clears all delay lines.
func (c *Chain) Reset() {
	c.LowCut.Reset()
	c.Peak.Reset()
	c.HighCut.Reset()
}
