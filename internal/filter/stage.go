// SPDX-License-Identifier: MIT
package filter

// Stage is a single biquad with its own delay line. Coefficients are only
// ever replaced as a whole struct.
type Stage struct {
	Coefficients
	Bypassed bool

	z1, z2 float64
}

// ProcessSample filters one sample. Bypassed stages return x unchanged.
func (s *Stage) ProcessSample(x float64) float64 {
	if s.Bypassed {
		return x
	}
	y := s.B0*x + s.z1
	s.z1 = s.B1*x - s.A1*y + s.z2
	s.z2 = s.B2*x - s.A2*y
	return y
}

// ProcessBlock filters buf in place. Zero-alloc; bypassed stages return
// without touching the buffer.
func (s *Stage) ProcessBlock(buf []float32) {
	if s.Bypassed {
		return
	}

	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	z1, z2 := s.z1, s.z2

	for i, in := range buf {
		x := float64(in)
		y := b0*x + z1
		z1 = b1*x - a1*y + z2
		z2 = b2*x - a2*y
		buf[i] = float32(y)
	}

	s.z1, s.z2 = z1, z2
}

// Magnitude returns the stage's linear gain at freq, ignoring Bypassed.
func (s *Stage) Magnitude(freq, sampleRate float64) float64 {
	return Magnitude(s.Coefficients, freq, sampleRate)
}

// Reset clears the delay line.
func (s *Stage) Reset() {
	s.z1, s.z2 = 0, 0
}

// install replaces the coefficients and bypass flag. A stage leaving
// bypass drops whatever was left in its delay line.
func (s *Stage) install(c Coefficients, bypassed bool) {
	if s.Bypassed && !bypassed {
		s.Reset()
	}
	s.Coefficients = c
	s.Bypassed = bypassed
}

// CutFilter is a group of MaxStages cascaded biquads. Exactly Order() of
// them are active; the rest are bypassed and hold Identity.
type CutFilter struct {
	Stages   [MaxStages]Stage
	Bypassed bool
}

// Order returns the number of active stages.
func (c *CutFilter) Order() int {
	n := 0
	for i := range c.Stages {
		if !c.Stages[i].Bypassed {
			n++
		}
	}
	return n
}

// ProcessBlock runs every active stage over buf in place.
func (c *CutFilter) ProcessBlock(buf []float32) {
	if c.Bypassed {
		return
	}
	for i := range c.Stages {
		c.Stages[i].ProcessBlock(buf)
	}
}

// ProcessSample runs every active stage over one sample.
func (c *CutFilter) ProcessSample(x float64) float64 {
	if c.Bypassed {
		return x
	}
	for i := range c.Stages {
		x = c.Stages[i].ProcessSample(x)
	}
	return x
}

// Magnitude returns the product of the active stages' gains at freq.
func (c *CutFilter) Magnitude(freq, sampleRate float64) float64 {
	m := 1.0
	if c.Bypassed {
		return m
	}
	for i := range c.Stages {
		if !c.Stages[i].Bypassed {
			m *= c.Stages[i].Magnitude(freq, sampleRate)
		}
	}
	return m
}

// Reset clears every stage's delay line.
func (c *CutFilter) Reset() {
	for i := range c.Stages {
		c.Stages[i].Reset()
	}
}

// apply installs a designed cut group: the first order stages receive
// coeffs, the rest become bypassed identity sections.
func (c *CutFilter) apply(coeffs *[MaxStages]Coefficients, order int, bypassed bool) {
	if c.Bypassed && !bypassed {
		c.Reset()
	}
	for i := range c.Stages {
		c.Stages[i].install(coeffs[i], i >= order)
	}
	c.Bypassed = bypassed
}
