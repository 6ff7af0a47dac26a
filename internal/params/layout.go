// SPDX-License-Identifier: MIT
/*
Package params owns the equalizer's user-facing parameters: their layout
(ids, ranges, defaults), a lock-free value store with change listeners, and
the snapshot that turns stored values into a filter.ChainSettings.

The store is the settings boundary. Every value is clamped on Set, so
everything downstream of ComputeChainSettings can assume valid input.
*/
package params

import (
	"fmt"
	"math"
	"strings"

	"paraeq/internal/filter"
)

// ID identifies a parameter. The strings double as preset file keys.
type ID string

const (
	PeakFreq        ID = "Peak Freq"
	PeakGain        ID = "Peak Gain"
	PeakQuality     ID = "Peak Quality"
	LowCutFreq      ID = "LowCut Freq"
	HighCutFreq     ID = "HighCut Freq"
	LowCutSlope     ID = "LowCut Slope"
	HighCutSlope    ID = "HighCut Slope"
	PeakBypassed    ID = "Peak Bypassed"
	LowCutBypassed  ID = "LowCut Bypassed"
	HighCutBypassed ID = "HighCut Bypassed"
	AnalyzerEnabled ID = "Analyzer Enabled"
)

// Kind selects how a parameter's value is clamped and displayed.
type Kind int

const (
	Float Kind = iota
	Choice
	Bool
)

// Parameter describes one entry of the layout.
type Parameter struct {
	ID      ID
	Kind    Kind
	Min     float64
	Max     float64
	Default float64
	Suffix  string
	// Precision is the number of decimals shown by FormatValue below 1000.
	Precision int
	// Choices names each index of a Choice parameter.
	Choices []string
}

var slopeChoices = []string{
	filter.Slope12.String(),
	filter.Slope24.String(),
	filter.Slope36.String(),
	filter.Slope48.String(),
}

// Layout returns the full parameter layout in display order.
func Layout() []Parameter {
	freq := func(id ID, def float64) Parameter {
		return Parameter{ID: id, Kind: Float, Min: filter.MinFrequency, Max: filter.MaxFrequency, Default: def, Suffix: "Hz"}
	}
	slope := func(id ID) Parameter {
		return Parameter{ID: id, Kind: Choice, Min: 0, Max: float64(len(slopeChoices) - 1), Choices: slopeChoices}
	}
	toggle := func(id ID, on bool) Parameter {
		p := Parameter{ID: id, Kind: Bool, Min: 0, Max: 1}
		if on {
			p.Default = 1
		}
		return p
	}

	return []Parameter{
		freq(LowCutFreq, filter.MinFrequency),
		freq(HighCutFreq, filter.MaxFrequency),
		freq(PeakFreq, 750),
		{ID: PeakGain, Kind: Float, Min: filter.MinGainDB, Max: filter.MaxGainDB, Default: 0, Suffix: "dB", Precision: 1},
		{ID: PeakQuality, Kind: Float, Min: filter.MinQuality, Max: filter.MaxQuality, Default: 1, Precision: 2},
		slope(LowCutSlope),
		slope(HighCutSlope),
		toggle(LowCutBypassed, false),
		toggle(PeakBypassed, false),
		toggle(HighCutBypassed, false),
		toggle(AnalyzerEnabled, true),
	}
}

// Clamp forces v into the parameter's domain. Choices are rounded to the
// nearest index and booleans snap to 0 or 1. NaN becomes the default.
func (p Parameter) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.Default
	}
	switch p.Kind {
	case Choice:
		v = math.Round(v)
	case Bool:
		if v >= 0.5 {
			return 1
		}
		return 0
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// FormatValue renders v for display. Values of 1000 and above are shown in
// thousands with a "k" prefix on the suffix, so 1500 Hz reads "1.50 kHz".
func (p Parameter) FormatValue(v float64) string {
	switch p.Kind {
	case Choice:
		i := int(p.Clamp(v))
		if i < len(p.Choices) {
			return p.Choices[i]
		}
		return fmt.Sprintf("%d", i)
	case Bool:
		if v >= 0.5 {
			return "On"
		}
		return "Off"
	}

	prefix := ""
	precision := p.Precision
	if math.Abs(v) >= 1000 {
		v /= 1000
		prefix = "k"
		precision = 2
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%.*f", precision, v)
	if p.Suffix != "" || prefix != "" {
		b.WriteByte(' ')
		b.WriteString(prefix)
		b.WriteString(p.Suffix)
	}
	return b.String()
}

// ParseChoice maps a choice label (case-insensitive, surrounding space
// ignored) to its index.
func (p Parameter) ParseChoice(label string) (int, bool) {
	label = strings.TrimSpace(label)
	for i, c := range p.Choices {
		if strings.EqualFold(c, label) {
			return i, true
		}
	}
	return 0, false
}
