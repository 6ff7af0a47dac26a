// SPDX-License-Identifier: MIT
package analysis

import "math"

// FrequencyBand names a frequency range.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range into six display bands.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 20000},
}

// BandLevels averages the power of every bin of a decibel spectrum that
// falls inside each band and returns the result in decibels. Bands with no
// bins, e.g. above Nyquist, report floorDB.
func BandLevels(spectrum []float64, bands []FrequencyBand, binWidth, floorDB float64) []float64 {
	out := make([]float64, len(bands))
	for i, band := range bands {
		power, n := 0.0, 0
		for bin, db := range spectrum {
			freq := float64(bin) * binWidth
			if freq < band.LowHz || freq >= band.HighHz {
				continue
			}
			power += math.Pow(10, db/10)
			n++
		}
		if n == 0 {
			out[i] = floorDB
			continue
		}
		out[i] = gainToDecibels(math.Sqrt(power/float64(n)), floorDB)
	}
	return out
}
