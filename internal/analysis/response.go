// SPDX-License-Identifier: MIT
package analysis

// Vertical range of the response curve.
const (
	ResponseMinDB = -24.0
	ResponseMaxDB = 24.0
)

// ResponseFrequencies returns width log-spaced frequencies covering
// [20, 20000] Hz, one per horizontal render unit.
func ResponseFrequencies(width int) []float64 {
	out := make([]float64, max(width, 0))
	for i := range out {
		out[i] = MapToLog10(float64(i)/float64(width), MinDisplayFreq, MaxDisplayFreq)
	}
	return out
}

// MapResponse places one decibel value per horizontal unit of bounds,
// mapping [-24, +24] dB onto [bottom, top]. Non-finite values are omitted.
func MapResponse(dbs []float64, bounds Rect) Curve {
	out := make(Curve, 0, len(dbs))
	for i, db := range dbs {
		y := mapRange(db, ResponseMinDB, ResponseMaxDB, bounds.Bottom(), bounds.Y)
		if !finite(y) {
			continue
		}
		out = append(out, Point{X: bounds.X + float64(i), Y: y})
	}
	return out
}
