// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"

	applog "paraeq/internal/log"
)

// WindowFunc selects the analysis window applied before the transform.
type WindowFunc int

const (
	BlackmanHarris WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case BlackmanHarris:
		return "blackmanharris"
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. An
// empty name selects BlackmanHarris; an unknown one returns BlackmanHarris
// and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blackmanharris", "blackman-harris":
		return BlackmanHarris, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return BlackmanHarris, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// fillWindow writes the window's coefficients into table and normalises
// them so they sum to len(table). With that scaling a full-scale sine that
// lands on a bin reads 0 dB after the N/2 normalisation.
func fillWindow(table []float64, wf WindowFunc) {
	// gonum windows multiply in place, so start from ones.
	for i := range table {
		table[i] = 1.0
	}
	switch wf {
	case BlackmanHarris:
		window.BlackmanHarris(table)
	case BartlettHann:
		window.BartlettHann(table)
	case Blackman:
		window.Blackman(table)
	case BlackmanNuttall:
		window.BlackmanNuttall(table)
	case Hann:
		window.Hann(table)
	case Hamming:
		window.Hamming(table)
	case Lanczos:
		window.Lanczos(table)
	case Nuttall:
		window.Nuttall(table)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, defaulting to Blackman-Harris", wf)
		window.BlackmanHarris(table)
	}

	sum := 0.0
	for _, v := range table {
		sum += v
	}
	if sum <= 0 {
		return
	}
	scale := float64(len(table)) / sum
	for i := range table {
		table[i] *= scale
	}
}
