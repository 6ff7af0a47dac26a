// SPDX-License-Identifier: MIT
package transport

import (
	"slices"
	"time"

	"paraeq/internal/analysis"
)

// Transport defines a generic interface for publishing analysis frames.
// Implementations must be safe for use from the poll goroutine while Close
// runs on another.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one published analysis update: the newest spectrum curve of
// every channel plus the filter response curve, all in render units.
type Frame struct {
	Seq        uint32             `json:"seq"`
	Timestamp  int64              `json:"timestamp"` // nanoseconds since epoch
	SampleRate float64            `json:"sampleRate"`
	Bounds     analysis.Rect      `json:"bounds"`
	Curves     []analysis.Curve   `json:"curves"`
	Response   analysis.Curve     `json:"response"`
	Bands      [][]float64        `json:"bands,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
}

// NewFrame stamps a frame with the current time. curves and response are
// copied so the frame stays valid after the producers reuse their buffers.
func NewFrame(seq uint32, sampleRate float64, bounds analysis.Rect, curves []analysis.Curve, response analysis.Curve) *Frame {
	f := &Frame{
		Seq:        seq,
		Timestamp:  time.Now().UnixNano(),
		SampleRate: sampleRate,
		Bounds:     bounds,
		Curves:     make([]analysis.Curve, len(curves)),
		Response:   slices.Clone(response),
	}
	for i, c := range curves {
		f.Curves[i] = slices.Clone(c)
	}
	return f
}

// asFrame accepts a Frame by value or pointer.
func asFrame(data any) (*Frame, bool) {
	switch f := data.(type) {
	case *Frame:
		return f, f != nil
	case Frame:
		return &f, true
	default:
		return nil, false
	}
}
