// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"paraeq/internal/analysis"
	applog "paraeq/internal/log"
	"paraeq/internal/transport"
)

// MaxPacketSize is the largest UDP payload over IPv4.
const MaxPacketSize = 65507

// ErrPacketTooLarge is returned when a frame does not fit in one datagram.
var ErrPacketTooLarge = errors.New("frame exceeds maximum UDP payload")

/*
Packet Structure (BigEndian)

+--------------------------------------------------------------------------+
| Field           | Data Type       | Size (Bytes) | Description           |
|-----------------|-----------------|--------------|-----------------------|
| Sequence Number | uint32          | 4            | Frame sequence        |
| Timestamp       | int64           | 8            | Nanoseconds since epoch|
| Curve Count     | uint16          | 2            | C: channels + 1       |
| Curves          | C x curve       | variable     | channels, then response|
+--------------------------------------------------------------------------+

Each curve:

|<-- 2 Bytes -->|<------------- N * 8 Bytes ------------->|
+---------------+------------------------------------------+
|  Point Count  |  N x (x float32, y float32) render units |
+---------------+------------------------------------------+
*/

type wirePoint struct {
	X, Y float32
}

// Packet is a decoded frame.
type Packet struct {
	Seq       uint32
	Timestamp int64
	// Curves holds one curve per channel followed by the response curve.
	Curves []analysis.Curve
}

// Publisher packs frames into datagrams and hands them to a Sender. It
// implements transport.Transport.
type Publisher struct {
	sender *Sender

	mu     sync.Mutex
	packet bytes.Buffer
	points []wirePoint
}

// NewPublisher wraps sender. The publisher owns it and closes it on Close.
func NewPublisher(sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	return &Publisher{sender: sender}, nil
}

// Send packs a *transport.Frame (or Frame value) and transmits it.
func (p *Publisher) Send(data any) error {
	var f *transport.Frame
	switch v := data.(type) {
	case *transport.Frame:
		f = v
	case transport.Frame:
		f = &v
	default:
		return fmt.Errorf("udp publisher: unsupported payload %T", data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.packet.Reset()
	if err := p.encode(&p.packet, f); err != nil {
		return err
	}
	if p.packet.Len() > MaxPacketSize {
		return fmt.Errorf("frame %d is %d bytes: %w", f.Seq, p.packet.Len(), ErrPacketTooLarge)
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	applog.Debugf("Transport: Sent UDP frame %d (%d bytes)", f.Seq, p.packet.Len())
	return nil
}

func (p *Publisher) encode(w io.Writer, f *transport.Frame) error {
	curves := make([]analysis.Curve, 0, len(f.Curves)+1)
	curves = append(curves, f.Curves...)
	curves = append(curves, f.Response)

	header := struct {
		Seq       uint32
		Timestamp int64
		Count     uint16
	}{f.Seq, f.Timestamp, uint16(len(curves))}
	if err := binary.Write(w, binary.BigEndian, header); err != nil {
		return fmt.Errorf("failed to pack header: %w", err)
	}

	for _, c := range curves {
		if len(c) > math.MaxUint16 {
			return fmt.Errorf("curve of %d points: %w", len(c), ErrPacketTooLarge)
		}
		p.points = p.points[:0]
		for _, pt := range c {
			p.points = append(p.points, wirePoint{float32(pt.X), float32(pt.Y)})
		}
		if err := binary.Write(w, binary.BigEndian, uint16(len(p.points))); err != nil {
			return fmt.Errorf("failed to pack curve length: %w", err)
		}
		if err := binary.Write(w, binary.BigEndian, p.points); err != nil {
			return fmt.Errorf("failed to pack curve: %w", err)
		}
	}
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)

// Decode parses a datagram produced by Publisher.
func Decode(b []byte) (Packet, error) {
	r := bytes.NewReader(b)

	var header struct {
		Seq       uint32
		Timestamp int64
		Count     uint16
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return Packet{}, fmt.Errorf("failed to read header: %w", err)
	}

	pkt := Packet{
		Seq:       header.Seq,
		Timestamp: header.Timestamp,
		Curves:    make([]analysis.Curve, header.Count),
	}
	for i := range pkt.Curves {
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Packet{}, fmt.Errorf("failed to read curve %d length: %w", i, err)
		}
		pts := make([]wirePoint, n)
		if err := binary.Read(r, binary.BigEndian, pts); err != nil {
			return Packet{}, fmt.Errorf("failed to read curve %d: %w", i, err)
		}
		c := make(analysis.Curve, n)
		for j, pt := range pts {
			c[j] = analysis.Point{X: float64(pt.X), Y: float64(pt.Y)}
		}
		pkt.Curves[i] = c
	}
	if r.Len() != 0 {
		return Packet{}, fmt.Errorf("%d trailing bytes after curves", r.Len())
	}
	return pkt, nil
}
