// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"paraeq/internal/analysis"
)

func testFrame() *Frame {
	curves := []analysis.Curve{
		{{X: 0, Y: 10}, {X: 1, Y: 11}},
		{{X: 0, Y: 20}},
	}
	response := analysis.Curve{{X: 0, Y: 50}, {X: 1, Y: 49}, {X: 2, Y: 48}}
	return NewFrame(7, 48000, analysis.Rect{Width: 3, Height: 100}, curves, response)
}

func TestNewFrameCopiesCurves(t *testing.T) {
	curves := []analysis.Curve{{{X: 1, Y: 2}}}
	response := analysis.Curve{{X: 3, Y: 4}}
	f := NewFrame(1, 44100, analysis.Rect{}, curves, response)

	curves[0][0].Y = 99
	response[0].Y = 99
	if f.Curves[0][0].Y != 2 || f.Response[0].Y != 4 {
		t.Errorf("frame aliases producer buffers: %+v", f)
	}
	if f.Timestamp == 0 {
		t.Error("frame not timestamped")
	}
}

func TestAsFrame(t *testing.T) {
	f := testFrame()
	if got, ok := asFrame(f); !ok || got != f {
		t.Error("pointer not accepted")
	}
	if got, ok := asFrame(*f); !ok || got.Seq != f.Seq {
		t.Error("value not accepted")
	}
	if _, ok := asFrame((*Frame)(nil)); ok {
		t.Error("nil pointer accepted")
	}
	if _, ok := asFrame("frame"); ok {
		t.Error("string accepted")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(testFrame()); err != nil {
		t.Errorf("Send(frame) = %v", err)
	}
	if err := lt.Send(42); err != nil {
		t.Errorf("Send(int) = %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketTransportBroadcastsFrames(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer wst.Close()

	url := fmt.Sprintf("ws://%s/ws", wst.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	waitFor(t, "client registration", func() bool { return wst.ClientCount() == 1 })

	sent := testFrame()
	if err := wst.Send(sent); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Seq != sent.Seq || len(got.Curves) != 2 || len(got.Response) != 3 || got.Curves[0][1].Y != 11 {
		t.Errorf("received %+v, want %+v", got, sent)
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return wst.ClientCount() == 0 })
}

func TestWebSocketTransportSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := wst.Send(testFrame()); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
