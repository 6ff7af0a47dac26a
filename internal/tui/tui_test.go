// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"paraeq/internal/analysis"
	"paraeq/internal/audio"
	"paraeq/internal/params"
	"paraeq/internal/transport"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderPlotBlankWithoutFrame(t *testing.T) {
	out := RenderPlot(nil, 8, 3)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for _, l := range lines {
		if l != strings.Repeat(" ", 8) {
			t.Errorf("line %q is not blank", l)
		}
	}
}

func TestRenderPlotPlacesCurves(t *testing.T) {
	bounds := analysis.Rect{X: 10, Y: 0, Width: 100, Height: 50}
	f := &transport.Frame{
		Bounds: bounds,
		Curves: []analysis.Curve{
			{{X: 10, Y: 50}},   // bottom-left
			{{X: 110, Y: 0}},   // top-right
			{{X: 500, Y: 500}}, // outside, ignored
		},
		Response: analysis.Curve{{X: 10, Y: 50}}, // drawn over channel 0
	}

	lines := strings.Split(strings.TrimSuffix(RenderPlot(f, 11, 6), "\n"), "\n")
	if got := []rune(lines[5])[0]; got != responseGlyph {
		t.Errorf("bottom-left = %q, want response glyph", got)
	}
	if got := []rune(lines[0])[10]; got != curveGlyphs[1] {
		t.Errorf("top-right = %q, want channel 1 glyph", got)
	}
	if n := strings.Count(strings.Join(lines, ""), string(curveGlyphs[2])); n != 0 {
		t.Errorf("out-of-bounds point drawn %d times", n)
	}
}

type fakeSource struct{ frame *transport.Frame }

func (f fakeSource) Latest() *transport.Frame { return f.frame }

func TestAnalyzerModelKeysEditStore(t *testing.T) {
	store := params.NewStore()
	m := NewAnalyzerModel(fakeSource{}, store)

	tests := []struct {
		key   string
		id    params.ID
		check func(float64) bool
	}{
		{"+", params.PeakGain, func(v float64) bool { return v == gainStep }},
		{"-", params.PeakGain, func(v float64) bool { return v == 0 }},
		{"]", params.PeakFreq, func(v float64) bool { return v > 750 }},
		{"p", params.PeakBypassed, func(v float64) bool { return v == 1 }},
		{"l", params.LowCutBypassed, func(v float64) bool { return v == 1 }},
		{"h", params.HighCutBypassed, func(v float64) bool { return v == 1 }},
		{"a", params.AnalyzerEnabled, func(v float64) bool { return v == 0 }},
		{"r", params.PeakBypassed, func(v float64) bool { return v == 0 }},
	}
	for _, tt := range tests {
		next, _ := m.Update(runes(tt.key))
		m = next.(AnalyzerModel)
		if v := store.Get(tt.id); !tt.check(v) {
			t.Errorf("after %q %s = %v", tt.key, tt.id, v)
		}
	}
}

type orderSource struct {
	fakeSource
	order analysis.Order
}

func (s *orderSource) Order() analysis.Order { return s.order }

func (s *orderSource) SetOrder(o analysis.Order) error {
	s.order = o
	return nil
}

func TestAnalyzerModelCyclesOrder(t *testing.T) {
	src := &orderSource{order: analysis.Order2048}
	m := NewAnalyzerModel(src, params.NewStore())

	for _, want := range []analysis.Order{analysis.Order4096, analysis.Order8192, analysis.Order2048} {
		next, _ := m.Update(runes("o"))
		m = next.(AnalyzerModel)
		if src.order != want {
			t.Errorf("order = %d, want %d", src.order, want)
		}
	}
	if !strings.Contains(m.View(), "FFT 2048") {
		t.Errorf("view missing transform size:\n%s", m.View())
	}

	// Sources without order control ignore the key.
	plain := NewAnalyzerModel(fakeSource{}, params.NewStore())
	if next, _ := plain.Update(runes("o")); next.(AnalyzerModel).err != nil {
		t.Errorf("unexpected error %v", next.(AnalyzerModel).err)
	}
}

func TestAnalyzerModelRefreshPullsFrame(t *testing.T) {
	frame := &transport.Frame{Seq: 7}
	m := NewAnalyzerModel(fakeSource{frame: frame}, params.NewStore())

	next, cmd := m.Update(refreshMsg{})
	if next.(AnalyzerModel).frame != frame {
		t.Error("refresh did not pick up the latest frame")
	}
	if cmd == nil {
		t.Error("refresh did not schedule the next one")
	}
	if !strings.Contains(next.View(), "Peak 750 Hz") {
		t.Errorf("view missing parameter line:\n%s", next.View())
	}
}

func testDeviceList() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Mic", MaxInputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}
}

func TestDeviceListSelection(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDeviceList(), nil })

	msg := m.Init()()
	steps := []tea.Msg{
		tea.WindowSizeMsg{Width: 80, Height: 30},
		msg,
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter}, // configure Interface, default 96 kHz
		tea.KeyMsg{Type: tea.KeyUp},    // 88.2 kHz
		tea.KeyMsg{Type: tea.KeyEnter},
	}
	var model tea.Model = m
	for _, s := range steps {
		model, _ = model.Update(s)
	}

	sel, ok := model.(DeviceListModel).Selection()
	if !ok {
		t.Fatal("no selection after confirming")
	}
	if sel.DeviceID != 1 || sel.DeviceName != "Interface" || sel.SampleRate != 88200 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDeviceListViews(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View before size = %q", got)
	}

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	if !strings.Contains(model.View(), "No audio devices found.") {
		t.Errorf("empty list view:\n%s", model.View())
	}

	model, _ = model.Update(m.Init()())
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("error view:\n%s", model.View())
	}
}

func TestDeviceKind(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 2, "Input/Output"},
		{2, 0, "Input"},
		{0, 2, "Output"},
		{0, 0, "Unavailable"},
	}
	for _, tt := range tests {
		d := audio.Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := deviceKind(d); got != tt.want {
			t.Errorf("deviceKind(%d, %d) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}
