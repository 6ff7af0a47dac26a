// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paraeq/internal/analysis"
	"paraeq/internal/params"
	"paraeq/internal/transport"
)

// RefreshInterval is how often the analyzer view redraws.
const RefreshInterval = 50 * time.Millisecond

const (
	gainStep = 0.5       // dB
	freqStep = 1.1224620 // a sixth of an octave
)

// Plot glyphs, drawn in this order so the response stays on top.
var curveGlyphs = []rune{'.', ':', '\''}

const responseGlyph = '*'

var (
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	paramStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
)

var (
	toggleAnalyzerKey = key.NewBinding(key.WithKeys("a"))
	togglePeakKey     = key.NewBinding(key.WithKeys("p"))
	toggleLowCutKey   = key.NewBinding(key.WithKeys("l"))
	toggleHighCutKey  = key.NewBinding(key.WithKeys("h"))
	gainUpKey         = key.NewBinding(key.WithKeys("+", "="))
	gainDownKey       = key.NewBinding(key.WithKeys("-", "_"))
	freqUpKey         = key.NewBinding(key.WithKeys("]", "right"))
	freqDownKey       = key.NewBinding(key.WithKeys("[", "left"))
	resetKey          = key.NewBinding(key.WithKeys("r"))
	orderKey          = key.NewBinding(key.WithKeys("o"))
)

// FrameSource supplies the most recent analysis frame.
type FrameSource interface {
	Latest() *transport.Frame
}

// OrderSetter is implemented by sources whose transform size can change
// while running.
type OrderSetter interface {
	Order() analysis.Order
	SetOrder(analysis.Order) error
}

// nextOrder cycles 2048 -> 4096 -> 8192 -> 2048.
func nextOrder(o analysis.Order) analysis.Order {
	if next := o + 1; next.Valid() {
		return next
	}
	return analysis.Order2048
}

type refreshMsg time.Time

// AnalyzerModel shows the live spectrum and response curve and edits the
// peak band through the parameter store.
type AnalyzerModel struct {
	source FrameSource
	store  *params.Store
	width  int
	height int
	frame  *transport.Frame
	err    error
}

// NewAnalyzerModel returns a model reading frames from source.
func NewAnalyzerModel(source FrameSource, store *params.Store) AnalyzerModel {
	return AnalyzerModel{source: source, store: store, width: 80, height: 24}
}

func refresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m AnalyzerModel) Init() tea.Cmd {
	return refresh()
}

func (m AnalyzerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case refreshMsg:
		m.frame = m.source.Latest()
		return m, refresh()

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
		m.err = m.handleKey(msg)
	}
	return m, nil
}

func (m AnalyzerModel) handleKey(msg tea.KeyMsg) error {
	s := m.store
	switch {
	case key.Matches(msg, toggleAnalyzerKey):
		return s.Toggle(params.AnalyzerEnabled)
	case key.Matches(msg, togglePeakKey):
		return s.Toggle(params.PeakBypassed)
	case key.Matches(msg, toggleLowCutKey):
		return s.Toggle(params.LowCutBypassed)
	case key.Matches(msg, toggleHighCutKey):
		return s.Toggle(params.HighCutBypassed)
	case key.Matches(msg, gainUpKey):
		return s.Set(params.PeakGain, s.Get(params.PeakGain)+gainStep)
	case key.Matches(msg, gainDownKey):
		return s.Set(params.PeakGain, s.Get(params.PeakGain)-gainStep)
	case key.Matches(msg, freqUpKey):
		return s.Set(params.PeakFreq, s.Get(params.PeakFreq)*freqStep)
	case key.Matches(msg, freqDownKey):
		return s.Set(params.PeakFreq, s.Get(params.PeakFreq)/freqStep)
	case key.Matches(msg, resetKey):
		s.Reset()
	case key.Matches(msg, orderKey):
		if oc, ok := m.source.(OrderSetter); ok {
			return oc.SetOrder(nextOrder(oc.Order()))
		}
	}
	return nil
}

func (m AnalyzerModel) View() string {
	cols := max(m.width-2, 10)
	rows := max(m.height-8, 4)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Parametric EQ"))
	sb.WriteString("\n\n")
	sb.WriteString(axisStyle.Render(strings.Repeat("─", cols)))
	sb.WriteString("\n")
	sb.WriteString(RenderPlot(m.frame, cols, rows))
	sb.WriteString(axisStyle.Render(strings.Repeat("─", cols)))
	sb.WriteString("\n")
	sb.WriteString(paramStyle.Render(m.paramLine()))
	if oc, ok := m.source.(OrderSetter); ok {
		sb.WriteString(paramStyle.Render(fmt.Sprintf("  FFT %d", oc.Order().Size())))
	}
	sb.WriteString("\n")
	if m.err != nil {
		fmt.Fprintf(&sb, "Error: %v\n", m.err)
	}
	sb.WriteString(infoStyle.Render("a: Analyzer • p/l/h: Bypass • +/-: Gain • [/]: Freq • o: FFT size • r: Reset • q: Quit"))
	return sb.String()
}

func (m AnalyzerModel) paramLine() string {
	s := m.store
	state := func(id params.ID) string {
		if s.Bool(id) {
			return "off"
		}
		return "on"
	}
	return fmt.Sprintf("Peak %s %s Q %s [%s]  LowCut %s %s [%s]  HighCut %s %s [%s]  Analyzer %s",
		s.Format(params.PeakFreq), s.Format(params.PeakGain), s.Format(params.PeakQuality), state(params.PeakBypassed),
		s.Format(params.LowCutFreq), s.Format(params.LowCutSlope), state(params.LowCutBypassed),
		s.Format(params.HighCutFreq), s.Format(params.HighCutSlope), state(params.HighCutBypassed),
		s.Format(params.AnalyzerEnabled))
}

// RenderPlot rasterises a frame's channel curves and response curve onto a
// cols x rows character grid, one line per row. A nil frame renders blank.
func RenderPlot(f *transport.Frame, cols, rows int) string {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
	}

	if f != nil && f.Bounds.Width > 0 && f.Bounds.Height > 0 {
		for i, c := range f.Curves {
			plotCurve(grid, c, f.Bounds, curveGlyphs[i%len(curveGlyphs)])
		}
		plotCurve(grid, f.Response, f.Bounds, responseGlyph)
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteString("\n")
	}
	return sb.String()
}

func plotCurve(grid [][]rune, c analysis.Curve, b analysis.Rect, glyph rune) {
	rows := len(grid)
	if rows == 0 {
		return
	}
	cols := len(grid[0])
	for _, p := range c {
		col := int(math.Round((p.X - b.X) / b.Width * float64(cols-1)))
		row := int(math.Round((p.Y - b.Y) / b.Height * float64(rows-1)))
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		grid[row][col] = glyph
	}
}

// StartAnalyzerUI runs the live analyzer view until the user quits.
func StartAnalyzerUI(source FrameSource, store *params.Store) error {
	p := tea.NewProgram(NewAnalyzerModel(source, store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
