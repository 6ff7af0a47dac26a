// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"paraeq/internal/config"
	"paraeq/internal/eq"
	"paraeq/internal/filter"
	"paraeq/pkg/utils"
)

const (
	testSampleRate = 48000.0
	testFrameSize  = 256
)

// newTestEngine returns an engine with no stream, for driving the callback
// directly.
func newTestEngine(t *testing.T, channels int) *Engine {
	t.Helper()
	p := eq.NewProcessor(channels, eq.TapPre)
	p.Prepare(testFrameSize, 0)
	return &Engine{
		cfg: config.AudioConfig{
			SampleRate:      testSampleRate,
			Channels:        channels,
			FramesPerBuffer: testFrameSize,
		},
		processor: p,
	}
}

func outputs(channels int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, testFrameSize)
	}
	return out
}

func TestRouteInput(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	tests := []struct {
		name string
		in   [][]float32
		want [][]float32
	}{
		{"stereo to stereo", [][]float32{a, b}, [][]float32{a, b}},
		{"mono duplicated", [][]float32{a}, [][]float32{a, a}},
		{"no input silences", nil, [][]float32{{0, 0, 0}, {0, 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := [][]float32{{9, 9, 9}, {9, 9, 9}}
			routeInput(tt.in, out)
			for ch := range out {
				for i := range out[ch] {
					if out[ch][i] != tt.want[ch][i] {
						t.Fatalf("out[%d][%d] = %g, want %g", ch, i, out[ch][i], tt.want[ch][i])
					}
				}
			}
		})
	}
}

func TestProcessStreamAppliesChain(t *testing.T) {
	e := newTestEngine(t, 2)
	e.processor.UpdateChain(filter.ChainSettings{
		PeakFreq: 1000, PeakGainDB: -12, PeakQuality: 1,
		LowCutFreq: 20, HighCutFreq: 20000,
		LowCutSlopeOrder: 1, HighCutSlopeOrder: 1,
	}, testSampleRate)

	const n = 48000
	src := utils.GenerateSineWave(n, testSampleRate, 1000, 0.5)
	got := make([]float32, 0, n)
	out := outputs(2)
	for start := 0; start+testFrameSize <= n; start += testFrameSize {
		e.processStream([][]float32{src[start : start+testFrameSize]}, out)
		got = append(got, out[1]...)
	}

	gain := utils.PeakAmplitude(got[len(got)-4800:]) / 0.5
	if want := math.Pow(10, -12.0/20); math.Abs(gain-want)/want > 0.05 {
		t.Errorf("gain = %.4f, want %.4f", gain, want)
	}
	if e.Callbacks() != uint64(n/testFrameSize) {
		t.Errorf("Callbacks = %d, want %d", e.Callbacks(), n/testFrameSize)
	}
	if avail := e.processor.Fifos()[0].NumCompleteBuffersAvailable(); avail == 0 {
		t.Error("callback did not feed the analysis fifo")
	}
}

func TestEngineRecording(t *testing.T) {
	e := newTestEngine(t, 2)
	path := filepath.Join(t.TempDir(), "take.wav")

	if e.IsRecording() {
		t.Fatal("new engine reports recording")
	}
	if err := e.StartRecording(path, 16); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := e.StartRecording(path, 16); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second StartRecording = %v, want ErrAlreadyRecording", err)
	}

	in := [][]float32{utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 0.5)}
	out := outputs(2)
	for range 20 {
		e.processStream(in, out)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if e.IsRecording() {
		t.Error("engine still recording after Close")
	}
	if err := e.StopRecording(); err != nil {
		t.Errorf("StopRecording when idle = %v", err)
	}

	channels, frames := readWAVShape(t, path)
	if channels != 2 || frames != 20*testFrameSize {
		t.Errorf("recorded %d channels x %d frames, want 2 x %d", channels, frames, 20*testFrameSize)
	}
}

func TestProcessStreamZeroAllocs(t *testing.T) {
	e := newTestEngine(t, 2)
	e.processor.UpdateChain(filter.DefaultSettings(), testSampleRate)
	in := [][]float32{
		utils.GenerateComplexWave(testFrameSize, testSampleRate),
		utils.GenerateComplexWave(testFrameSize, testSampleRate),
	}
	out := outputs(2)
	if err := e.StartRecording(filepath.Join(t.TempDir(), "allocs.wav"), 16); err != nil {
		t.Fatal(err)
	}
	defer e.StopRecording()

	allocs := testing.AllocsPerRun(100, func() {
		e.processStream(in, out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in the stream callback, got %.1f", allocs)
	}
}

func BenchmarkProcessStream(b *testing.B) {
	p := eq.NewProcessor(2, eq.TapPre)
	p.Prepare(testFrameSize, 0)
	p.UpdateChain(filter.DefaultSettings(), testSampleRate)
	e := &Engine{processor: p}
	in := [][]float32{
		utils.GenerateComplexWave(testFrameSize, testSampleRate),
		utils.GenerateComplexWave(testFrameSize, testSampleRate),
	}
	out := [][]float32{make([]float32, testFrameSize), make([]float32, testFrameSize)}

	b.ReportAllocs()
	for b.Loop() {
		e.processStream(in, out)
	}
}
