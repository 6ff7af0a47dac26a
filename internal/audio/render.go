// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"paraeq/internal/analysis"
	"paraeq/internal/eq"
	applog "paraeq/internal/log"
	"paraeq/internal/params"
)

var ErrInvalidWAV = errors.New("not a valid WAV file")

// RenderOptions controls an offline render. Zero values select defaults.
type RenderOptions struct {
	FramesPerBuffer int
	Order           analysis.Order
	Window          analysis.WindowFunc
	Tap             eq.Tap
	Bounds          analysis.Rect
	BitDepth        int           // 0 keeps the source depth
	Store           *params.Store // nil renders with default parameters
}

// RenderSummary describes a finished render.
type RenderSummary struct {
	Frames        int
	Channels      int
	SampleRate    float64
	BitDepth      int
	Blocks        int
	Ticks         int            // controller ticks that produced a frame
	PeakFrequency float64        // loudest bin of channel 0's last spectrum, Hz
	OutputPeak    float64        // largest absolute output sample
	Controller    *eq.Controller // for inspecting the final frame
}

// RenderFile runs the WAV file at in through the equalizer and writes the
// result to out. The analyzer is ticked after every block, so the summary
// reflects the end of the file.
func RenderFile(in, out string, opts RenderOptions) (RenderSummary, error) {
	var sum RenderSummary

	src, err := os.Open(in)
	if err != nil {
		return sum, err
	}
	defer src.Close()

	dec := wav.NewDecoder(src)
	if !dec.IsValidFile() {
		return sum, fmt.Errorf("%s: %w", in, ErrInvalidWAV)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return sum, fmt.Errorf("render: failed to decode %s: %w", in, err)
	}

	channels := int(dec.NumChans)
	sampleRate := float64(dec.SampleRate)
	srcDepth := int(dec.BitDepth)
	if channels < 1 || sampleRate <= 0 || srcDepth < 8 {
		return sum, fmt.Errorf("%s: %w (channels=%d rate=%.0f depth=%d)", in, ErrInvalidWAV, channels, sampleRate, srcDepth)
	}

	opts = opts.withDefaults(srcDepth)
	store := opts.Store
	if store == nil {
		store = params.NewStore()
	}

	processor := eq.NewProcessor(channels, opts.Tap)
	processor.Prepare(opts.FramesPerBuffer, 0)
	analyzer, err := analysis.NewAnalyzer(processor.Fifos(), opts.Order, opts.Window)
	if err != nil {
		return sum, err
	}
	controller := eq.NewController(store, processor, analyzer, sampleRate, opts.Bounds)

	frames := len(pcm.Data) / channels
	inScale := float64(int64(1) << (srcDepth - 1))
	outScale := float64(int64(1)<<(opts.BitDepth-1) - 1)
	outData := make([]int, frames*channels)

	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, opts.FramesPerBuffer)
	}

	sum = RenderSummary{
		Frames:     frames,
		Channels:   channels,
		SampleRate: sampleRate,
		BitDepth:   opts.BitDepth,
		Controller: controller,
	}

	// The first tick installs the coefficients before any audio is filtered.
	if _, ok := controller.Tick(); ok {
		sum.Ticks++
	}

	for start := 0; start < frames; start += opts.FramesPerBuffer {
		n := min(opts.FramesPerBuffer, frames-start)
		for ch := range block {
			block[ch] = block[ch][:n]
			for i := range n {
				block[ch][i] = float32(float64(pcm.Data[(start+i)*channels+ch]) / inScale)
			}
		}

		processor.ProcessBlock(block)

		for ch := range block {
			for i, s := range block[ch] {
				v := float64(s)
				sum.OutputPeak = math.Max(sum.OutputPeak, math.Abs(v))
				v = math.Max(-1, math.Min(1, v))
				outData[(start+i)*channels+ch] = int(math.Round(v * outScale))
			}
		}
		sum.Blocks++

		if _, ok := controller.Tick(); ok {
			sum.Ticks++
		}
	}

	if producers := analyzer.Producers(); len(producers) > 0 {
		sum.PeakFrequency = peakFrequency(producers[0].Spectrum(), sampleRate/float64(producers[0].FFTSize()))
	}

	if err := writeWAV(out, &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(sampleRate)},
		Data:           outData,
		SourceBitDepth: opts.BitDepth,
	}, opts.BitDepth); err != nil {
		return sum, err
	}

	applog.Infof("Render: %s -> %s (%d frames, %d channels, %.0f Hz, %d blocks)",
		in, out, frames, channels, sampleRate, sum.Blocks)
	return sum, nil
}

func (o RenderOptions) withDefaults(srcDepth int) RenderOptions {
	if o.FramesPerBuffer <= 0 {
		o.FramesPerBuffer = 512
	}
	if !o.Order.Valid() {
		o.Order = analysis.DefaultOrder
	}
	if o.Bounds.Width <= 0 || o.Bounds.Height <= 0 {
		o.Bounds = analysis.Rect{Width: 600, Height: 300}
	}
	switch o.BitDepth {
	case 16, 24, 32:
	default:
		o.BitDepth = srcDepth
		if o.BitDepth != 16 && o.BitDepth != 24 && o.BitDepth != 32 {
			o.BitDepth = 16
		}
	}
	return o
}

func writeWAV(path string, buf *audio.IntBuffer, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("render: failed to encode %s: %w", path, err)
	}
	return enc.Close()
}

// peakFrequency returns the centre frequency of the loudest bin above DC.
func peakFrequency(spectrum []float64, binWidth float64) float64 {
	best, at := math.Inf(-1), 0
	for i := 1; i < len(spectrum); i++ {
		if spectrum[i] > best {
			best, at = spectrum[i], i
		}
	}
	return float64(at) * binWidth
}
