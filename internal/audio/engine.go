// SPDX-License-Identifier: MIT
/*
Package audio hosts the equalizer on a PortAudio duplex stream and offline
on WAV files:
- Duplex float32 non-interleaved stream: input is copied to the output
  buffers, filtered in place and tapped for analysis
- WAV recording of the processed output through a lock-free ring
- Offline rendering of WAV files through the same processor

Thread Safety:
- The stream callback only touches the eq.Processor hot path and the
  recorder's ring; it never allocates, locks or logs
- Recorder start/stop swaps an atomic pointer
*/
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"paraeq/internal/config"
	"paraeq/internal/eq"
	applog "paraeq/internal/log"
)

// Engine owns the PortAudio stream that feeds an eq.Processor.
type Engine struct {
	cfg       config.AudioConfig
	processor *eq.Processor

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	recorder  atomic.Pointer[Recorder]
	callbacks atomic.Uint64
}

// NewEngine resolves the configured devices. The processor must have been
// created for cfg.Channels channels and prepared before Start.
func NewEngine(cfg config.AudioConfig, processor *eq.Processor) (*Engine, error) {
	if processor == nil {
		return nil, fmt.Errorf("engine: nil processor")
	}

	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		processor:    processor,
		inputDevice:  inputDevice,
		outputDevice: outputDevice,
	}

	if cfg.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
		e.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
		e.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return e, nil
}

// Start opens and starts the duplex stream.
func (e *Engine) Start() error {
	if e.stream != nil {
		return fmt.Errorf("engine: stream already running")
	}

	inChannels := min(e.cfg.Channels, e.inputDevice.MaxInputChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: inChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Channels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("engine: failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("engine: failed to start stream: %w", err)
	}
	e.stream = stream

	applog.Infof("Engine: Stream started (%s -> %s, %d in / %d out channels, %.0f Hz, %d frames)",
		e.inputDevice.Name, e.outputDevice.Name, inChannels, e.cfg.Channels,
		e.cfg.SampleRate, e.cfg.FramesPerBuffer)
	return nil
}

// Stop stops and closes the stream, if running.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	applog.Infof("Engine: Stream stopped after %d callbacks.", e.callbacks.Load())
	return nil
}

// processStream is the real-time callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	routeInput(in, out)
	e.processor.ProcessBlock(out)

	if r := e.recorder.Load(); r != nil {
		r.Write(out)
	}
	e.callbacks.Add(1)
}

// routeInput copies each input channel to the matching output channel. A
// mono input is duplicated to every output; output channels with no input
// are silenced.
func routeInput(in, out [][]float32) {
	for ch, dst := range out {
		switch {
		case ch < len(in):
			copy(dst, in[ch])
		case len(in) == 1:
			copy(dst, in[0])
		default:
			clear(dst)
		}
	}
}

// StartRecording begins writing the processed output to filename.
func (e *Engine) StartRecording(filename string, bitDepth int) error {
	if e.recorder.Load() != nil {
		return ErrAlreadyRecording
	}

	r, err := NewRecorder(filename, e.cfg.Channels, e.cfg.SampleRate, bitDepth, e.cfg.FramesPerBuffer)
	if err != nil {
		return err
	}
	if !e.recorder.CompareAndSwap(nil, r) {
		r.Close()
		return ErrAlreadyRecording
	}
	return nil
}

// StopRecording detaches the recorder and finalises its file. It is a
// no-op when not recording.
func (e *Engine) StopRecording() error {
	r := e.recorder.Swap(nil)
	if r == nil {
		return nil
	}
	return r.Close()
}

// IsRecording reports whether a recorder is attached.
func (e *Engine) IsRecording() bool {
	return e.recorder.Load() != nil
}

// Callbacks returns the number of stream callbacks served.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// Close stops recording and the stream.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	return e.Stop()
}
