// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"paraeq/cmd"
	"paraeq/internal/analysis"
	"paraeq/internal/audio"
	"paraeq/internal/config"
	"paraeq/internal/eq"
	applog "paraeq/internal/log"
	"paraeq/internal/params"
	"paraeq/internal/transport"
	"paraeq/internal/transport/udp"
	"paraeq/internal/tui"
	"paraeq/pkg/build"
)

// main is the entry point for the equalizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands (list, render) if requested
//   - Build the parameter store, processor, analyzer and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Start the analysis poller
//   - Start the duplex audio stream
//   - Start recording if enabled
//   - Run the analyzer TUI or wait for a signal
//
// 3. Shutdown Phase (Cold Path):
//   - Stop recording and the stream
//   - Stop the poller and close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Warnf("Build: %v", err)
	}

	// Limit OS threads: one for the audio callback, one for analysis,
	// transports and UI.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		return // help or version was printed
	}
	cfg := opts.Config
	applog.Configure(cfg.LogLevel, cfg.Debug)

	switch opts.Command {
	case cmd.CommandList:
		if err := listDevices(opts.Interactive); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	case cmd.CommandRender:
		if err := render(cfg, opts.RenderIn, opts.RenderOut, opts.RenderDepth); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg, opts.TUI); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, showTUI bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	store, watcher, err := loadParams(cfg.Params)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
	}

	// Validated by config, errors here cannot happen.
	tap, _ := eq.ParseTap(cfg.Analyzer.Tap)
	window, _ := analysis.ParseWindowFunc(cfg.Analyzer.Window)
	order, err := analysis.OrderForSize(cfg.Analyzer.FFTSize)
	if err != nil {
		return err
	}

	processor := eq.NewProcessor(cfg.Audio.Channels, tap)
	processor.Prepare(cfg.Audio.FramesPerBuffer, cfg.Analyzer.FifoDepth)

	analyzer, err := analysis.NewAnalyzer(processor.Fifos(), order, window)
	if err != nil {
		return err
	}
	controller := eq.NewController(store, processor, analyzer, cfg.Audio.SampleRate,
		analysis.Rect{Width: cfg.Analyzer.Width, Height: cfg.Analyzer.Height})
	controller.SetFloorDB(cfg.Analyzer.FloorDB)

	transports, err := buildTransports(cfg.Transport)
	if err != nil {
		return err
	}
	poller := eq.NewPoller(controller, cfg.Analyzer.PollRate, transports...)
	defer poller.Close()

	// Install the initial coefficients before the first callback.
	poller.Poll()

	engine, err := audio.NewEngine(cfg.Audio, processor)
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	poller.Start()

	// CRITICAL: Start of real-time audio processing.
	if err := engine.Start(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile, cfg.Recording.BitDepth); err != nil {
			engine.Close()
			return err
		}
	}

	if showTUI {
		if err := tui.StartAnalyzerUI(controller, store); err != nil {
			applog.Errorf("TUI: %v", err)
		}
	} else {
		fmt.Printf("Running. '%s --help' for usage information, Ctrl+C to stop.\n", build.GetBuildFlags().Name)
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if engine.IsRecording() {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		}
		fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
	}

	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
	if n := processor.Overflows(); n > 0 {
		applog.Warnf("Analysis: %d blocks dropped while the analyzer was behind", n)
	}
	return nil
}

// loadParams builds the parameter store, applies the preset and starts the
// preset watcher when configured.
func loadParams(pc config.ParamsConfig) (*params.Store, *params.Watcher, error) {
	store := params.NewStore()
	if pc.Preset == "" {
		return store, nil, nil
	}
	if err := params.LoadFile(pc.Preset, store); err != nil {
		return nil, nil, fmt.Errorf("failed to load preset: %w", err)
	}
	applog.Infof("Params: Loaded preset %s", pc.Preset)

	if !pc.Watch {
		return store, nil, nil
	}
	watcher, err := params.NewWatcher(pc.Preset, store)
	if err != nil {
		return nil, nil, err
	}
	watcher.OnReload = func(err error) {
		if err != nil {
			applog.Warnf("Params: Reload of %s failed: %v", pc.Preset, err)
			return
		}
		applog.Infof("Params: Reloaded %s", pc.Preset)
	}
	watcher.Start()
	return store, watcher, nil
}

func buildTransports(tc config.TransportConfig) ([]transport.Transport, error) {
	var ts []transport.Transport

	if tc.WSEnabled {
		ws, err := transport.NewWebSocketTransport(tc.WSAddress)
		if err != nil {
			return nil, err
		}
		applog.Infof("Transport: WebSocket listening on ws://%s/ws", ws.Addr())
		ts = append(ts, ws)
	}

	if tc.UDPEnabled {
		sender, err := udp.NewSender(tc.UDPTargetAddress)
		if err != nil {
			closeAll(ts)
			return nil, err
		}
		pub, err := udp.NewPublisher(sender)
		if err != nil {
			sender.Close()
			closeAll(ts)
			return nil, err
		}
		applog.Infof("Transport: UDP frames to %s", tc.UDPTargetAddress)
		ts = append(ts, pub)
	}

	if tc.LogFrames || len(ts) == 0 {
		ts = append(ts, transport.NewLoggingTransport())
	}
	return ts, nil
}

func closeAll(ts []transport.Transport) {
	for _, t := range ts {
		t.Close()
	}
}

func listDevices(interactive bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !interactive {
		return audio.ListDevices(os.Stdout)
	}

	sel, ok, err := tui.StartDeviceListUI()
	if err != nil || !ok {
		return err
	}
	fmt.Printf("audio:\n  input_device: %d # %s\n  sample_rate: %.0f\n", sel.DeviceID, sel.DeviceName, sel.SampleRate)
	return nil
}

func render(cfg *config.Config, in, out string, bitDepth int) error {
	store, _, err := loadParams(config.ParamsConfig{Preset: cfg.Params.Preset})
	if err != nil {
		return err
	}
	tap, _ := eq.ParseTap(cfg.Analyzer.Tap)
	window, _ := analysis.ParseWindowFunc(cfg.Analyzer.Window)
	order, err := analysis.OrderForSize(cfg.Analyzer.FFTSize)
	if err != nil {
		return err
	}

	sum, err := audio.RenderFile(in, out, audio.RenderOptions{
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Order:           order,
		Window:          window,
		Tap:             tap,
		Bounds:          analysis.Rect{Width: cfg.Analyzer.Width, Height: cfg.Analyzer.Height},
		BitDepth:        bitDepth,
		Store:           store,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rendered %s -> %s\n", in, out)
	fmt.Printf("  %d frames, %d channels, %.0f Hz, %d-bit\n", sum.Frames, sum.Channels, sum.SampleRate, sum.BitDepth)
	fmt.Printf("  %d blocks, %d analysis frames, spectrum peak %.1f Hz, output peak %.3f\n",
		sum.Blocks, sum.Ticks, sum.PeakFrequency, sum.OutputPeak)
	return nil
}
