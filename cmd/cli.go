// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"paraeq/internal/audio"
	"paraeq/internal/config"
	"paraeq/pkg/build"
)

// Commands selected by ParseArgs.
const (
	CommandRun    = "run"
	CommandList   = "list"
	CommandRender = "render"
)

// Options is the parsed command line: the command to run and the
// configuration after file, environment and flag overrides.
type Options struct {
	Command     string
	ConfigPath  string
	Interactive bool // list: browse devices in the TUI
	TUI         bool // run: show the live analyzer view
	RenderIn    string
	RenderOut   string
	RenderDepth int // render: output bit depth, 0 keeps the source depth
	Config      *config.Config
}

// flagValues holds raw flag values; only flags the user set are applied on
// top of the loaded configuration.
type flagValues struct {
	inputDevice     int
	outputDevice    int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	record          bool
	output          string
	verbose         bool
	fftSize         int
	window          string
	tap             string
	preset          string
	watch           bool
	ws              string
	udp             string
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{Command: CommandRun}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &fv, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandList
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Browse devices interactively")
	rootCmd.AddCommand(listCmd)

	renderCmd := &cobra.Command{
		Use:   "render <input.wav> <output.wav>",
		Short: "Process a WAV file offline through the equalizer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.RenderDepth {
			case 0, 16, 24, 32:
			default:
				return fmt.Errorf("invalid flags: --bit-depth %d must be 16, 24 or 32", opts.RenderDepth)
			}
			opts.Command = CommandRender
			opts.RenderIn, opts.RenderOut = args[0], args[1]
			return nil
		},
	}
	renderCmd.Flags().IntVar(&opts.RenderDepth, "bit-depth", 0,
		"Output bit depth (16, 24 or 32). Default keeps the depth of the input file")
	rootCmd.AddCommand(renderCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "",
		"Path to a YAML config file (default: ./"+config.DefaultPath+" if present)")

	// Audio Device Configuration
	pf.IntVarP(&fv.inputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&fv.outputDevice, "output-device", config.DefaultDeviceID,
		"Specify output device ID")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to process (1=mono, 2=stereo)")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Analyzer Configuration
	pf.IntVar(&fv.fftSize, "fft-size", config.DefaultFFTSize,
		"Analyzer transform size (2048, 4096 or 8192)")
	pf.StringVar(&fv.window, "window", config.DefaultWindow,
		"Analyzer window function")
	pf.StringVar(&fv.tap, "tap", config.DefaultTap,
		"Analyze the signal before (pre) or after (post) the filters")

	// Parameters
	pf.StringVar(&fv.preset, "preset", "",
		"YAML parameter preset to load at startup")
	pf.BoolVar(&fv.watch, "watch", false,
		"Reload the preset when the file changes")

	// Transports
	pf.StringVar(&fv.ws, "ws", "",
		"Serve analysis frames over WebSocket on this address (e.g. 127.0.0.1:8080)")
	pf.StringVar(&fv.udp, "udp", "",
		"Send analysis frames over UDP to this address (e.g. 127.0.0.1:9090)")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", false,
		"Record the processed output")
	pf.StringVarP(&fv.output, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.Flags().BoolVarP(&opts.TUI, "tui", "t", false,
		"Show the live analyzer in the terminal")

	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if opts.Config == nil {
		// --help or --version: nothing to run.
		return nil, nil
	}

	if opts.Config.Recording.Enabled && opts.Config.Recording.OutputFile == "" {
		opts.Config.Recording.OutputFile = audio.DefaultRecordingName(opts.Config.Recording.OutputDir, time.Now())
	}
	return opts, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(flags *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = fv.inputDevice })
	set("output-device", func() { cfg.Audio.OutputDevice = fv.outputDevice })
	set("channels", func() { cfg.Audio.Channels = fv.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })
	set("fft-size", func() { cfg.Analyzer.FFTSize = fv.fftSize })
	set("window", func() { cfg.Analyzer.Window = fv.window })
	set("tap", func() { cfg.Analyzer.Tap = fv.tap })
	set("preset", func() { cfg.Params.Preset = fv.preset })
	set("watch", func() { cfg.Params.Watch = fv.watch })
	set("ws", func() {
		cfg.Transport.WSEnabled = fv.ws != ""
		cfg.Transport.WSAddress = fv.ws
	})
	set("udp", func() {
		cfg.Transport.UDPEnabled = fv.udp != ""
		cfg.Transport.UDPTargetAddress = fv.udp
	})
	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("output", func() {
		cfg.Recording.OutputFile = fv.output
		cfg.Recording.Enabled = true
	})
	set("verbose", func() {
		if fv.verbose {
			cfg.Debug = true
		}
	})
}
