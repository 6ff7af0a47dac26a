// SPDX-License-Identifier: MIT
package config

// Boundaries and defaults for the equalizer host.
const (
	DefaultChannels        = 2
	DefaultDeviceID        = MinDeviceID // system default device
	DefaultFramesPerBuffer = 512
	DefaultSampleRate      = 48000
	DefaultLogLevel        = "info"

	DefaultFFTSize   = 2048
	DefaultWindow    = "BlackmanHarris"
	DefaultFloorDB   = -48.0
	DefaultPollRate  = 60.0
	DefaultTap       = "pre"
	DefaultWidth     = 600
	DefaultHeight    = 300
	DefaultFifoDepth = 30

	DefaultRecordingDir = "./recordings"
	DefaultWSAddress    = "127.0.0.1:8080"
	DefaultUDPTarget    = "127.0.0.1:9090"

	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxChannels     = 32
	MinPollRate     = 1.0
	MaxPollRate     = 1000.0
)

// Config is the full runtime configuration, loaded from YAML and then
// overridden by ENV_* variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Params    ParamsConfig    `yaml:"params"`
}

// AudioConfig holds the duplex stream settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`  // PortAudio device index, -1 for default
	OutputDevice    int     `yaml:"output_device"` // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	LowLatency      bool    `yaml:"low_latency"`
	Channels        int     `yaml:"channels"`
}

// AnalyzerConfig holds the spectrum analyzer settings.
type AnalyzerConfig struct {
	FFTSize   int     `yaml:"fft_size"` // 2048, 4096 or 8192
	Window    string  `yaml:"window"`
	FloorDB   float64 `yaml:"floor_db"`
	PollRate  float64 `yaml:"poll_rate_hz"`
	Tap       string  `yaml:"tap"` // "pre" or "post"
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	FifoDepth int     `yaml:"fifo_depth"` // blocks per channel fifo
}

// RecordingConfig holds settings for recording the processed output.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputDir  string `yaml:"output_dir"`
	OutputFile string `yaml:"output_file"` // empty generates a timestamped name in OutputDir
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig holds the frame publishing settings.
type TransportConfig struct {
	WSEnabled        bool   `yaml:"ws_enabled"`
	WSAddress        string `yaml:"ws_address"`
	UDPEnabled       bool   `yaml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address"`
	LogFrames        bool   `yaml:"log_frames"`
}

// ParamsConfig points at an optional preset file.
type ParamsConfig struct {
	Preset string `yaml:"preset"`
	Watch  bool   `yaml:"watch"` // reload the preset when it changes on disk
}

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Channels:        DefaultChannels,
		},
		Analyzer: AnalyzerConfig{
			FFTSize:   DefaultFFTSize,
			Window:    DefaultWindow,
			FloorDB:   DefaultFloorDB,
			PollRate:  DefaultPollRate,
			Tap:       DefaultTap,
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			FifoDepth: DefaultFifoDepth,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WSAddress:        DefaultWSAddress,
			UDPTargetAddress: DefaultUDPTarget,
		},
	}
}
