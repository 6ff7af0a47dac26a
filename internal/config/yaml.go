// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"paraeq/internal/analysis"
	"paraeq/internal/eq"
	applog "paraeq/internal/log"
)

// DefaultPath is searched when LoadConfig is given an empty path.
const DefaultPath = "config.yaml"

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it tries DefaultPath and falls back to the built-in defaults when
// that does not exist. Environment overrides are applied after the file,
// then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	a := c.Audio
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio devices must be >= %d", MinDeviceID))
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames))
	}
	if a.Channels < 1 || a.Channels > MaxChannels {
		errs = append(errs, fmt.Errorf("audio.channels %d outside [1, %d]", a.Channels, MaxChannels))
	}

	an := c.Analyzer
	if _, err := analysis.OrderForSize(an.FFTSize); err != nil {
		errs = append(errs, fmt.Errorf("analyzer.fft_size: %w", err))
	}
	if _, err := analysis.ParseWindowFunc(an.Window); err != nil {
		errs = append(errs, fmt.Errorf("analyzer.window: %w", err))
	}
	if _, err := eq.ParseTap(an.Tap); err != nil {
		errs = append(errs, fmt.Errorf("analyzer.tap: %w", err))
	}
	if an.FloorDB >= 0 {
		errs = append(errs, fmt.Errorf("analyzer.floor_db %.1f must be negative", an.FloorDB))
	}
	if an.PollRate < MinPollRate || an.PollRate > MaxPollRate {
		errs = append(errs, fmt.Errorf("analyzer.poll_rate_hz %.1f outside [%.0f, %.0f]", an.PollRate, MinPollRate, MaxPollRate))
	}
	if an.Width <= 0 || an.Height <= 0 {
		errs = append(errs, errors.New("analyzer width and height must be positive"))
	}
	if an.FifoDepth < 1 {
		errs = append(errs, fmt.Errorf("analyzer.fifo_depth %d must be positive", an.FifoDepth))
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("recording.bit_depth %d must be 16, 24 or 32", c.Recording.BitDepth))
	}

	t := c.Transport
	if t.WSEnabled && t.WSAddress == "" {
		errs = append(errs, errors.New("transport.ws_address must be set when websocket is enabled"))
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			errs = append(errs, errors.New("transport.udp_target_address must be set when UDP is enabled"))
		} else if !strings.Contains(t.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress))
		}
	}

	if c.Params.Watch && c.Params.Preset == "" {
		errs = append(errs, errors.New("params.watch requires params.preset"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("ENV_DEBUG", &c.Debug)
	envString("ENV_LOG_LEVEL", &c.LogLevel)

	envFloat("ENV_SAMPLE_RATE", &c.Audio.SampleRate)
	envInt("ENV_FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)

	envInt("ENV_FFT_SIZE", &c.Analyzer.FFTSize)
	envString("ENV_FFT_WINDOW", &c.Analyzer.Window)
	envString("ENV_ANALYZER_TAP", &c.Analyzer.Tap)

	envBool("ENV_WS_ENABLED", &c.Transport.WSEnabled)
	envString("ENV_WS_ADDRESS", &c.Transport.WSAddress)
	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)

	envString("ENV_PRESET", &c.Params.Preset)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("configuration: Overriding %s from env: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: Overriding %s from env: %v", key, b)
}

func envInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
	applog.Debugf("configuration: Overriding %s from env: %d", key, n)
}

func envFloat(key string, dst *float64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = f
	applog.Debugf("configuration: Overriding %s from env: %g", key, f)
}
