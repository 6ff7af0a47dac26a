// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Analyzer.FFTSize != DefaultFFTSize || cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_DefaultPathInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultPath), []byte("log_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
audio:
  sample_rate: 44100
analyzer:
  fft_size: 8192
  window: hann
  tap: post
transport:
  udp_enabled: true
params:
  preset: presets/vocal.yaml
  watch: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Analyzer.FFTSize != 8192 || cfg.Analyzer.Tap != "post" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer || cfg.Analyzer.PollRate != DefaultPollRate {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Transport.UDPTargetAddress != DefaultUDPTarget {
		t.Errorf("UDPTargetAddress = %q", cfg.Transport.UDPTargetAddress)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
audio:
  sample_rate: 100
analyzer:
  fft_size: 1000
  window: triangle
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"sample_rate", "fft_size", "window"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad device", func(c *Config) { c.Audio.InputDevice = -2 }, true},
		{"zero frames", func(c *Config) { c.Audio.FramesPerBuffer = 0 }, true},
		{"too many frames", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, true},
		{"no channels", func(c *Config) { c.Audio.Channels = 0 }, true},
		{"fft 4096", func(c *Config) { c.Analyzer.FFTSize = 4096 }, false},
		{"fft 1024", func(c *Config) { c.Analyzer.FFTSize = 1024 }, true},
		{"bad tap", func(c *Config) { c.Analyzer.Tap = "mid" }, true},
		{"positive floor", func(c *Config) { c.Analyzer.FloorDB = 3 }, true},
		{"slow poll", func(c *Config) { c.Analyzer.PollRate = 0.5 }, true},
		{"no width", func(c *Config) { c.Analyzer.Width = 0 }, true},
		{"no fifo depth", func(c *Config) { c.Analyzer.FifoDepth = 0 }, true},
		{"bit depth 24", func(c *Config) { c.Recording.BitDepth = 24 }, false},
		{"bit depth 12", func(c *Config) { c.Recording.BitDepth = 12 }, true},
		{"ws without address", func(c *Config) { c.Transport.WSEnabled = true; c.Transport.WSAddress = "" }, true},
		{"udp without port", func(c *Config) { c.Transport.UDPEnabled = true; c.Transport.UDPTargetAddress = "localhost" }, true},
		{"watch without preset", func(c *Config) { c.Params.Watch = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_SAMPLE_RATE", "96000")
	t.Setenv("ENV_FFT_SIZE", "4096")
	t.Setenv("ENV_UDP_ENABLED", "1")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.2:7000")
	t.Setenv("ENV_FRAMES_PER_BUFFER", "lots")

	path := writeTempConfig(t, "audio:\n  frames_per_buffer: 256\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Debug || cfg.Audio.SampleRate != 96000 || cfg.Analyzer.FFTSize != 4096 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.2:7000" {
		t.Errorf("transport overrides not applied: %+v", cfg.Transport)
	}
	if cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("unparseable override replaced file value: %d", cfg.Audio.FramesPerBuffer)
	}
}
