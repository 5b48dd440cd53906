package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 0 || cfg.Output.Pattern != "" {
		t.Errorf("Load(\"\") = %+v, want zero config", cfg)
	}
}

func TestLoadDecodesDurations(t *testing.T) {
	path := writeConfig(t, `{
		"width": 640,
		"output": {"pattern": "shots/{frame}.webp", "interval": "1s"},
		"live": {"target": "-", "interval": 16000000}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 640 {
		t.Errorf("Width = %d, want 640", cfg.Width)
	}
	if got := time.Duration(cfg.Output.Interval); got != time.Second {
		t.Errorf("Output.Interval = %v, want 1s", got)
	}
	if got := time.Duration(cfg.Live.Interval); got != 16*time.Millisecond {
		t.Errorf("Live.Interval = %v, want 16ms", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"widht": 10}`},
		{"bad duration", `{"output": {"interval": "soon"}}`},
		{"malformed", `{"width": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want os.ErrNotExist", err)
	}
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.Resolve(Flags{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultWidth, DefaultHeight)
	}
	if cfg.FPS != DefaultFPS {
		t.Errorf("FPS = %v, want %v", cfg.FPS, DefaultFPS)
	}
	if cfg.Frames != DefaultHeadlessFrames {
		t.Errorf("headless Frames = %d, want %d", cfg.Frames, DefaultHeadlessFrames)
	}
	if cfg.Output.Pattern != DefaultOutputPattern {
		t.Errorf("Pattern = %q, want %q", cfg.Output.Pattern, DefaultOutputPattern)
	}
	if cfg.Output.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Output.Workers, runtime.NumCPU())
	}
	if cfg.Live.Interval != DefaultLiveInterval || cfg.Live.Name != DefaultLiveName {
		t.Errorf("Live = %+v, want default name and interval", cfg.Live)
	}
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	cfg := Config{Width: 640, Height: 480, Output: OutputConfig{Pattern: "a/{frame}.png", Workers: 2}}
	err := cfg.Resolve(Flags{Width: 320, Output: "b/{frame}.jpg", Window: true, Live: "-"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 480 {
		t.Errorf("size = %dx%d, want 320x480", cfg.Width, cfg.Height)
	}
	if cfg.Output.Pattern != "b/{frame}.jpg" {
		t.Errorf("Pattern = %q, want flag value", cfg.Output.Pattern)
	}
	if cfg.Output.Workers != 2 {
		t.Errorf("Workers = %d, want 2 from file", cfg.Output.Workers)
	}
	if !cfg.Window || cfg.Frames != 0 {
		t.Errorf("Window = %v Frames = %d, want windowed run without a frame limit", cfg.Window, cfg.Frames)
	}
	if cfg.Live.Target != "-" {
		t.Errorf("Live.Target = %q, want -", cfg.Live.Target)
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative width", Config{Width: -1}},
		{"negative fps", Config{FPS: -30}},
		{"negative backlog", Config{Output: OutputConfig{Backlog: -1}}},
		{"negative interval", Config{Live: LiveConfig{Interval: Duration(-time.Second)}}},
		{"jpeg quality", Config{Output: OutputConfig{JPEGQuality: 101}}},
		{"no consumer", Config{Output: OutputConfig{Disabled: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.Resolve(Flags{}); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Resolve err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
