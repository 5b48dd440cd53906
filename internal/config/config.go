// Package config loads the oxy-export command configuration from a JSON file and command-line
// flags.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/Carmen-Shannon/oxy-export/common"
)

const (
	DefaultWidth          = 1280
	DefaultHeight         = 720
	DefaultFPS            = 60.0
	DefaultHeadlessFrames = 300
	DefaultOutputPattern  = "out/{source}_{frame:05}.png"
	DefaultLiveName       = "oxy-export"
	DefaultLiveInterval   = Duration(time.Second / 30)
)

// ErrInvalidConfig is returned when a resolved configuration cannot be run.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Duration is a time.Duration that reads from JSON as either a Go duration string ("500ms")
// or a number of nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("duration %s: %w", b, err)
	}
	*d = Duration(n)
	return nil
}

// OutputConfig configures the disk sink.
type OutputConfig struct {
	// Pattern is the path template; see sink.ParsePathTemplate.
	Pattern      string   `json:"pattern"`
	Disabled     bool     `json:"disabled"`
	Workers      int      `json:"workers"`
	Backlog      int      `json:"backlog"`
	MaxDimension int      `json:"max_dimension"`
	JPEGQuality  int      `json:"jpeg_quality"`
	Interval     Duration `json:"interval"`
}

// LiveConfig configures the raw live stream sink.
type LiveConfig struct {
	// Target is "-" for stdout or a file/FIFO path. Empty disables the live sink.
	Target       string   `json:"target"`
	Name         string   `json:"name"`
	Interval     Duration `json:"interval"`
	MaxDimension int      `json:"max_dimension"`
	NoHeader     bool     `json:"no_header"`
}

// Config is the full command configuration.
type Config struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`

	// Frames is the number of frames to render; 0 runs until the window closes.
	Frames uint64 `json:"frames"`

	Window           bool `json:"window"`
	VSync            bool `json:"vsync"`
	MSAA             bool `json:"msaa"`
	SoftwareRenderer bool `json:"software_renderer"`
	Profile          bool `json:"profile"`

	Output OutputConfig `json:"output"`
	Live   LiveConfig   `json:"live"`
}

// Flags holds command-line overrides. Zero values leave the file or default value in place.
type Flags struct {
	Config  string
	Width   int
	Height  int
	FPS     float64
	Frames  uint64
	Window  bool
	Output  string
	Live    string
	Workers int
	Profile bool
	Verbose bool
}

// Load reads a JSON configuration file. An empty path returns an empty Config.
//
// Parameters:
//   - path: the file path, or "" for none
//
// Returns:
//   - Config: the decoded configuration, not yet resolved
//   - error: an error if the file cannot be read or contains unknown fields
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies flag overrides and defaults, then validates the result.
//
// Parameters:
//   - f: the command-line overrides
//
// Returns:
//   - error: ErrInvalidConfig wrapping the reason when the configuration cannot be run
func (c *Config) Resolve(f Flags) error {
	c.Width = common.Coalesce(f.Width, c.Width, DefaultWidth)
	c.Height = common.Coalesce(f.Height, c.Height, DefaultHeight)
	c.FPS = common.Coalesce(f.FPS, c.FPS, DefaultFPS)
	c.Frames = common.Coalesce(f.Frames, c.Frames)
	c.Window = c.Window || f.Window
	c.Profile = c.Profile || f.Profile
	if !c.Window && c.Frames == 0 {
		c.Frames = DefaultHeadlessFrames
	}

	c.Output.Pattern = common.Coalesce(f.Output, c.Output.Pattern, DefaultOutputPattern)
	c.Output.Workers = common.Coalesce(f.Workers, c.Output.Workers, runtime.NumCPU())

	c.Live.Target = common.Coalesce(f.Live, c.Live.Target)
	c.Live.Name = common.Coalesce(c.Live.Name, DefaultLiveName)
	c.Live.Interval = common.Coalesce(c.Live.Interval, DefaultLiveInterval)

	switch {
	case c.Width < 0 || c.Height < 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.FPS < 0:
		return fmt.Errorf("%w: fps %v", ErrInvalidConfig, c.FPS)
	case c.Output.Workers < 0 || c.Output.Backlog < 0:
		return fmt.Errorf("%w: negative worker or backlog count", ErrInvalidConfig)
	case c.Output.Interval < 0 || c.Live.Interval < 0:
		return fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	case c.Output.JPEGQuality < 0 || c.Output.JPEGQuality > 100:
		return fmt.Errorf("%w: jpeg quality %d", ErrInvalidConfig, c.Output.JPEGQuality)
	case c.Output.Disabled && c.Live.Target == "":
		return fmt.Errorf("%w: no consumer enabled", ErrInvalidConfig)
	}
	return nil
}
