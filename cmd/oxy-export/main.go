// Command oxy-export renders an animated clear colour into an offscreen camera target and
// exports every frame to disk and, optionally, to a raw live stream.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-export/common"
	"github.com/Carmen-Shannon/oxy-export/engine"
	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"github.com/Carmen-Shannon/oxy-export/engine/export/sink"
	"github.com/Carmen-Shannon/oxy-export/engine/renderer"
	"github.com/Carmen-Shannon/oxy-export/engine/window"
	"github.com/Carmen-Shannon/oxy-export/internal/config"
	"github.com/cogentcore/webgpu/wgpu"
)

func main() {
	var f config.Flags
	flag.StringVar(&f.Config, "config", "", "path to a JSON config file")
	flag.IntVar(&f.Width, "width", 0, "render target width")
	flag.IntVar(&f.Height, "height", 0, "render target height")
	flag.Float64Var(&f.FPS, "fps", 0, "render frame limit")
	flag.Uint64Var(&f.Frames, "frames", 0, "frames to render (0 = until the window closes)")
	flag.BoolVar(&f.Window, "window", false, "open a preview window")
	flag.StringVar(&f.Output, "out", "", "output path template, e.g. out/{source}_{frame:05}.png")
	flag.StringVar(&f.Live, "live", "", "raw live stream target (- for stdout)")
	flag.IntVar(&f.Workers, "workers", 0, "disk encoder workers (0 = NumCPU)")
	flag.BoolVar(&f.Profile, "profile", false, "log frame and export statistics")
	flag.BoolVar(&f.Verbose, "v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(f.Config)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Resolve(f); err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if f.Verbose {
		level = slog.LevelDebug
	}
	export.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	// ── Window (optional) ───────────────────────────────────────────────
	var win window.Window
	if cfg.Window {
		w, err := window.NewWindow(
			window.WithTitle("oxy-export preview"),
			window.WithWidth(cfg.Width),
			window.WithHeight(cfg.Height),
		)
		if err != nil {
			return err
		}
		win = w
		defer win.Close()
	}

	// ── Renderer ────────────────────────────────────────────────────────
	presentMode := renderer.PresentModeUncapped
	if cfg.VSync {
		presentMode = renderer.PresentModeVSync
	}
	msaa := renderer.MSAAOff
	if cfg.MSAA {
		msaa = renderer.MSAA4x
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(cfg.SoftwareRenderer),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	cam, err := r.AddCamera("main", cfg.Width, cfg.Height,
		renderer.WithPresent(cfg.Window),
	)
	if err != nil {
		return err
	}

	// ── Engine ──────────────────────────────────────────────────────────
	opts := []engine.EngineBuilderOption{
		engine.WithProfiling(cfg.Profile),
		engine.WithTickRate(60),
		engine.WithRenderer(r),
		engine.WithRenderFrameLimit(cfg.FPS),
		engine.WithMaxFrames(cfg.Frames),
	}
	if win != nil {
		opts = append(opts, engine.WithWindow(win))
	}
	eng := engine.NewEngine(opts...)

	// ── Export ──────────────────────────────────────────────────────────
	exp := export.NewExporter(r.ExportDevice())
	src := export.NewSource(cam.Label(), cam.Target())
	if err := exp.AddSource(src); err != nil {
		return err
	}
	if err := attachSinks(cfg, exp, src); err != nil {
		exp.Close()
		return err
	}
	if err := exp.Register(eng); err != nil {
		exp.Close()
		return err
	}
	eng.Profiler().AddReporter("export", func() string {
		return exp.Stats().String()
	})

	animateClearColor(eng, r, cam)

	fmt.Fprintf(os.Stderr, "oxy-export: %dx%d -> %s\n", cfg.Width, cfg.Height, cfg.Output.Pattern)
	start := time.Now()
	eng.Run()

	stats := exp.Stats()
	err = exp.Close()
	log.Printf("[Export] %d frames in %s: %s", eng.Frame(), time.Since(start).Round(time.Millisecond), stats)
	return err
}

// attachSinks binds the configured disk and live sinks to the source.
//
// Parameters:
//   - cfg: the resolved configuration
//   - exp: the exporter to attach to
//   - src: the source to bind
//
// Returns:
//   - error: an error if a sink cannot be constructed
func attachSinks(cfg config.Config, exp export.Exporter, src *export.Source) error {
	if !cfg.Output.Disabled {
		diskOpts := []sink.DiskSinkBuilderOption{
			sink.WithWorkers(cfg.Output.Workers),
			sink.WithMaxDimension(cfg.Output.MaxDimension),
		}
		if cfg.Output.Backlog > 0 {
			diskOpts = append(diskOpts, sink.WithBacklog(cfg.Output.Backlog))
		}
		if cfg.Output.JPEGQuality > 0 {
			diskOpts = append(diskOpts, sink.WithJPEGQuality(cfg.Output.JPEGQuality))
		}
		disk, err := sink.NewDiskSink(cfg.Output.Pattern, diskOpts...)
		if err != nil {
			return err
		}
		if err := exp.Attach(src.ID(), "disk", disk, export.WithRateLimit(time.Duration(cfg.Output.Interval))); err != nil {
			disk.Close()
			return err
		}
	}

	if cfg.Live.Target == "" {
		return nil
	}
	var streamOpts []sink.RawStreamSenderOption
	if cfg.Live.NoHeader {
		streamOpts = append(streamOpts, sink.WithoutHeader())
	}
	factory := sink.NewRawStreamFactory(func(string) (io.Writer, error) {
		if cfg.Live.Target == "-" {
			// Hide Close so the sender never closes stdout.
			return struct{ io.Writer }{os.Stdout}, nil
		}
		return os.Create(cfg.Live.Target)
	}, streamOpts...)

	fps := int(cfg.FPS)
	if interval := time.Duration(cfg.Live.Interval); interval > 0 {
		fps = int(time.Second / interval)
	}
	live, err := sink.NewLiveSink(cfg.Live.Name, factory,
		sink.WithLiveMaxDimension(cfg.Live.MaxDimension),
		sink.WithLiveFrameRate(max(fps, 1), 1),
	)
	if err != nil {
		return err
	}
	if err := exp.Attach(src.ID(), "live", live, export.WithRateLimit(time.Duration(cfg.Live.Interval))); err != nil {
		live.Close()
		return err
	}
	return nil
}

// animateClearColor cycles the camera clear colour through the hue wheel on the engine tick.
// With a window, Space pauses the animation and P toggles vsync.
//
// Parameters:
//   - eng: the engine providing the tick and window callbacks
//   - r: the renderer, for present mode changes
//   - cam: the camera to animate
func animateClearColor(eng engine.Engine, r renderer.Renderer, cam renderer.Camera) {
	var paused atomic.Bool
	hue := 0.0

	eng.SetTickCallback(func(deltaTime float32) {
		if paused.Load() {
			return
		}
		hue += float64(deltaTime) * 90
		red, green, blue := common.HSVToRGB(hue, 0.6, 0.9)
		cam.SetClearColor(wgpu.Color{R: red, G: green, B: blue, A: 1})
	})

	if eng.Window() == nil {
		return
	}
	vsync := false
	eng.Window().SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case common.KeySpace:
			paused.Store(!paused.Load())
		case common.KeyP:
			vsync = !vsync
			if vsync {
				r.SetPresentMode(renderer.PresentModeVSync)
			} else {
				r.SetPresentMode(renderer.PresentModeUncapped)
			}
			eng.Window().SetTitle(fmt.Sprintf("oxy-export preview (vsync %v)", vsync))
		}
	})
}
