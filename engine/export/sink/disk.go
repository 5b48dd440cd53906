// Package sink provides frame consumers for the export pipeline: a disk sink that encodes
// frames to image files and a live sink that hands frames to a video sender.
package sink

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"golang.org/x/image/draw"
)

// DiskSinkStats counts the outcome of frames handed to a DiskSink.
type DiskSinkStats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
}

// DiskSink encodes frames to image files.
type DiskSink interface {
	export.Consumer
	io.Closer

	// Flush blocks until every queued frame has been written.
	Flush()

	// Stats returns the sink's counters.
	//
	// Returns:
	//   - DiskSinkStats: the counters
	Stats() DiskSinkStats
}

type diskSink struct {
	mu     sync.Mutex
	closed bool

	template    *PathTemplate
	encoder     Encoder
	jpegQuality int
	maxDim      int
	dirMode     os.FileMode

	workers int
	backlog int
	pool    worker.DynamicWorkerPool
	wg      sync.WaitGroup
	pending atomic.Int64
	taskID  atomic.Int64

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

var _ DiskSink = &diskSink{}

// NewDiskSink creates a DiskSink writing to paths expanded from pattern. The file format is
// chosen by the pattern's extension.
//
// Parameters:
//   - pattern: the output path pattern, see PathTemplate
//   - options: functional options for the sink
//
// Returns:
//   - DiskSink: the new sink
//   - error: an error wrapping export.ErrSinkConstruction for a bad pattern or unsupported extension
func NewDiskSink(pattern string, options ...DiskSinkBuilderOption) (DiskSink, error) {
	s := &diskSink{
		jpegQuality: DefaultJPEGQuality,
		dirMode:     0o755,
		backlog:     DefaultBacklog,
	}
	for _, opt := range options {
		opt(s)
	}

	tmpl, err := ParsePathTemplate(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", export.ErrSinkConstruction, err)
	}
	s.template = tmpl
	if s.encoder == nil {
		enc, err := EncoderFor(pattern, s.jpegQuality)
		if err != nil {
			return nil, err
		}
		s.encoder = enc
	}
	if s.workers > 0 {
		if s.backlog < 1 {
			s.backlog = 1
		}
		s.pool = worker.NewDynamicWorkerPool(s.workers, s.backlog, time.Second)
	}

	export.Logger().Info("disk sink opened", "pattern", pattern, "workers", s.workers, "backlog", s.backlog)
	return s, nil
}

func (s *diskSink) Consume(frame export.Frame) error {
	if frame.Pixels == nil {
		return fmt.Errorf("%w: frame %d has no pixels", export.ErrSinkDispatch, frame.Number)
	}
	path := s.template.Expand(frame)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: disk sink closed", export.ErrSinkDispatch)
	}
	if s.pool == nil {
		s.mu.Unlock()
		return s.write(path, frame.Pixels.Image())
	}
	if s.pending.Load() >= int64(s.backlog) {
		s.mu.Unlock()
		s.dropped.Add(1)
		export.Logger().Debug("disk sink backlog full, frame dropped", "path", path, "frame", frame.Number, "trace", frame.TraceID)
		return nil
	}
	s.pending.Add(1)
	s.wg.Add(1)
	s.mu.Unlock()

	// The exporter's buffer is only valid during Consume.
	img := frame.Pixels.Clone().Image()
	s.pool.SubmitTask(worker.Task{
		ID:      int(s.taskID.Add(1)),
		Payload: path,
		Do: func() (any, error) {
			defer s.wg.Done()
			defer s.pending.Add(-1)
			if err := s.write(path, img); err != nil {
				export.Logger().Warn("disk sink write failed", "path", path, "frame", frame.Number, "trace", frame.TraceID, "err", err)
				return nil, err
			}
			return path, nil
		},
	})
	return nil
}

// write encodes img to a temporary file next to path and renames it into place, so readers
// of a fixed path never observe a partial file.
func (s *diskSink) write(path string, img *image.RGBA) error {
	err := s.writeFile(path, fitWithin(img, s.maxDim, draw.CatmullRom))
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("%w: %s: %w", export.ErrSinkDispatch, path, err)
	}
	s.written.Add(1)
	return nil
}

func (s *diskSink) writeFile(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := s.encoder(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *diskSink) Flush() {
	s.wg.Wait()
}

func (s *diskSink) Stats() DiskSinkStats {
	return DiskSinkStats{
		Written: s.written.Load(),
		Dropped: s.dropped.Load(),
		Failed:  s.failed.Load(),
	}
}

func (s *diskSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	if s.pool != nil {
		s.pool.Stop()
	}
	st := s.Stats()
	export.Logger().Info("disk sink closed", "pattern", s.template.Pattern(),
		"written", st.Written, "dropped", st.Dropped, "failed", st.Failed)
	return nil
}
