// Package export copies rendered GPU textures into host-readable staging buffers each frame,
// maps them back, strips row padding, and delivers dense RGBA frames to consumers.
package export

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-export/engine/graph"
	"github.com/google/uuid"
)

// ExportNode is the render graph node name under which the copy stage is registered.
const ExportNode = "image_export"

// Host is the scheduler the exporter installs itself into.
type Host interface {
	// Graph returns the host's render graph.
	Graph() graph.RenderGraph

	// AddSystem registers a per-frame callback at the given stage.
	AddSystem(stage graph.Stage, name string, run func(frame graph.Frame))
}

// BindingKey identifies one consumer binding.
type BindingKey struct {
	Source SourceID
	Name   string
}

func (k BindingKey) String() string {
	return fmt.Sprintf("%d/%s", k.Source, k.Name)
}

// Stats is a snapshot of exporter counters.
type Stats struct {
	// Copies is the number of texture copies submitted.
	Copies uint64

	// Readbacks is the number of frames successfully mapped and normalized.
	Readbacks uint64

	// MapFailures is the number of readbacks abandoned because mapping failed.
	MapFailures uint64

	// Skipped is the number of copied frames not read back because no binding was due.
	Skipped uint64

	// Bindings holds per-binding counters.
	Bindings map[BindingKey]BindingStats
}

// String formats the totals on one line.
func (s Stats) String() string {
	var dispatched, limited, failed uint64
	for _, b := range s.Bindings {
		dispatched += b.Dispatched
		limited += b.RateLimited
		failed += b.Failed
	}
	return fmt.Sprintf("copies: %d | readbacks: %d | map failures: %d | skipped: %d | dispatched: %d | rate limited: %d | sink failures: %d",
		s.Copies, s.Readbacks, s.MapFailures, s.Skipped, dispatched, limited, failed)
}

// Exporter reads rendered frames back from GPU textures and hands them to consumers.
//
// Each frame runs in two phases. OnRenderReady, registered as a render graph node after the
// camera driver, copies every source's texture into its staging buffer. OnCleanup, registered
// in the post-render stage, maps those buffers, normalizes them, and dispatches to bindings.
// Per-frame failures are logged and counted, never returned.
type Exporter interface {
	// AddSource registers a source for export.
	//
	// Parameters:
	//   - src: the source to register
	//
	// Returns:
	//   - error: ErrNilSource, or ErrExporterClosed
	AddSource(src *Source) error

	// RemoveSource unregisters a source and releases its staging buffer.
	// Consumers bound to the source are dropped.
	//
	// Parameters:
	//   - id: the source id
	RemoveSource(id SourceID)

	// Sources returns the registered sources in registration order.
	//
	// Returns:
	//   - []*Source: the sources
	Sources() []*Source

	// Attach binds a consumer to a source under a name unique for that source.
	//
	// Parameters:
	//   - id: the source id
	//   - name: the binding name
	//   - consumer: the consumer to receive frames
	//   - options: binding options (rate limiting)
	//
	// Returns:
	//   - error: ErrUnknownSource, ErrNilConsumer, or ErrBindingExists
	Attach(id SourceID, name string, consumer Consumer, options ...BindingOption) error

	// Detach removes a binding. The consumer is not closed.
	//
	// Parameters:
	//   - id: the source id
	//   - name: the binding name
	//
	// Returns:
	//   - error: ErrBindingNotFound if no such binding exists
	Detach(id SourceID, name string) error

	// OnRenderReady runs the copy phase for the frame.
	//
	// Parameters:
	//   - frame: the current frame
	OnRenderReady(frame graph.Frame)

	// OnCleanup runs the readback and dispatch phase for the frame.
	// Only sources that received a copy in this frame's OnRenderReady are read.
	//
	// Parameters:
	//   - frame: the current frame
	OnCleanup(frame graph.Frame)

	// Register installs the exporter into the host: the copy phase as a graph node after the
	// camera driver and the readback phase as a post-render system.
	//
	// Parameters:
	//   - host: the host scheduler
	//
	// Returns:
	//   - error: an error if the graph rejects the node or edge
	Register(host Host) error

	// Stats returns a snapshot of the exporter's counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Close releases every staging buffer and closes consumers implementing io.Closer.
	// A consumer bound more than once is closed once per binding, so Close must be idempotent.
	//
	// Returns:
	//   - error: the joined close errors
	Close() error
}

type sourceEntry struct {
	source   *Source
	bindings []*binding

	// copied is the prepared buffer that received this frame's copy, cleared once read.
	copied      *PreparedBuffer
	copiedFrame uint64
}

type exporter struct {
	mu      sync.Mutex
	closed  bool
	order   []SourceID
	entries map[SourceID]*sourceEntry

	device    Device
	registry  Registry
	copyStage *CopyStage
	reader    Reader

	skipIdleReadback bool
	predecessor      string

	copies      atomic.Uint64
	readbacks   atomic.Uint64
	mapFailures atomic.Uint64
	skipped     atomic.Uint64
}

var _ Exporter = &exporter{}

// NewExporter creates an Exporter driving the given device.
//
// Parameters:
//   - device: the GPU device owning the exported textures
//   - options: functional options for the exporter
//
// Returns:
//   - Exporter: the new exporter
func NewExporter(device Device, options ...ExporterBuilderOption) Exporter {
	e := &exporter{
		entries:          make(map[SourceID]*sourceEntry),
		device:           device,
		skipIdleReadback: true,
		predecessor:      graph.CameraDriverNode,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry(device)
	}
	if e.reader == nil {
		e.reader = NewReader(device)
	}
	e.copyStage = NewCopyStage(device, e.registry)
	return e
}

func (e *exporter) AddSource(src *Source) error {
	if src == nil {
		return ErrNilSource
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExporterClosed
	}
	if _, exists := e.entries[src.ID()]; exists {
		return nil
	}
	e.entries[src.ID()] = &sourceEntry{source: src}
	e.order = append(e.order, src.ID())
	return nil
}

func (e *exporter) RemoveSource(id SourceID) {
	e.mu.Lock()
	if _, ok := e.entries[id]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.entries, id)
	e.order = slices.DeleteFunc(e.order, func(v SourceID) bool { return v == id })
	e.mu.Unlock()

	e.registry.Remove(id)
}

func (e *exporter) Sources() []*Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Source, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.entries[id].source)
	}
	return out
}

func (e *exporter) Attach(id SourceID, name string, consumer Consumer, options ...BindingOption) error {
	if consumer == nil {
		return ErrNilConsumer
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExporterClosed
	}
	entry, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("source %d: %w", id, ErrUnknownSource)
	}
	for _, b := range entry.bindings {
		if b.name == name {
			return fmt.Errorf("%s: %w", BindingKey{Source: id, Name: name}, ErrBindingExists)
		}
	}
	// Copy-on-write so OnCleanup can iterate a snapshot without holding the lock.
	bindings := make([]*binding, len(entry.bindings), len(entry.bindings)+1)
	copy(bindings, entry.bindings)
	entry.bindings = append(bindings, newBinding(name, consumer, options...))
	return nil
}

func (e *exporter) Detach(id SourceID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("source %d: %w", id, ErrUnknownSource)
	}
	for i, b := range entry.bindings {
		if b.name == name {
			entry.bindings = slices.Concat(entry.bindings[:i], entry.bindings[i+1:])
			return nil
		}
	}
	return fmt.Errorf("%s: %w", BindingKey{Source: id, Name: name}, ErrBindingNotFound)
}

func (e *exporter) OnRenderReady(frame graph.Frame) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	sources := make([]*Source, 0, len(e.order))
	for _, id := range e.order {
		entry := e.entries[id]
		entry.copied = nil
		sources = append(sources, entry.source)
	}
	e.mu.Unlock()

	prepared, err := e.copyStage.Run(sources)
	if err != nil {
		Logger().Warn("export: submit texture copies", "frame", frame.Number, "err", err)
	}
	if len(prepared) == 0 {
		return
	}
	e.copies.Add(uint64(len(prepared)))

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range prepared {
		if entry, ok := e.entries[p.Source]; ok {
			entry.copied = p
			entry.copiedFrame = frame.Number
		}
	}
}

// pendingRead is one source's copied frame captured for the readback phase.
type pendingRead struct {
	entry    *sourceEntry
	prepared *PreparedBuffer
	bindings []*binding
}

func (e *exporter) OnCleanup(frame graph.Frame) {
	e.mu.Lock()
	pending := make([]pendingRead, 0, len(e.order))
	for _, id := range e.order {
		entry := e.entries[id]
		if entry.copied == nil || entry.copiedFrame != frame.Number {
			entry.copied = nil
			continue
		}
		pending = append(pending, pendingRead{entry: entry, prepared: entry.copied, bindings: entry.bindings})
		entry.copied = nil
	}
	e.mu.Unlock()

	for _, pr := range pending {
		e.readAndDispatch(frame, pr)
	}
}

func (e *exporter) readAndDispatch(frame graph.Frame, pr pendingRead) {
	src := pr.entry.source
	if len(pr.bindings) == 0 || (e.skipIdleReadback && !anyReady(pr.bindings)) {
		e.skipped.Add(1)
		return
	}

	// The prepared buffer must still be the registered one; a concurrent re-prepare
	// released it and its contents belong to no frame.
	if current, ok := e.registry.Lookup(src.ID()); !ok || current != pr.prepared {
		Logger().Debug("export: source not ready", "source", src.ID(), "label", src.Label(), "frame", frame.Number)
		return
	}

	pixels, ok := e.reader.Read(pr.prepared)
	if !ok {
		e.mapFailures.Add(1)
		return
	}
	e.readbacks.Add(1)

	out := Frame{
		Number:  frame.Number,
		Source:  src.ID(),
		Label:   src.Label(),
		TraceID: uuid.New().String(),
		Pixels:  pixels,
	}
	for _, b := range pr.bindings {
		if _, err := b.offer(out); err != nil {
			kind := "dispatch"
			if errors.Is(err, ErrSinkConstruction) {
				kind = "construction"
			}
			Logger().Warn("export: consumer failed", "source", src.ID(), "label", src.Label(),
				"binding", b.name, "frame", frame.Number, "trace", out.TraceID, "kind", kind, "err", err)
		}
	}
}

func anyReady(bindings []*binding) bool {
	for _, b := range bindings {
		if b.ready() {
			return true
		}
	}
	return false
}

func (e *exporter) Register(host Host) error {
	g := host.Graph()
	if err := g.AddNode(ExportNode, graph.NodeFunc(func(frame graph.Frame) error {
		e.OnRenderReady(frame)
		return nil
	})); err != nil {
		return err
	}
	if g.HasNode(e.predecessor) {
		if err := g.AddNodeEdge(e.predecessor, ExportNode); err != nil {
			g.RemoveNode(ExportNode)
			return err
		}
	}
	host.AddSystem(graph.StagePostRender, "export_readback", e.OnCleanup)
	return nil
}

func (e *exporter) Stats() Stats {
	s := Stats{
		Copies:      e.copies.Load(),
		Readbacks:   e.readbacks.Load(),
		MapFailures: e.mapFailures.Load(),
		Skipped:     e.skipped.Load(),
		Bindings:    make(map[BindingKey]BindingStats),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, entry := range e.entries {
		for _, b := range entry.bindings {
			s.Bindings[BindingKey{Source: id, Name: b.name}] = b.stats()
		}
	}
	return s
}

func (e *exporter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var closers []io.Closer
	for _, id := range e.order {
		for _, b := range e.entries[id].bindings {
			if c, ok := b.consumer.(io.Closer); ok {
				closers = append(closers, c)
			}
		}
	}
	e.entries = make(map[SourceID]*sourceEntry)
	e.order = nil
	e.mu.Unlock()

	e.registry.Release()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
