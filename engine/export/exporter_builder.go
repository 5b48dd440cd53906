package export

// ExporterBuilderOption is a functional option for configuring an Exporter.
type ExporterBuilderOption func(*exporter)

// WithRegistry replaces the exporter's default registry.
//
// Parameters:
//   - r: the registry to prepare staging buffers with
//
// Returns:
//   - ExporterBuilderOption: option function to apply
func WithRegistry(r Registry) ExporterBuilderOption {
	return func(e *exporter) {
		e.registry = r
	}
}

// WithReader replaces the exporter's default reader.
//
// Parameters:
//   - r: the reader used in the readback phase
//
// Returns:
//   - ExporterBuilderOption: option function to apply
func WithReader(r Reader) ExporterBuilderOption {
	return func(e *exporter) {
		e.reader = r
	}
}

// WithSkipIdleReadback controls whether a copied frame is read back when every binding of its
// source is rate limited. Skipping (the default) avoids a GPU round trip nobody will consume.
//
// Parameters:
//   - skip: true to skip idle readbacks
//
// Returns:
//   - ExporterBuilderOption: option function to apply
func WithSkipIdleReadback(skip bool) ExporterBuilderOption {
	return func(e *exporter) {
		e.skipIdleReadback = skip
	}
}

// WithPredecessor sets the render graph node the copy stage runs after.
// Defaults to graph.CameraDriverNode.
//
// Parameters:
//   - node: the predecessor node name
//
// Returns:
//   - ExporterBuilderOption: option function to apply
func WithPredecessor(node string) ExporterBuilderOption {
	return func(e *exporter) {
		e.predecessor = node
	}
}

// WithSources registers sources during construction.
//
// Parameters:
//   - sources: the sources to register
//
// Returns:
//   - ExporterBuilderOption: option function to apply
func WithSources(sources ...*Source) ExporterBuilderOption {
	return func(e *exporter) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if _, exists := e.entries[src.ID()]; exists {
				continue
			}
			e.entries[src.ID()] = &sourceEntry{source: src}
			e.order = append(e.order, src.ID())
		}
	}
}
