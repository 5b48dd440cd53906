package export

import "errors"

var (
	// ErrSourceNotReady is reported when a source has no prepared staging buffer for the current frame.
	ErrSourceNotReady = errors.New("export: source not ready")

	// ErrSourceTextureMissing is returned by Prepare when the source has no backing texture yet.
	ErrSourceTextureMissing = errors.New("export: source texture missing")

	// ErrUnsupportedFormat is returned when a texture's pixel format cannot be normalized to RGBA8.
	ErrUnsupportedFormat = errors.New("export: unsupported pixel format")

	// ErrUnsupportedTexture is returned by a Device when handed a texture it did not create.
	ErrUnsupportedTexture = errors.New("export: texture not owned by device")

	// ErrMappingFailed is reported when the backend declines or fails a buffer map request.
	ErrMappingFailed = errors.New("export: buffer mapping failed")

	// ErrSinkConstruction marks a consumer failure while building its output (malformed frame parameters).
	ErrSinkConstruction = errors.New("export: sink frame construction failed")

	// ErrSinkDispatch marks a consumer failure while writing or sending its output.
	ErrSinkDispatch = errors.New("export: sink dispatch failed")

	// ErrSenderInit is returned at setup time when a live-output sender cannot be created.
	ErrSenderInit = errors.New("export: sender initialization failed")

	// ErrBindingExists is returned when attaching a consumer under a name already bound to the source.
	ErrBindingExists = errors.New("export: binding already exists")

	// ErrBindingNotFound is returned when detaching a binding that does not exist.
	ErrBindingNotFound = errors.New("export: binding not found")

	// ErrNilConsumer is returned when attaching a nil consumer.
	ErrNilConsumer = errors.New("export: consumer is nil")

	// ErrNilSource is returned when registering a nil source.
	ErrNilSource = errors.New("export: source is nil")

	// ErrUnknownSource is returned for operations on a source id that is not registered.
	ErrUnknownSource = errors.New("export: unknown source")

	// ErrExporterClosed is returned for operations on a closed exporter.
	ErrExporterClosed = errors.New("export: exporter closed")
)
