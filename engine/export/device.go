package export

// Texture is a GPU render target that can be exported.
// Implementations must be comparable (typically pointer types) so the registry can detect
// when a source's texture has been replaced.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture's pixel format.
	Format() PixelFormat
}

// StagingBuffer is a host-readable GPU buffer used as the destination of a texture copy.
type StagingBuffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// MapRead requests an asynchronous read-only mapping of the whole buffer.
	// The callback fires exactly once, with nil on success, either inline or during a later
	// Device.Poll call. The buffer must not be used by the GPU until Unmap is called.
	//
	// Parameters:
	//   - callback: completion notification, receives nil on success or the mapping error
	//
	// Returns:
	//   - error: an error if the request could not be issued (the callback will not fire)
	MapRead(callback func(err error)) error

	// MappedRange returns a view of the mapped bytes. The slice is only valid until Unmap.
	//
	// Returns:
	//   - []byte: the mapped memory
	MappedRange() []byte

	// Unmap releases the mapping and returns the buffer to the GPU.
	//
	// Returns:
	//   - error: an error if the buffer was not mapped
	Unmap() error

	// Release frees the buffer's GPU memory.
	Release()
}

// TextureCopy is one texture-to-buffer copy command.
type TextureCopy struct {
	Source      Texture
	Destination StagingBuffer
	Layout      RowLayout
}

// Device is the GPU collaborator the export pipeline drives.
type Device interface {
	// RowAlignment returns the required row-pitch alignment in bytes for texture-to-buffer copies.
	//
	// Returns:
	//   - uint32: the alignment constant
	RowAlignment() uint32

	// CreateStagingBuffer allocates a host-readable buffer usable as a copy destination.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - size: buffer size in bytes
	//
	// Returns:
	//   - StagingBuffer: the new buffer
	//   - error: an error if allocation fails
	CreateStagingBuffer(label string, size uint64) (StagingBuffer, error)

	// CopyTextureToBuffer records all copies into one command buffer and submits it to the queue.
	// Submission is ordered after any work the host already submitted for the frame.
	//
	// Parameters:
	//   - copies: the copy commands, each honoring its layout's padded row pitch
	//
	// Returns:
	//   - error: an error if encoding or submission fails; ErrSourceTextureMissing if a source
	//     texture has been released
	CopyTextureToBuffer(copies ...TextureCopy) error

	// Poll drives backend progress so pending map callbacks can fire.
	//
	// Parameters:
	//   - wait: if true, block until submitted work completes
	//
	// Returns:
	//   - bool: true if the queue is empty
	Poll(wait bool) bool
}
