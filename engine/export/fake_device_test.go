package export

import (
	"errors"
	"fmt"
)

// fakeTexture is a CPU-side stand-in for a render target. Rows are tightly packed.
type fakeTexture struct {
	width    uint32
	height   uint32
	format   PixelFormat
	pix      []byte
	released bool
}

func newFakeTexture(width, height uint32, format PixelFormat) *fakeTexture {
	return &fakeTexture{
		width:  width,
		height: height,
		format: format,
		pix:    make([]byte, int(width)*int(height)*4),
	}
}

func (t *fakeTexture) Width() uint32       { return t.width }
func (t *fakeTexture) Height() uint32      { return t.height }
func (t *fakeTexture) Format() PixelFormat { return t.format }

// fill simulates a render pass writing tag into every byte of the texture.
func (t *fakeTexture) fill(tag byte) {
	for i := range t.pix {
		t.pix[i] = tag
	}
}

// foreignTexture is a valid Texture the fake device did not create.
type foreignTexture struct{}

func (foreignTexture) Width() uint32       { return 4 }
func (foreignTexture) Height() uint32      { return 4 }
func (foreignTexture) Format() PixelFormat { return PixelFormatRGBA8UnormSrgb }

type fakeBuffer struct {
	device   *fakeDevice
	label    string
	data     []byte
	mapped   bool
	released bool
	unmaps   int
}

func (b *fakeBuffer) Size() uint64 { return uint64(len(b.data)) }

func (b *fakeBuffer) MapRead(callback func(err error)) error {
	d := b.device
	if d.requestErr != nil {
		return d.requestErr
	}
	if b.mapped {
		return errors.New("fake: buffer already mapped")
	}
	pm := &pendingMap{buffer: b, callback: callback, polls: d.mapDelay}
	if d.mapDelay == 0 {
		d.complete(pm)
		return nil
	}
	d.pending = append(d.pending, pm)
	return nil
}

func (b *fakeBuffer) MappedRange() []byte {
	if !b.mapped {
		panic("fake: MappedRange on unmapped buffer")
	}
	return b.data
}

func (b *fakeBuffer) Unmap() error {
	if !b.mapped {
		return errors.New("fake: buffer not mapped")
	}
	b.mapped = false
	b.unmaps++
	return nil
}

func (b *fakeBuffer) Release() { b.released = true }

type pendingMap struct {
	buffer   *fakeBuffer
	callback func(err error)
	polls    int
}

// fakeDevice emulates the copy and map semantics of a GPU queue on the CPU.
// Copies write texture rows at the padded pitch and fill padding with 0xFF.
type fakeDevice struct {
	alignment uint32

	// mapDelay is the number of Poll calls before a map completes; 0 completes inline.
	mapDelay int
	// mapErr fails every map through the completion callback.
	mapErr error
	// requestErr fails every map request synchronously.
	requestErr error
	// allocErr fails staging buffer creation.
	allocErr error
	// copyErr fails copy submission.
	copyErr error

	pending []*pendingMap
	buffers []*fakeBuffer
	copies  int
	polls   int
}

func newFakeDevice(alignment uint32) *fakeDevice {
	return &fakeDevice{alignment: alignment}
}

func (d *fakeDevice) RowAlignment() uint32 { return d.alignment }

func (d *fakeDevice) CreateStagingBuffer(label string, size uint64) (StagingBuffer, error) {
	if d.allocErr != nil {
		return nil, d.allocErr
	}
	b := &fakeBuffer{device: d, label: label, data: make([]byte, size)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CopyTextureToBuffer(copies ...TextureCopy) error {
	if d.copyErr != nil {
		return d.copyErr
	}
	for _, c := range copies {
		tex, ok := c.Source.(*fakeTexture)
		if !ok {
			return fmt.Errorf("%T: %w", c.Source, ErrUnsupportedTexture)
		}
		if tex.released {
			return fmt.Errorf("texture released: %w", ErrSourceTextureMissing)
		}
		buf := c.Destination.(*fakeBuffer)
		if buf.mapped {
			return errors.New("fake: copy into mapped buffer")
		}
		if buf.released {
			return errors.New("fake: copy into released buffer")
		}
		l := c.Layout
		for row := uint32(0); row < l.Height; row++ {
			dst := buf.data[row*l.PaddedBytesPerRow : (row+1)*l.PaddedBytesPerRow]
			copy(dst, tex.pix[row*l.BytesPerRow:(row+1)*l.BytesPerRow])
			for i := l.BytesPerRow; i < l.PaddedBytesPerRow; i++ {
				dst[i] = 0xFF
			}
		}
		d.copies++
	}
	return nil
}

func (d *fakeDevice) Poll(wait bool) bool {
	d.polls++
	remaining := d.pending[:0]
	for _, pm := range d.pending {
		pm.polls--
		if pm.polls <= 0 {
			d.complete(pm)
			continue
		}
		remaining = append(remaining, pm)
	}
	d.pending = remaining
	return len(d.pending) == 0
}

func (d *fakeDevice) complete(pm *pendingMap) {
	if d.mapErr != nil {
		pm.callback(d.mapErr)
		return
	}
	pm.buffer.mapped = true
	pm.callback(nil)
}
