package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native preview window that the renderer presents a camera target to.
// The window owns the main OS thread: create it and call ProcessMessages from main.
type Window interface {
	// SetUpdateCallback registers a function called once per event loop iteration.
	//
	// Parameters:
	//   - callback: the function to call
	SetUpdateCallback(callback func())

	// SetResizeCallback registers a function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: the function to call with the new framebuffer size in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback registers a function called when a key is pressed or repeats.
	//
	// Parameters:
	//   - callback: the function to call with the key code (see common key codes)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback registers a function called when a key is released.
	//
	// Parameters:
	//   - callback: the function to call with the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetTitle changes the window title. Safe to call from any goroutine; the title is applied
	// on the next event loop iteration.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// SurfaceDescriptor returns the descriptor used to create a wgpu surface for the window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil if the window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open.
	//
	// Returns:
	//   - bool: true until the window is closed
	IsRunning() bool

	// RequestClose asks the event loop to return. Safe to call from any goroutine.
	RequestClose()

	// Close destroys the window and terminates the platform layer.
	//
	// Returns:
	//   - error: an error if the window was never initialized
	Close() error

	// ProcessMessages runs the event loop until the window closes. Blocks the caller.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

type engineWindow struct {
	title     string
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int
	width     int
	height    int
	resizable bool

	// pendingTitle is set by SetTitle and applied on the event loop.
	pendingTitle   chan string
	closeRequested atomic.Bool

	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a preview window.
//
// Parameters:
//   - options: functional options for the window
//
// Returns:
//   - Window: the new window
//   - error: an error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:        "oxy-export preview",
		maxWidth:     3840,
		maxHeight:    2160,
		minWidth:     160,
		minHeight:    120,
		width:        1280,
		height:       720,
		resizable:    true,
		pendingTitle: make(chan string, 1),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetTitle(title string) {
	// Keep only the latest title.
	select {
	case <-w.pendingTitle:
	default:
	}
	w.pendingTitle <- title
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	w.closeRequested.Store(true)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() && !w.closeRequested.Load() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		select {
		case title := <-w.pendingTitle:
			w.title = title
			platformSetTitle(w, title)
		default:
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
