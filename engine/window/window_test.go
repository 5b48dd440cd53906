package window

import "testing"

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{resizable: true}
	for _, opt := range []WindowBuilderOption{
		WithTitle("export"),
		WithWidth(640),
		WithHeight(360),
		WithSizeLimits(10, 20, 30, 40),
		WithResizable(false),
	} {
		opt(w)
	}

	if w.title != "export" || w.width != 640 || w.height != 360 {
		t.Errorf("title/size = %q %dx%d, want export 640x360", w.title, w.width, w.height)
	}
	if w.minWidth != 10 || w.minHeight != 20 || w.maxWidth != 30 || w.maxHeight != 40 {
		t.Errorf("limits = %d %d %d %d, want 10 20 30 40", w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	}
	if w.resizable {
		t.Error("resizable = true, want false")
	}
}

func TestSetTitleKeepsLatest(t *testing.T) {
	w := &engineWindow{pendingTitle: make(chan string, 1)}
	w.SetTitle("first")
	w.SetTitle("second")

	select {
	case got := <-w.pendingTitle:
		if got != "second" {
			t.Errorf("pending title = %q, want second", got)
		}
	default:
		t.Fatal("no pending title")
	}
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{pendingTitle: make(chan string, 1)}
	if w.IsRunning() {
		t.Error("IsRunning() = true for an uninitialized window")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("SurfaceDescriptor() != nil for an uninitialized window")
	}
	if err := w.Close(); err == nil {
		t.Error("Close() = nil, want error for an uninitialized window")
	}

	w.RequestClose()
	w.ProcessMessages()
}
