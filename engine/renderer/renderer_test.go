package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{BackendTypeWGPU.String(), "wgpu"},
		{RendererBackendType(7).String(), "RendererBackendType(7)"},
		{PresentModeVSync.String(), "vsync"},
		{PresentModeUncapped.String(), "uncapped"},
		{MSAAOff.String(), "off"},
		{MSAA4x.String(), "4x"},
		{MSAASampleCount(0).String(), "off"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuilderOptions(t *testing.T) {
	r := &renderer{}
	for _, opt := range []RendererBuilderOption{
		WithPresentMode(PresentModeVSync),
		WithMSAA(MSAA8x),
		WithForceSoftwareRenderer(true),
		WithDefaultTargetFormat(wgpu.TextureFormatBGRA8Unorm),
		WithDefaultClearColor(wgpu.Color{R: 1, A: 1}),
	} {
		opt(r)
	}

	if r.pendingPresentMode == nil || *r.pendingPresentMode != PresentModeVSync {
		t.Errorf("pendingPresentMode = %v, want vsync", r.pendingPresentMode)
	}
	if r.pendingMSAA == nil || *r.pendingMSAA != MSAA8x {
		t.Errorf("pendingMSAA = %v, want 8x", r.pendingMSAA)
	}
	if !r.forceFallbackAdapter {
		t.Error("forceFallbackAdapter = false, want true")
	}
	if r.defaultFormat != wgpu.TextureFormatBGRA8Unorm {
		t.Errorf("defaultFormat = %v, want BGRA8Unorm", r.defaultFormat)
	}
	if r.defaultClearColor != (wgpu.Color{R: 1, A: 1}) {
		t.Errorf("defaultClearColor = %v, want red", r.defaultClearColor)
	}
}

func TestCameraOptions(t *testing.T) {
	c := &camera{active: true}
	for _, opt := range []CameraBuilderOption{
		WithClearColor(wgpu.Color{G: 1, A: 1}),
		WithTargetFormat(wgpu.TextureFormatRGBA8Unorm),
		WithFollowSurface(true),
		WithPresent(true),
	} {
		opt(c)
	}

	if c.ClearColor() != (wgpu.Color{G: 1, A: 1}) {
		t.Errorf("ClearColor() = %v, want green", c.ClearColor())
	}
	if c.format != wgpu.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want RGBA8Unorm", c.format)
	}
	if !c.FollowsSurface() || !c.Presents() {
		t.Errorf("FollowsSurface = %v Presents = %v, want both true", c.FollowsSurface(), c.Presents())
	}

	c.SetActive(false)
	if c.Active() {
		t.Error("Active() = true after SetActive(false)")
	}
}
