package sink

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
)

func TestPathTemplateExpand(t *testing.T) {
	frame := export.Frame{Number: 42, Source: 7, Label: "main camera", Binding: "disk"}

	tests := []struct {
		pattern string
		want    string
		fixed   bool
	}{
		{"out/frame.png", "out/frame.png", true},
		{"out/{frame}.png", "out/42.png", false},
		{"out/{frame:05}.png", "out/00042.png", false},
		{"out/{frame:1}.png", "out/42.png", false},
		{"{source}/{binding}-{frame:03}.webp", "main_camera/disk-042.webp", false},
		{"{id:3}_{frame}.tga", "007_42.tga", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tmpl, err := ParsePathTemplate(tt.pattern)
			if err != nil {
				t.Fatalf("ParsePathTemplate failed: %v", err)
			}
			if got := tmpl.Expand(frame); got != tt.want {
				t.Errorf("Expand = %q, want %q", got, tt.want)
			}
			if tmpl.Fixed() != tt.fixed {
				t.Errorf("Fixed = %v, want %v", tmpl.Fixed(), tt.fixed)
			}
		})
	}
}

func TestPathTemplateSourceFallsBackToID(t *testing.T) {
	tmpl, _ := ParsePathTemplate("{source}.png")
	if got := tmpl.Expand(export.Frame{Source: 3}); got != "3.png" {
		t.Errorf("Expand = %q, want 3.png", got)
	}
}

func TestPathTemplateErrors(t *testing.T) {
	for _, pattern := range []string{
		"out/{frame.png",
		"out/{nope}.png",
		"out/{frame:x}.png",
		"out/{binding:3}.png",
		"out/{frame:-1}.png",
	} {
		if _, err := ParsePathTemplate(pattern); err == nil {
			t.Errorf("ParsePathTemplate(%q) succeeded, want error", pattern)
		}
	}
}
