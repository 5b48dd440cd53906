package profiler

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestProfilerTickInterval(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	p := NewProfiler(
		WithClock(func() time.Time { return now }),
		WithLogger(log.New(&out, "", 0)),
		WithInterval(time.Second),
	)
	p.AddReporter("export", func() string { return "copies: 50" })

	logged := 0
	for i := 0; i < 100; i++ {
		now = now.Add(20 * time.Millisecond)
		if p.Tick() {
			logged++
		}
	}

	if logged != 2 {
		t.Errorf("logged %d times over two seconds, want 2", logged)
	}
	if p.Frames() != 100 {
		t.Errorf("Frames() = %d, want 100", p.Frames())
	}
	text := out.String()
	if !strings.Contains(text, "[Profiler] FPS: 50.00") {
		t.Errorf("missing FPS line in %q", text)
	}
	if strings.Count(text, "[Profiler] export: copies: 50") != 2 {
		t.Errorf("reporter not logged once per interval: %q", text)
	}
}

func TestProfilerQuietBeforeInterval(t *testing.T) {
	now := time.Now()
	var out bytes.Buffer
	p := NewProfiler(WithClock(func() time.Time { return now }), WithLogger(log.New(&out, "", 0)))
	if p.Tick() {
		t.Error("Tick logged before the interval elapsed")
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
