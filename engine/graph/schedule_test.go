package graph

import (
	"slices"
	"testing"
)

func TestScheduleRunsStagesInOrder(t *testing.T) {
	s := NewSchedule()
	var ran []string
	s.AddSystem(StageCleanup, "cleanup", func(Frame) { ran = append(ran, "cleanup") })
	s.AddSystem(StagePostRender, "first", func(Frame) { ran = append(ran, "first") })
	s.AddSystem(StagePostRender, "second", func(Frame) { ran = append(ran, "second") })

	s.Run(StagePostRender, Frame{Number: 1})
	if !slices.Equal(ran, []string{"first", "second"}) {
		t.Fatalf("post render ran %v", ran)
	}
	s.Run(StageCleanup, Frame{Number: 1})
	if ran[len(ran)-1] != "cleanup" {
		t.Errorf("cleanup did not run: %v", ran)
	}
	if got := len(s.Systems(StagePostRender)); got != 2 {
		t.Errorf("Systems(StagePostRender) = %d, want 2", got)
	}
}

func TestStageString(t *testing.T) {
	if StagePostRender.String() != "post_render" || StageCleanup.String() != "cleanup" || Stage(9).String() != "unknown" {
		t.Error("unexpected stage names")
	}
}
