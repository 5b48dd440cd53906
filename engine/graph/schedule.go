package graph

import (
	"sync"
)

// Stage is a point in the render frame where CPU-side systems run.
type Stage int

const (
	// StagePostRender runs after the render graph has been submitted and before cleanup.
	// Systems consuming GPU results of the frame (readbacks) belong here.
	StagePostRender Stage = iota

	// StageCleanup runs last in the frame, after every post-render system.
	StageCleanup
)

func (s Stage) String() string {
	switch s {
	case StagePostRender:
		return "post_render"
	case StageCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is a named per-frame callback bound to a Stage.
type System struct {
	Name string
	Run  func(frame Frame)
}

// Schedule holds the systems registered for each Stage, run in registration order.
type Schedule struct {
	mu      sync.RWMutex
	systems map[Stage][]System
}

// NewSchedule creates an empty Schedule.
//
// Returns:
//   - *Schedule: the new schedule
func NewSchedule() *Schedule {
	return &Schedule{systems: make(map[Stage][]System)}
}

// AddSystem appends a system to the stage.
//
// Parameters:
//   - stage: the stage to run in
//   - name: the system name, used in logs
//   - run: the per-frame callback
func (s *Schedule) AddSystem(stage Stage, name string, run func(frame Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[stage] = append(s.systems[stage], System{Name: name, Run: run})
}

// Systems returns a copy of the systems registered for the stage.
//
// Parameters:
//   - stage: the stage to list
//
// Returns:
//   - []System: the systems in run order
func (s *Schedule) Systems(stage Stage) []System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]System, len(s.systems[stage]))
	copy(cp, s.systems[stage])
	return cp
}

// Run executes every system of the stage in registration order.
//
// Parameters:
//   - stage: the stage to run
//   - frame: the current frame
func (s *Schedule) Run(stage Stage, frame Frame) {
	for _, sys := range s.Systems(stage) {
		sys.Run(frame)
	}
}
