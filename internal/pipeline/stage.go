package pipeline

import "sync/atomic"

// State is one point in a stage's Idle→Running→Draining→Stopped
// lifecycle (spec §4.7). A stage never transitions backward.
type State int32

const (
	Idle State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Stage is the shape every one of the six stage kinds shares: a fixed
// worker-pool size, a running flag, a monotonic processed counter, and a
// state machine, per spec §4.5.
type Stage struct {
	Name    string
	Workers int

	running   atomic.Bool
	processed atomic.Uint64
	state     atomic.Int32
}

// NewStage constructs a Stage with the given name and worker-pool size,
// starting in the Idle state.
func NewStage(name string, workers int) *Stage {
	s := &Stage{Name: name, Workers: workers}
	s.state.Store(int32(Idle))
	return s
}

// Processed returns the monotonic count of items this stage has finished.
func (s *Stage) Processed() uint64 { return s.processed.Load() }

// IncProcessed advances the processed counter by one. Safe for concurrent
// use by every worker in the stage's pool.
func (s *Stage) IncProcessed() { s.processed.Add(1) }

// State returns the stage's current lifecycle state.
func (s *Stage) State() State { return State(s.state.Load()) }

// Running reports whether the stage should keep accepting new work.
func (s *Stage) Running() bool { return s.running.Load() }

// Start transitions Idle -> Running.
func (s *Stage) Start() {
	s.running.Store(true)
	s.state.Store(int32(Running))
}

// Drain transitions Running -> Draining: upstream has finished, but this
// stage continues until its input queue empties.
func (s *Stage) Drain() {
	s.state.Store(int32(Draining))
}

// Stop transitions to Stopped (from Running or Draining) and clears the
// running flag so Running() callers observe shutdown.
func (s *Stage) Stop() {
	s.running.Store(false)
	s.state.Store(int32(Stopped))
}
