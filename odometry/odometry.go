// Package odometry implements the Odometry State History: a bounded ring
// buffer of (time, raw odometer pose, state-frame pose) triples used to
// compute the trajectory builder's odometry correction.
package odometry

import (
	"time"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

// State is one odometry history entry.
type State struct {
	Time         time.Time
	OdometerPose transform.Rigid3
	StatePose    transform.Rigid3
}

// Tracker is a bounded history of odometry states, oldest first.
type Tracker struct {
	capacity int
	states   []State
}

// NewTracker constructs a Tracker retaining at most capacity states. A
// capacity below 1 is treated as 1.
func NewTracker(capacity int) *Tracker {
	if capacity < 1 {
		capacity = 1
	}
	return &Tracker{capacity: capacity}
}

// Empty reports whether any state has been recorded yet.
func (t *Tracker) Empty() bool {
	return len(t.states) == 0
}

// Newest returns the most recently appended state. It panics if the tracker
// is empty; callers must check Empty first, matching Cartographer's
// precondition that newest() is only called on a non-empty history.
func (t *Tracker) Newest() State {
	return t.states[len(t.states)-1]
}

// AddOdometryState appends a new state, evicting the oldest once capacity is
// exceeded.
func (t *Tracker) AddOdometryState(s State) {
	t.states = append(t.states, s)
	if len(t.states) > t.capacity {
		t.states = t.states[len(t.states)-t.capacity:]
	}
}

// States returns the full history, oldest first.
func (t *Tracker) States() []State {
	return t.states
}
