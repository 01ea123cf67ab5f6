// Package motionfilter implements the insertion-gating deduplicator: it
// rejects a new pose as "too similar" to the last accepted one unless enough
// time, translation or rotation has accumulated since.
package motionfilter

import (
	"math"
	"time"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

// Options holds the per-axis thresholds that trigger acceptance.
type Options struct {
	MaxTime     time.Duration
	MaxDistance float64
	MaxAngle    float64
}

// Filter tracks the last accepted pose and decides whether a new one is
// distinct enough to pass through.
type Filter struct {
	opts Options

	hasLast  bool
	lastTime time.Time
	lastPose transform.Rigid2
}

// NewFilter constructs a Filter with the given thresholds.
func NewFilter(opts Options) *Filter {
	return &Filter{opts: opts}
}

// IsSimilar reports whether pose at t is within every threshold of the last
// accepted pose, i.e. whether it should be rejected. The first ever pose is
// never similar (always accepted).
func (f *Filter) IsSimilar(t time.Time, pose transform.Rigid2) bool {
	if !f.hasLast {
		return false
	}
	if t.Sub(f.lastTime) >= f.opts.MaxTime {
		return false
	}
	dx := pose.Translation.X - f.lastPose.Translation.X
	dy := pose.Translation.Y - f.lastPose.Translation.Y
	if math.Hypot(dx, dy) >= f.opts.MaxDistance {
		return false
	}
	if math.Abs(angleDelta(pose.Angle, f.lastPose.Angle)) >= f.opts.MaxAngle {
		return false
	}
	return true
}

func angleDelta(a, b float64) float64 {
	d := a - b
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Accept should be called whenever the caller decides to insert the scan,
// regardless of IsSimilar's verdict, recording it as the new reference pose.
func (f *Filter) Accept(t time.Time, pose transform.Rigid2) {
	f.hasLast = true
	f.lastTime = t
	f.lastPose = pose
}

// ShouldInsert is the gating entry point: it reports whether the scan at t
// with the given pose should be inserted, and if so records it as accepted.
func (f *Filter) ShouldInsert(t time.Time, pose transform.Rigid2) bool {
	if f.IsSimilar(t, pose) {
		return false
	}
	f.Accept(t, pose)
	return true
}
