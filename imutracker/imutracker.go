// Package imutracker implements the Orientation Tracker: it integrates
// angular velocity samples into a running orientation and uses linear
// acceleration samples as a low-pass gravity observation, keeping roll and
// pitch aligned to gravity while yaw accumulates from the gyro alone.
package imutracker

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

// Tracker integrates IMU observations into a gravity-aligned orientation.
// The zero value is not usable; construct with New.
type Tracker struct {
	gravityTimeConstant float64

	time time.Time

	orientation quat.Number
	// gravityVector is the low-passed "up" direction, expressed in the
	// current body frame.
	gravityVector   r3.Vector
	angularVelocity r3.Vector
}

// New constructs a Tracker at time t0 with identity orientation and a
// gravity vector pointing along +z, using gravityTimeConstant (seconds) as
// the low-pass constant for the gravity estimate.
func New(t0 time.Time, gravityTimeConstant float64) *Tracker {
	return &Tracker{
		gravityTimeConstant: gravityTimeConstant,
		time:                t0,
		orientation:         quat.Number{Real: 1},
		gravityVector:       r3.Vector{Z: 1},
	}
}

// Orientation returns the current tracked orientation.
func (t *Tracker) Orientation() quat.Number {
	return t.orientation
}

// Time returns the time this tracker was last advanced to.
func (t *Tracker) Time() time.Time {
	return t.time
}

func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Advance integrates angular velocity up to time newTime. It panics if
// newTime precedes the tracker's current time, since that indicates a
// non-monotonic sensor stream — a programming error, not a recoverable one.
func (t *Tracker) Advance(newTime time.Time) {
	if newTime.Before(t.time) {
		panic(fmt.Sprintf("imutracker: time %v precedes tracker time %v", newTime, t.time))
	}
	dt := newTime.Sub(t.time).Seconds()
	if dt > 0 {
		angle := t.angularVelocity.Norm() * dt
		if angle != 0 {
			axis := t.angularVelocity.Normalize()
			delta := transform.FromAxisAngle([3]float64{axis.X, axis.Y, axis.Z}, angle)
			t.orientation = transform.NormalizeQuaternion(quat.Mul(t.orientation, delta))
			// A world-fixed gravity vector appears rotated by delta's
			// inverse in the new body frame.
			t.gravityVector = rotateVector(quat.Conj(delta), t.gravityVector)
		}
	}
	t.time = newTime
}

// AddAngularVelocity records the angular velocity observed at time t, in
// rad/s, held constant until the next Advance call.
func (t *Tracker) AddAngularVelocity(tm time.Time, w r3.Vector) {
	if tm.Before(t.time) {
		panic(fmt.Sprintf("imutracker: time %v precedes tracker time %v", tm, t.time))
	}
	t.angularVelocity = w
}

// AddLinearAcceleration folds a linear-acceleration sample into the gravity
// estimate via an exponential low-pass filter, then rotates the orientation
// so that gravity points along +z in the body frame while preserving yaw.
// If absoluteOrientation is non-nil, it overrides the low-passed estimate
// outright, matching a sensor able to report absolute orientation directly.
func (t *Tracker) AddLinearAcceleration(tm time.Time, a r3.Vector, absoluteOrientation *quat.Number) {
	if tm.Before(t.time) {
		panic(fmt.Sprintf("imutracker: time %v precedes tracker time %v", tm, t.time))
	}
	if absoluteOrientation != nil {
		t.orientation = transform.NormalizeQuaternion(*absoluteOrientation)
		return
	}

	alpha := 1.0
	if t.gravityTimeConstant > 0 {
		dt := tm.Sub(t.time).Seconds()
		if dt > 0 {
			alpha = 1 - math.Exp(-dt/t.gravityTimeConstant)
		}
	}
	t.gravityVector = t.gravityVector.Mul(1 - alpha).Add(a.Mul(alpha))

	correction := rotationBetween(t.gravityVector, r3.Vector{Z: 1})
	t.orientation = transform.NormalizeQuaternion(quat.Mul(t.orientation, correction))
	t.gravityVector = rotateVector(quat.Conj(correction), t.gravityVector)
}

// rotationBetween returns the minimal rotation mapping the direction of from
// onto the direction of to.
func rotationBetween(from, to r3.Vector) quat.Number {
	f := from.Normalize()
	g := to.Normalize()
	dot := f.Dot(g)
	switch {
	case dot > 1-1e-12:
		return quat.Number{Real: 1}
	case dot < -1+1e-12:
		axis := orthogonalTo(f)
		return transform.FromAxisAngle([3]float64{axis.X, axis.Y, axis.Z}, math.Pi)
	default:
		axis := f.Cross(g)
		angle := math.Acos(dot)
		return transform.FromAxisAngle([3]float64{axis.X, axis.Y, axis.Z}, angle)
	}
}

func orthogonalTo(v r3.Vector) r3.Vector {
	if math.Abs(v.X) < math.Abs(v.Y) {
		return r3.Vector{X: 1}.Cross(v).Normalize()
	}
	return r3.Vector{Y: 1}.Cross(v).Normalize()
}
