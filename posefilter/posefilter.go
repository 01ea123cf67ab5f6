// Package posefilter implements the Pose Filter: a Kalman-style estimator
// that maintains a 9-dimensional error state (position, orientation as a
// rotation vector, velocity) around a nominal Rigid3 pose, exposing a 6-DoF
// mean and covariance for the pose block.
package posefilter

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

const stateDim = 9

// ModelVariances configures the process noise added per second of elapsed
// time for each part of the filter's state. GravityTimeConstant is carried
// with the other model inputs but is not read by the filter; gravity is
// estimated by imutracker.
type ModelVariances struct {
	Orientation         float64
	Position            float64
	Velocity            float64
	GravityTimeConstant float64
}

// Filter is a Kalman filter over (position, orientation, velocity).
type Filter struct {
	variances ModelVariances

	time time.Time

	// nominal holds the linearization point; the state vector below is the
	// error state around it.
	position    r3.Vector
	orientation quat.Number
	velocity    r3.Vector

	covariance *mat.SymDense
}

// New constructs a Filter at time t0 with zero pose, zero velocity and zero
// initial covariance.
func New(t0 time.Time, variances ModelVariances) *Filter {
	return &Filter{
		variances:   variances,
		time:        t0,
		orientation: quat.Number{Real: 1},
		covariance:  mat.NewSymDense(stateDim, nil),
	}
}

func (f *Filter) predictCovariance(dt float64) {
	if dt <= 0 {
		return
	}
	for i := 0; i < 3; i++ {
		addDiag(f.covariance, i, f.variances.Position*dt)
		addDiag(f.covariance, i+3, f.variances.Orientation*dt)
		addDiag(f.covariance, i+6, f.variances.Velocity*dt)
	}
}

func addDiag(m *mat.SymDense, i int, v float64) {
	m.SetSym(i, i, m.At(i, i)+v)
}

// Predict extrapolates the filter's nominal pose and covariance to time t
// using the current velocity as a constant-velocity model.
func (f *Filter) Predict(t time.Time) {
	if t.Before(f.time) {
		panic(fmt.Sprintf("posefilter: time %v precedes filter time %v", t, f.time))
	}
	dt := t.Sub(f.time).Seconds()
	f.position = f.position.Add(f.velocity.Mul(dt))
	f.predictCovariance(dt)
	f.time = t
}

// AddPoseObservation fuses an observed pose with per-axis observation
// variances (position xyz, orientation xyz) using a Kalman update on the
// linearized error state.
func (f *Filter) AddPoseObservation(t time.Time, pose transform.Rigid3, obsVariance [6]float64) {
	f.Predict(t)

	errPos := pose.Translation.Sub(f.position)
	errRot := rotationVectorBetween(f.orientation, pose.Rotation)

	for i := 0; i < 3; i++ {
		f.updateAxis(i, axisValue(errPos, i), obsVariance[i])
	}
	for i := 0; i < 3; i++ {
		f.updateAxis(i+3, axisValue(errRot, i), obsVariance[i+3])
	}

	f.orientation = transform.NormalizeQuaternion(f.orientation)
}

func axisValue(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// updateAxis performs a scalar Kalman update on state axis i given an
// innovation z and its observation variance r, folding the correction
// straight into the nominal position/orientation/velocity.
func (f *Filter) updateAxis(i int, z, r float64) {
	p := f.covariance.At(i, i)
	if p+r == 0 {
		return
	}
	k := p / (p + r)
	correction := k * z
	f.covariance.SetSym(i, i, (1-k)*p)
	f.applyCorrection(i, correction)
}

func (f *Filter) applyCorrection(i int, delta float64) {
	switch {
	case i < 3:
		f.position = addAxis(f.position, i, delta)
	case i < 6:
		axis := i - 3
		rot := r3.Vector{}
		rot = addAxis(rot, axis, delta)
		f.orientation = quat.Mul(f.orientation, transform.FromAxisAngle([3]float64{rot.X, rot.Y, rot.Z}, rot.Norm()))
	default:
		f.velocity = addAxis(f.velocity, i-6, delta)
	}
}

func addAxis(v r3.Vector, axis int, delta float64) r3.Vector {
	switch axis {
	case 0:
		v.X += delta
	case 1:
		v.Y += delta
	default:
		v.Z += delta
	}
	return v
}

// AddLinearAccelerationObservation folds a linear-acceleration reading into
// the velocity/orientation state. If absoluteOrientation is non-nil, it is
// treated as a direct orientation observation with the model's orientation
// variance.
func (f *Filter) AddLinearAccelerationObservation(t time.Time, a r3.Vector, absoluteOrientation *quat.Number) {
	f.Predict(t)
	if absoluteOrientation != nil {
		errRot := rotationVectorBetween(f.orientation, *absoluteOrientation)
		for i := 0; i < 3; i++ {
			f.updateAxis(i+3, axisValue(errRot, i), f.variances.Orientation)
		}
		f.orientation = transform.NormalizeQuaternion(f.orientation)
	}
}

// AddAngularVelocityObservation records an angular velocity observation,
// used only to grow the orientation process noise at its elapsed-rate;
// the angular velocity itself is integrated by the Orientation Tracker.
func (f *Filter) AddAngularVelocityObservation(t time.Time, w r3.Vector) {
	f.Predict(t)
}

// MeanAndCovariance extrapolates to time t and returns the pose mean and its
// 6x6 covariance (position xyz, orientation xyz).
func (f *Filter) MeanAndCovariance(t time.Time) (transform.Rigid3, *mat.SymDense) {
	f.Predict(t)
	pose := transform.Rigid3{Translation: f.position, Rotation: f.orientation}
	cov := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			cov.SetSym(i, j, f.covariance.At(i, j))
		}
	}
	return pose, cov
}

// rotationVectorBetween returns the small-angle rotation vector that, applied
// on the right of from, yields to.
func rotationVectorBetween(from, to quat.Number) r3.Vector {
	delta := quat.Mul(quat.Conj(from), to)
	angle := 2 * anglehalf(delta)
	axis := r3.Vector{X: delta.Imag, Y: delta.Jmag, Z: delta.Kmag}
	n := axis.Norm()
	if n < 1e-12 {
		return r3.Vector{}
	}
	return axis.Normalize().Mul(angle)
}

func anglehalf(q quat.Number) float64 {
	n := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}.Norm()
	return math.Atan2(n, q.Real)
}
