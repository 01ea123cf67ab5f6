// Package motionpredictor implements the constant-velocity pose predictor
// that extrapolates the fused pose estimate to a query time, combining the
// Orientation Tracker's gravity-aligned attitude with a planar
// constant-velocity translation model.
package motionpredictor

import (
	"time"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-modules/local-trajectory-builder/imutracker"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// Predict extrapolates poseEstimate to time t using velocityEstimate (xy,
// m/s) and orientationTracker, which is advanced to t as a side effect.
// hasCursor is false only before the very first call; Predict then just
// advances the orientation tracker and returns poseEstimate unchanged, since
// there is no established cursor to measure elapsed time from.
func Predict(
	orientationTracker *imutracker.Tracker,
	cursor time.Time,
	hasCursor bool,
	t time.Time,
	poseEstimate transform.Rigid3,
	velocityEstimate r2.Point,
) transform.Rigid3 {
	lastYaw := transform.GetYaw(orientationTracker.Orientation())
	orientationTracker.Advance(t)

	if !hasCursor {
		return poseEstimate
	}

	dt := t.Sub(cursor).Seconds()
	yawDelta := transform.GetYaw(poseEstimate.Rotation) - lastYaw
	rotation := quat.Mul(transform.RotationAroundZ(yawDelta), orientationTracker.Orientation())

	translation := poseEstimate.Translation
	translation.X += velocityEstimate.X * dt
	translation.Y += velocityEstimate.Y * dt

	return transform.Rigid3{Translation: translation, Rotation: rotation}
}
