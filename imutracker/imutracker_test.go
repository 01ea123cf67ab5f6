package imutracker

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestYawAccumulatesFromAngularVelocity(t *testing.T) {
	base := time.Now()
	tr := New(base, 0)
	tr.AddAngularVelocity(base, r3.Vector{Z: math.Pi / 2})
	tr.Advance(base.Add(time.Second))

	yaw := transform.GetYaw(tr.Orientation())
	test.That(t, yaw, test.ShouldAlmostEqual, math.Pi/2)
}

func TestLinearAccelerationAlignsGravityWithoutChangingYaw(t *testing.T) {
	base := time.Now()
	tr := New(base, 0)
	tr.AddAngularVelocity(base, r3.Vector{Z: math.Pi / 2})
	tr.Advance(base.Add(time.Second))
	yawBefore := transform.GetYaw(tr.Orientation())

	tr.AddLinearAcceleration(base.Add(time.Second), r3.Vector{Z: 1}, nil)
	yawAfter := transform.GetYaw(tr.Orientation())

	test.That(t, yawAfter, test.ShouldAlmostEqual, yawBefore)
}

func TestAbsoluteOrientationOverridesEstimate(t *testing.T) {
	base := time.Now()
	tr := New(base, 1)
	want := transform.FromAxisAngle([3]float64{0, 0, 1}, math.Pi/4)
	tr.AddLinearAcceleration(base, r3.Vector{Z: 1}, &want)
	test.That(t, tr.Orientation(), test.ShouldEqual, want)
}

func TestAdvanceToPastTimePanics(t *testing.T) {
	base := time.Now()
	tr := New(base, 0)
	defer func() {
		r := recover()
		test.That(t, r, test.ShouldNotBeNil)
	}()
	tr.Advance(base.Add(-time.Second))
}
