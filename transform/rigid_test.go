package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestProject2DEmbed3DRoundTrip(t *testing.T) {
	r2d := Rigid2{Translation: r2.Point{X: 1.5, Y: -2.25}, Angle: 0.7}
	got := Project2D(Embed3D(r2d))
	test.That(t, got.Translation.X, test.ShouldAlmostEqual, r2d.Translation.X)
	test.That(t, got.Translation.Y, test.ShouldAlmostEqual, r2d.Translation.Y)
	test.That(t, got.Angle, test.ShouldAlmostEqual, r2d.Angle)
}

func TestRigid3InverseIsIdentity(t *testing.T) {
	r := Rigid3{Translation: r3.Vector{X: 1, Y: 2, Z: 3}, Rotation: RotationAroundZ(0.4)}
	composed := Multiply3(r, r.Inverse())
	test.That(t, composed.Translation.X, test.ShouldAlmostEqual, 0)
	test.That(t, composed.Translation.Y, test.ShouldAlmostEqual, 0)
	test.That(t, composed.Translation.Z, test.ShouldAlmostEqual, 0)
	test.That(t, composed.Rotation.Real, test.ShouldAlmostEqual, 1)
}

func TestGetYawRecoversRotationAroundZ(t *testing.T) {
	for _, angle := range []float64{0, 0.3, -1.2, math.Pi / 2} {
		q := RotationAroundZ(angle)
		test.That(t, GetYaw(q), test.ShouldAlmostEqual, angle)
	}
}

func TestMultiply3AppliesRightOperandFirst(t *testing.T) {
	identity := IdentityRigid3().Rotation
	a := Rigid3{Translation: r3.Vector{X: 1}, Rotation: identity}
	b := Rigid3{Translation: r3.Vector{Y: 1}, Rotation: identity}
	p := r3.Vector{X: 2, Y: 3, Z: 4}

	composed := Multiply3(a, b).Apply(p)
	direct := a.Apply(b.Apply(p))

	test.That(t, composed.X, test.ShouldAlmostEqual, direct.X)
	test.That(t, composed.Y, test.ShouldAlmostEqual, direct.Y)
	test.That(t, composed.Z, test.ShouldAlmostEqual, direct.Z)
}
