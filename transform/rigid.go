// Package transform implements the rigid-body transforms used to move range
// data and poses between the tracking, submap and map frames.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Rigid3 is a rotation (unit quaternion) plus a translation in 3D.
type Rigid3 struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// Rigid2 is a rotation (yaw angle) plus a translation in 2D.
type Rigid2 struct {
	Translation r2.Point
	Angle       float64
}

// IdentityRigid3 returns the 3D identity transform.
func IdentityRigid3() Rigid3 {
	return Rigid3{Translation: r3.Vector{}, Rotation: quat.Number{Real: 1}}
}

// IdentityRigid2 returns the 2D identity transform.
func IdentityRigid2() Rigid2 {
	return Rigid2{}
}

// RotationAroundZ returns the quaternion rotating by angle radians around the z axis.
func RotationAroundZ(angle float64) quat.Number {
	half := angle / 2
	return quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
}

// rotateVector rotates v by the unit quaternion q: q * v * conj(q).
func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Apply transforms the point p from the frame this Rigid3 maps from into the frame it maps to.
func (r Rigid3) Apply(p r3.Vector) r3.Vector {
	return rotateVector(r.Rotation, p).Add(r.Translation)
}

// Inverse returns the inverse transform.
func (r Rigid3) Inverse() Rigid3 {
	invRot := quat.Conj(r.Rotation)
	return Rigid3{
		Translation: rotateVector(invRot, r.Translation).Mul(-1),
		Rotation:    invRot,
	}
}

// Multiply3 composes a and b the way Eigen/cartographer's `a * b` does: applying the
// result to a point p is equivalent to a.Apply(b.Apply(p)).
func Multiply3(a, b Rigid3) Rigid3 {
	return Rigid3{
		Translation: a.Apply(b.Translation),
		Rotation:    quat.Mul(a.Rotation, b.Rotation),
	}
}

// Apply transforms the point p by this Rigid2.
func (r Rigid2) Apply(p r2.Point) r2.Point {
	c, s := math.Cos(r.Angle), math.Sin(r.Angle)
	return r2.Point{
		X: c*p.X - s*p.Y + r.Translation.X,
		Y: s*p.X + c*p.Y + r.Translation.Y,
	}
}

// Inverse returns the inverse transform.
func (r Rigid2) Inverse() Rigid2 {
	inv := Rigid2{Angle: -r.Angle}
	inv.Translation = inv.Apply(r2.Point{X: -r.Translation.X, Y: -r.Translation.Y})
	return inv
}

// Multiply2 composes a and b the way cartographer's `a * b` does for Rigid2.
func Multiply2(a, b Rigid2) Rigid2 {
	return Rigid2{
		Translation: a.Apply(b.Translation),
		Angle:       normalizeAngle(a.Angle + b.Angle),
	}
}

// GetYaw returns the yaw (rotation about the z axis) encoded by q, in radians.
func GetYaw(q quat.Number) float64 {
	// Standard quaternion-to-yaw extraction (Z-Y-X Euler convention).
	sinYCosP := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosYCosP := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(sinYCosP, cosYCosP)
}

// Project2D drops the z component and keeps only the yaw of r's rotation.
func Project2D(r Rigid3) Rigid2 {
	return Rigid2{
		Translation: r2.Point{X: r.Translation.X, Y: r.Translation.Y},
		Angle:       GetYaw(r.Rotation),
	}
}

// Embed3D lifts a Rigid2 into Rigid3 with zero z translation and a pure yaw rotation.
func Embed3D(r Rigid2) Rigid3 {
	return Rigid3{
		Translation: r3.Vector{X: r.Translation.X, Y: r.Translation.Y},
		Rotation:    RotationAroundZ(r.Angle),
	}
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
