package transform

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// NormalizeQuaternion rescales q to unit length, guarding against the zero quaternion.
func NormalizeQuaternion(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// FromAxisAngle returns the unit quaternion rotating by angle radians around axis.
// axis need not be normalized; the zero vector yields the identity rotation.
func FromAxisAngle(axis [3]float64, angle float64) quat.Number {
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	half := angle / 2
	s := math.Sin(half) / norm
	return quat.Number{
		Real: math.Cos(half),
		Imag: axis[0] * s,
		Jmag: axis[1] * s,
		Kmag: axis[2] * s,
	}
}
