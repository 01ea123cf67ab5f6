// Package rangedata implements the range-finder point cloud container and the
// transform/crop/filter operations applied to it before insertion into a
// submap or use by the scan matcher.
package rangedata

import (
	"github.com/golang/geo/r3"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

// RangeData is one batch of range-finder returns together with the sensor
// origin they were observed from. Misses are the far-range returns that were
// converted into "no obstacle up to here" rays rather than obstacle hits.
type RangeData struct {
	Origin  r3.Vector
	Returns []r3.Vector
	Misses  []r3.Vector
}

// Transform applies t to the origin and every point in returns and misses.
func Transform(rd RangeData, t transform.Rigid3) RangeData {
	out := RangeData{
		Origin:  t.Apply(rd.Origin),
		Returns: make([]r3.Vector, len(rd.Returns)),
		Misses:  make([]r3.Vector, len(rd.Misses)),
	}
	for i, p := range rd.Returns {
		out.Returns[i] = t.Apply(p)
	}
	for i, p := range rd.Misses {
		out.Misses[i] = t.Apply(p)
	}
	return out
}

// Crop drops every point in returns and misses whose z coordinate falls
// outside [minZ, maxZ]. The origin is passed through unchanged.
func Crop(rd RangeData, minZ, maxZ float64) RangeData {
	return RangeData{
		Origin:  rd.Origin,
		Returns: cropPoints(rd.Returns, minZ, maxZ),
		Misses:  cropPoints(rd.Misses, minZ, maxZ),
	}
}

func cropPoints(points []r3.Vector, minZ, maxZ float64) []r3.Vector {
	out := make([]r3.Vector, 0, len(points))
	for _, p := range points {
		if p.Z >= minZ && p.Z <= maxZ {
			out = append(out, p)
		}
	}
	return out
}
