package rangedata

import (
	"math"

	"github.com/golang/geo/r3"
)

// voxelKey identifies a cubic cell of a regular grid of the given resolution.
type voxelKey struct {
	I, J, K int64
}

func keyFor(p r3.Vector, size float64) voxelKey {
	return voxelKey{
		I: int64(math.Floor(p.X / size)),
		J: int64(math.Floor(p.Y / size)),
		K: int64(math.Floor(p.Z / size)),
	}
}

// VoxelFiltered downsamples points to at most one point per cubic cell of the
// given size, keeping the first point seen in each occupied cell. A
// nonpositive size returns points unchanged.
func VoxelFiltered(points []r3.Vector, size float64) []r3.Vector {
	if size <= 0 || len(points) == 0 {
		return points
	}
	seen := make(map[voxelKey]struct{}, len(points))
	out := make([]r3.Vector, 0, len(points))
	for _, p := range points {
		k := keyFor(p, size)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// AdaptiveVoxelFilterOptions controls AdaptiveVoxelFilter's search for a
// voxel size that keeps the returned point count near MinNumPoints without
// ever filtering at a resolution coarser than MaxLength.
type AdaptiveVoxelFilterOptions struct {
	// MaxLength is the coarsest voxel size ever tried, in meters.
	MaxLength float64
	// MinNumPoints is the point count the filter tries not to undershoot.
	MinNumPoints int
}

// AdaptiveVoxelFilter repeatedly halves the voxel size starting from
// MaxLength until the filtered point cloud has at least MinNumPoints points,
// or the voxel size has halved ten times. This mirrors Cartographer's
// adaptive filter, which trades resolution for a point count so the
// nonlinear scan matcher gets a bounded amount of input.
func AdaptiveVoxelFilter(points []r3.Vector, opts AdaptiveVoxelFilterOptions) []r3.Vector {
	if opts.MaxLength <= 0 || len(points) <= opts.MinNumPoints {
		return points
	}
	size := opts.MaxLength
	var filtered []r3.Vector
	for i := 0; i < 10; i++ {
		filtered = VoxelFiltered(points, size)
		if len(filtered) >= opts.MinNumPoints {
			return filtered
		}
		size /= 2
	}
	return filtered
}
