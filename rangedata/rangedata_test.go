package rangedata

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestCropDropsPointsOutsideZBand(t *testing.T) {
	data := RangeData{
		Returns: []r3.Vector{{Z: -1}, {Z: 0}, {Z: 1}, {Z: 3}},
	}
	cropped := Crop(data, -0.5, 2)
	test.That(t, len(cropped.Returns), test.ShouldEqual, 2)
	test.That(t, cropped.Returns[0].Z, test.ShouldEqual, 0.0)
	test.That(t, cropped.Returns[1].Z, test.ShouldEqual, 1.0)
}

func TestTransformAppliesToOriginAndPoints(t *testing.T) {
	data := RangeData{
		Origin:  r3.Vector{},
		Returns: []r3.Vector{{X: 1}},
	}
	moved := transform.Rigid3{Translation: r3.Vector{X: 5}, Rotation: transform.IdentityRigid3().Rotation}
	out := Transform(data, moved)
	test.That(t, out.Origin.X, test.ShouldEqual, 5.0)
	test.That(t, out.Returns[0].X, test.ShouldEqual, 6.0)
}

func TestVoxelFilteredDedupesWithinCell(t *testing.T) {
	points := []r3.Vector{{X: 0.01}, {X: 0.02}, {X: 1}}
	out := VoxelFiltered(points, 0.1)
	test.That(t, len(out), test.ShouldEqual, 2)
}

func TestVoxelFilteredPassthroughOnNonPositiveSize(t *testing.T) {
	points := []r3.Vector{{X: 1}, {X: 2}}
	out := VoxelFiltered(points, 0)
	test.That(t, len(out), test.ShouldEqual, 2)
}

func TestAdaptiveVoxelFilterRespectsMinNumPoints(t *testing.T) {
	points := make([]r3.Vector, 0, 500)
	for i := 0; i < 500; i++ {
		points = append(points, r3.Vector{X: float64(i) * 0.01})
	}
	out := AdaptiveVoxelFilter(points, AdaptiveVoxelFilterOptions{MaxLength: 0.9, MinNumPoints: 100})
	test.That(t, len(out) >= 100, test.ShouldBeTrue)
}
