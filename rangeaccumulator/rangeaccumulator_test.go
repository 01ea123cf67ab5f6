package rangeaccumulator

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestSingleScanBatchCompletesImmediately(t *testing.T) {
	a := New(Options{ScansPerAccumulation: 1, MaxRange: 10, MissingDataRayLength: 5})
	data := rangedata.RangeData{Returns: []r3.Vector{{X: 1}}}

	result, ok := a.AddRangeData(data, transform.IdentityRigid3())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(result.RangeData.Returns), test.ShouldEqual, 1)
}

func TestTwoScanBatchWaitsForSecondScan(t *testing.T) {
	a := New(Options{ScansPerAccumulation: 2, MaxRange: 10, MissingDataRayLength: 5})
	data := rangedata.RangeData{Returns: []r3.Vector{{X: 1}}}

	_, ok := a.AddRangeData(data, transform.IdentityRigid3())
	test.That(t, ok, test.ShouldBeFalse)

	result, ok := a.AddRangeData(data, transform.IdentityRigid3())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(result.RangeData.Returns), test.ShouldEqual, 2)
}

func TestHitsBeyondMaxRangeBecomeSyntheticMisses(t *testing.T) {
	a := New(Options{ScansPerAccumulation: 1, MaxRange: 5, MissingDataRayLength: 2})
	data := rangedata.RangeData{Returns: []r3.Vector{{X: 100}}}

	result, ok := a.AddRangeData(data, transform.IdentityRigid3())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(result.RangeData.Returns), test.ShouldEqual, 0)
	test.That(t, len(result.RangeData.Misses), test.ShouldEqual, 1)
	test.That(t, result.RangeData.Misses[0].X, test.ShouldAlmostEqual, 2.0)
}

func TestHitsBelowMinRangeAreDiscarded(t *testing.T) {
	a := New(Options{ScansPerAccumulation: 1, MinRange: 1, MaxRange: 10, MissingDataRayLength: 2})
	data := rangedata.RangeData{Returns: []r3.Vector{{X: 0.1}}}

	result, ok := a.AddRangeData(data, transform.IdentityRigid3())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(result.RangeData.Returns), test.ShouldEqual, 0)
	test.That(t, len(result.RangeData.Misses), test.ShouldEqual, 0)
}
