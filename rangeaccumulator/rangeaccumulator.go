// Package rangeaccumulator implements the Range Accumulator: it batches N
// consecutive range-data scans into one composite scan expressed in the
// first scan's tracking frame, applying the min/max range policy to each
// scan as it arrives.
package rangeaccumulator

import (
	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// Options configures the accumulation batch size and range acceptance band.
type Options struct {
	ScansPerAccumulation int
	MinRange             float64
	MaxRange             float64
	MissingDataRayLength float64
}

// Accumulator batches range data across multiple calls to AddRangeData.
type Accumulator struct {
	opts Options

	count             int
	firstPoseEstimate transform.Rigid3
	accumulated       rangedata.RangeData
}

// New constructs an empty Accumulator.
func New(opts Options) *Accumulator {
	if opts.ScansPerAccumulation < 1 {
		opts.ScansPerAccumulation = 1
	}
	return &Accumulator{opts: opts}
}

// Result is the composite scan returned once a batch completes, expressed in
// the tracking frame at the time the final scan in the batch arrived.
type Result struct {
	RangeData rangedata.RangeData
}

// AddRangeData folds one scan, observed at poseEstimate, into the current
// batch. It returns the composite scan and true once ScansPerAccumulation
// scans have been folded in, resetting the accumulator's state.
func (a *Accumulator) AddRangeData(data rangedata.RangeData, poseEstimate transform.Rigid3) (Result, bool) {
	if a.count == 0 {
		a.firstPoseEstimate = poseEstimate
		a.accumulated = rangedata.RangeData{}
	}

	trackingDelta := transform.Multiply3(a.firstPoseEstimate.Inverse(), poseEstimate)
	inFirstTracking := rangedata.Transform(data, trackingDelta)

	for _, hit := range inFirstTracking.Returns {
		r := hit.Sub(inFirstTracking.Origin).Norm()
		switch {
		case r < a.opts.MinRange:
			// discard: too close to be trustworthy.
		case r <= a.opts.MaxRange:
			a.accumulated.Returns = append(a.accumulated.Returns, hit)
		default:
			direction := hit.Sub(inFirstTracking.Origin)
			miss := inFirstTracking.Origin.Add(direction.Mul(a.opts.MissingDataRayLength / r))
			a.accumulated.Misses = append(a.accumulated.Misses, miss)
		}
	}
	a.accumulated.Misses = append(a.accumulated.Misses, inFirstTracking.Misses...)
	a.accumulated.Origin = inFirstTracking.Origin

	a.count++
	if a.count < a.opts.ScansPerAccumulation {
		return Result{}, false
	}

	backToCurrent := trackingDelta.Inverse()
	composite := rangedata.Transform(a.accumulated, backToCurrent)

	a.count = 0
	a.accumulated = rangedata.RangeData{}

	return Result{RangeData: composite}, true
}
