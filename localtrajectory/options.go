package localtrajectory

import (
	"time"

	"github.com/viam-modules/local-trajectory-builder/motionfilter"
	"github.com/viam-modules/local-trajectory-builder/posefilter"
	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/scanmatching"
	"github.com/viam-modules/local-trajectory-builder/submap"
)

// Options aggregates every configuration input the builder's components
// need, mirroring Cartographer's Lua proto options groups (submaps_options,
// motion_filter_options, and so on).
type Options struct {
	UseIMUData                  bool
	IMUGravityTimeConstant      float64
	MinRange                    float64
	MaxRange                    float64
	MissingDataRayLength        float64
	ScansPerAccumulation        int
	VoxelFilterSize             float64
	AdaptiveVoxelFilter         rangedata.AdaptiveVoxelFilterOptions
	MinZ                        float64
	MaxZ                        float64
	MotionFilter                motionfilter.Options
	Submaps                     submap.Options
	ScanMatching                scanmatching.Options
	NumOdometryStates           int
	OdometerDistanceGuard       float64
	OdometerPriorityWindow      int
	PoseFilterVariances         posefilter.ModelVariances
	OdometerObservationVariance [6]float64

	// UseRawReturns feeds the scan matcher the cropped, non-voxel-filtered
	// returns instead of the filtered point cloud, trading matching speed
	// for accuracy. Off by default.
	UseRawReturns bool
}

// DefaultOptions returns Options matching the values Cartographer ships
// with, adapted to this package's types.
func DefaultOptions() Options {
	return Options{
		UseIMUData:             true,
		IMUGravityTimeConstant: 1e9,
		MinRange:               0,
		MaxRange:               30,
		MissingDataRayLength:   5,
		ScansPerAccumulation:   1,
		VoxelFilterSize:        0.025,
		AdaptiveVoxelFilter: rangedata.AdaptiveVoxelFilterOptions{
			MaxLength:    0.9,
			MinNumPoints: 100,
		},
		MinZ: -0.8,
		MaxZ: 2,
		MotionFilter: motionfilter.Options{
			MaxTime:     5 * time.Second,
			MaxDistance: 0.2,
			MaxAngle:    0.0175,
		},
		Submaps:                submap.DefaultOptions(),
		ScanMatching:           scanmatching.DefaultOptions(),
		NumOdometryStates:      1,
		OdometerDistanceGuard:  5,
		OdometerPriorityWindow: 300,
		PoseFilterVariances: posefilter.ModelVariances{
			Orientation:         5e-3,
			Position:            0.00654766,
			Velocity:            0.53926,
			GravityTimeConstant: 1e9,
		},
		OdometerObservationVariance: [6]float64{1e-6, 1e-6, 1e-6, 1e-6, 1e-6, 1e-6},
	}
}
