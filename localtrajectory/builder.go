// Package localtrajectory implements the Local Trajectory Builder: the
// orchestrator that fuses IMU, odometer and horizontal range-finder samples
// into a pose estimate and drives submap insertion.
package localtrajectory

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/local-trajectory-builder/imutracker"
	"github.com/viam-modules/local-trajectory-builder/motionfilter"
	"github.com/viam-modules/local-trajectory-builder/motionpredictor"
	"github.com/viam-modules/local-trajectory-builder/odometry"
	"github.com/viam-modules/local-trajectory-builder/posefilter"
	"github.com/viam-modules/local-trajectory-builder/rangeaccumulator"
	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/scanmatching"
	"github.com/viam-modules/local-trajectory-builder/submap"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// InsertionResult is emitted each time an accumulated scan passes the motion
// filter gate and is inserted into the active submap pair.
type InsertionResult struct {
	Time                 time.Time
	Submaps              []*submap.Submap
	TrackingToTracking2D transform.Rigid3
	FilteredRangeData    rangedata.RangeData
	Pose2D               transform.Rigid2
}

// PoseEstimateResult is read through the PoseEstimate() accessor: the time
// and map-frame point cloud of the last scan match, and the current pose
// estimate (see PoseEstimate).
type PoseEstimateResult struct {
	Time            time.Time
	Pose            transform.Rigid3
	PointCloudInMap []r3.Vector
}

// Builder is the local trajectory builder. The zero value is not usable;
// construct with New. A Builder is not safe for concurrent use — callers
// multiplexing sensor streams must serialize before entry.
type Builder struct {
	opts   Options
	logger logging.Logger

	orientationTracker *imutracker.Tracker
	poseFilter         *posefilter.Filter
	odometryHistory    *odometry.Tracker
	accumulator        *rangeaccumulator.Accumulator
	activeSubmaps      *submap.ActiveSubmaps
	motionFilter       *motionfilter.Filter

	hasCursor bool
	cursor    time.Time

	poseEstimate       transform.Rigid3
	velocityEstimate   r2.Point
	odometryCorrection transform.Rigid3

	hasLastScanMatchTime bool
	lastScanMatchTime    time.Time

	odometerPriorityCounter int
	modeOdoFirstChoice      bool

	lastPoseEstimateTime time.Time
	hasPoseEstimate      bool
	lastPointCloudInMap  []r3.Vector
}

// New constructs a Builder from opts, ready to accept sensor samples.
func New(logger logging.Logger, opts Options) *Builder {
	return &Builder{
		opts:            opts,
		logger:          logger,
		odometryHistory: odometry.NewTracker(opts.NumOdometryStates),
		accumulator: rangeaccumulator.New(rangeaccumulator.Options{
			ScansPerAccumulation: opts.ScansPerAccumulation,
			MinRange:             opts.MinRange,
			MaxRange:             opts.MaxRange,
			MissingDataRayLength: opts.MissingDataRayLength,
		}),
		activeSubmaps:      submap.NewActiveSubmaps(opts.Submaps),
		motionFilter:       motionfilter.NewFilter(opts.MotionFilter),
		odometryCorrection: transform.IdentityRigid3(),
		poseEstimate:       transform.IdentityRigid3(),
	}
}

func (b *Builder) initOrientationTracker(t time.Time) {
	if b.orientationTracker == nil {
		b.orientationTracker = imutracker.New(t, b.opts.IMUGravityTimeConstant)
	}
}

// predict advances the orientation tracker and time cursor to t and updates
// poseEstimate with the constant-velocity prediction, implementing the
// Motion Predictor.
func (b *Builder) predict(t time.Time) {
	b.poseEstimate = motionpredictor.Predict(b.orientationTracker, b.cursor, b.hasCursor, t, b.poseEstimate, b.velocityEstimate)
	b.cursor = t
	b.hasCursor = true
}

// AddIMU feeds one IMU sample. Requires UseIMUData; the caller sending an
// IMU sample while it is disabled is a programming error.
func (b *Builder) AddIMU(t time.Time, linearAcceleration, angularVelocity r3.Vector, absoluteOrientation *quat.Number) {
	if !b.opts.UseIMUData {
		panic("localtrajectory: add_imu called but use_imu_data is disabled")
	}
	if b.poseFilter == nil {
		b.poseFilter = posefilter.New(t, b.opts.PoseFilterVariances)
	}
	b.initOrientationTracker(t)

	b.predict(t)

	b.orientationTracker.AddLinearAcceleration(t, linearAcceleration, absoluteOrientation)
	b.orientationTracker.AddAngularVelocity(t, angularVelocity)

	b.poseFilter.AddLinearAccelerationObservation(t, linearAcceleration, absoluteOrientation)
	b.poseFilter.AddAngularVelocityObservation(t, angularVelocity)
}

// AddOdometer feeds one odometer pose sample. Dropped (with a log) if the
// orientation tracker or pose filter have not been initialized yet.
func (b *Builder) AddOdometer(t time.Time, rawPose transform.Rigid3) {
	if b.orientationTracker == nil {
		b.logger.Infow("orientation tracker not yet initialized, dropping odometer sample", "time", t)
		return
	}
	if b.poseFilter == nil {
		b.logger.Infow("pose filter not yet initialized, dropping odometer sample", "time", t)
		return
	}

	b.predict(t)

	odometerPoseWithIMU := transform.Rigid3{
		Translation: rawPose.Translation,
		Rotation:    b.orientationTracker.Orientation(),
	}

	b.poseFilter.AddPoseObservation(t, odometerPoseWithIMU, b.opts.OdometerObservationVariance)

	if !b.odometryHistory.Empty() {
		previous := b.odometryHistory.Newest()
		delta := transform.Multiply3(previous.OdometerPose.Inverse(), odometerPoseWithIMU)
		newPose := transform.Multiply3(previous.StatePose, delta)

		dx := rawPose.Translation.X - b.poseEstimate.Translation.X
		dy := rawPose.Translation.Y - b.poseEstimate.Translation.Y
		dist := dx*dx + dy*dy

		if dist > b.opts.OdometerDistanceGuard {
			b.modeOdoFirstChoice = true
			b.odometerPriorityCounter = b.opts.OdometerPriorityWindow
		}

		if b.odometerPriorityCounter > 1 {
			b.odometryCorrection = transform.Multiply3(b.poseEstimate.Inverse(), odometerPoseWithIMU)
			b.odometerPriorityCounter--
		} else {
			b.modeOdoFirstChoice = false
			b.odometryCorrection = transform.Multiply3(b.poseEstimate.Inverse(), newPose)
		}
	}

	b.odometryHistory.AddOdometryState(odometry.State{
		Time:         t,
		OdometerPose: odometerPoseWithIMU,
		StatePose:    transform.Multiply3(b.poseEstimate, b.odometryCorrection),
	})
}

// AddHorizontalRange feeds one horizontal range-finder scan. If IMU is
// disabled, it lazily initializes the orientation tracker on the first call.
// Returns nil unless this scan completes an accumulation batch, passes the
// scan matcher, and clears the motion filter gate.
func (b *Builder) AddHorizontalRange(t time.Time, data rangedata.RangeData) *InsertionResult {
	if !b.opts.UseIMUData {
		b.initOrientationTracker(t)
	}
	if b.orientationTracker == nil {
		b.logger.Infow("orientation tracker not yet initialized, dropping range data", "time", t)
		return nil
	}

	b.predict(t)

	result, ready := b.accumulator.AddRangeData(data, b.poseEstimate)
	if !ready {
		return nil
	}

	return b.processAccumulated(t, result.RangeData)
}

func (b *Builder) processAccumulated(t time.Time, data rangedata.RangeData) *InsertionResult {
	odometryPrediction := transform.Multiply3(b.poseEstimate, b.odometryCorrection)
	modelPrediction := b.poseEstimate
	posePrediction := odometryPrediction

	trackingToTracking2D := transform.Rigid3{
		Rotation: quat.Mul(transform.RotationAroundZ(-transform.GetYaw(posePrediction.Rotation)), posePrediction.Rotation),
	}

	transformed := rangedata.Transform(data, trackingToTracking2D)
	cropped := rangedata.Crop(transformed, b.opts.MinZ, b.opts.MaxZ)
	filtered := rangedata.RangeData{
		Origin:  cropped.Origin,
		Returns: rangedata.VoxelFiltered(cropped.Returns, b.opts.VoxelFilterSize),
		Misses:  rangedata.VoxelFiltered(cropped.Misses, b.opts.VoxelFilterSize),
	}

	if len(filtered.Returns) == 0 {
		b.logger.Warnw("dropped empty horizontal range data", "time", t)
		return nil
	}

	matchingSubmap := b.activeSubmaps.Matching()
	matcherInput := rangedata.AdaptiveVoxelFilter(filtered.Returns, b.opts.AdaptiveVoxelFilter)
	if b.opts.UseRawReturns {
		matcherInput = cropped.Returns
	}
	returns2D := project2DPoints(matcherInput)
	matchResult := scanmatching.Match(posePrediction, trackingToTracking2D, returns2D, matchingSubmap.Grid, b.opts.ScanMatching)
	b.poseEstimate = matchResult.PoseObservation
	b.odometryCorrection = transform.IdentityRigid3()

	if !b.odometryHistory.Empty() && !b.modeOdoFirstChoice {
		newest := b.odometryHistory.Newest()
		statePose := transform.Multiply3(transform.Multiply3(newest.StatePose, odometryPrediction.Inverse()), b.poseEstimate)
		b.odometryHistory.AddOdometryState(odometry.State{
			Time:         t,
			OdometerPose: newest.OdometerPose,
			StatePose:    statePose,
		})
	}

	suppressVelocityUpdate := b.modeOdoFirstChoice
	if b.hasLastScanMatchTime && t.After(b.lastScanMatchTime) && !suppressVelocityUpdate {
		dt := t.Sub(b.lastScanMatchTime).Seconds()
		b.velocityEstimate.X += (b.poseEstimate.Translation.X - modelPrediction.Translation.X) / dt
		b.velocityEstimate.Y += (b.poseEstimate.Translation.Y - modelPrediction.Translation.Y) / dt
	}
	b.lastScanMatchTime = t
	b.hasLastScanMatchTime = true

	b.poseEstimate.Translation.Z = 0

	tracking2DToMap := transform.Multiply3(b.poseEstimate, trackingToTracking2D.Inverse())
	pose2D := transform.Project2D(tracking2DToMap)

	b.lastPointCloudInMap = transformPoints(filtered.Returns, tracking2DToMap)
	b.lastPoseEstimateTime = t
	b.hasPoseEstimate = true

	if b.motionFilter.IsSimilar(t, pose2D) {
		return nil
	}
	b.motionFilter.Accept(t, pose2D)

	submapsSnapshot := append([]*submap.Submap(nil), b.activeSubmaps.Submaps()...)

	embed := transform.Embed3D(pose2D)
	origin2D := project2DPoint(embed.Apply(filtered.Origin))
	insertReturns := transformAndProject2D(filtered.Returns, embed)
	insertMisses := transformAndProject2D(filtered.Misses, embed)
	b.activeSubmaps.InsertRangeData(origin2D, insertReturns, insertMisses)

	return &InsertionResult{
		Time:                 t,
		Submaps:              submapsSnapshot,
		TrackingToTracking2D: trackingToTracking2D,
		FilteredRangeData:    filtered,
		Pose2D:               pose2D,
	}
}

// PoseEstimate returns the time and map-frame point cloud of the last scan
// match, together with the builder's current pose estimate. That pose is the
// last scan-match result only until the next sensor sample: every
// AddIMU/AddOdometer/AddHorizontalRange call advances it by the motion
// prediction, so it is not held at the scan-match value.
func (b *Builder) PoseEstimate() PoseEstimateResult {
	return PoseEstimateResult{
		Time:            b.lastPoseEstimateTime,
		Pose:            b.poseEstimate,
		PointCloudInMap: b.lastPointCloudInMap,
	}
}

// Submaps returns a snapshot of the current active submap pair, index 0
// being the matching target.
func (b *Builder) Submaps() []*submap.Submap {
	return append([]*submap.Submap(nil), b.activeSubmaps.Submaps()...)
}

// OccupiedMapPoints returns the union of occupied cells across the active
// submap pair, already expressed in the global map frame.
func (b *Builder) OccupiedMapPoints(threshold float64) []r3.Vector {
	return b.activeSubmaps.OccupiedPoints(threshold)
}

func project2DPoints(points []r3.Vector) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = r2.Point{X: p.X, Y: p.Y}
	}
	return out
}

func project2DPoint(p r3.Vector) r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

func transformAndProject2D(points []r3.Vector, t transform.Rigid3) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = project2DPoint(t.Apply(p))
	}
	return out
}

func transformPoints(points []r3.Vector, t transform.Rigid3) []r3.Vector {
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = t.Apply(p)
	}
	return out
}
