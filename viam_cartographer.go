// Package viamcartographer implements 2D LIDAR SLAM as a local trajectory builder:
// pure Go scan matching and submap management, fed by IMU, odometer and lidar
// sensors through a serialized builder queue. This is an Experimental package.
package viamcartographer

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	viamgrpc "go.viam.com/rdk/grpc"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/slam"
	"go.viam.com/rdk/spatialmath"

	"github.com/viam-modules/local-trajectory-builder/builderqueue"
	vcConfig "github.com/viam-modules/local-trajectory-builder/config"
	"github.com/viam-modules/local-trajectory-builder/localtrajectory"
	"github.com/viam-modules/local-trajectory-builder/sensorprocess"
	s "github.com/viam-modules/local-trajectory-builder/sensors"
	"github.com/viam-modules/local-trajectory-builder/submap"
)

// Model is the model name of this SLAM service.
var Model = resource.NewModel("viam", "slam", "local-trajectory-builder")

// ErrClosed denotes that the slam service method was called on a closed slam resource.
var ErrClosed = errors.Errorf("resource (%s) is closed", Model.String())

const (
	defaultLidarDataFrequencyHz          = 5
	defaultMovementSensorDataFrequencyHz = 20
	defaultQueueTimeout                  = 5 * time.Minute
	chunkSizeBytes                       = 1 * 1024 * 1024
	sensorValidationMaxTimeoutSec        = 30
	sensorValidationIntervalSec          = 1
)

func init() {
	resource.RegisterService(slam.API, Model, resource.Registration[slam.Service, *vcConfig.Config]{
		Constructor: func(
			ctx context.Context,
			deps resource.Dependencies,
			c resource.Config,
			logger logging.Logger,
		) (slam.Service, error) {
			return New(ctx, deps, c, logger, defaultQueueTimeout, nil, nil, nil)
		},
	})
}

func sensorName(sensors []string, i int) string {
	if i >= len(sensors) {
		return ""
	}
	return sensors[i]
}

// New returns a new local trajectory builder slam service for the given robot.
//
// Sensors[0] is the lidar; Sensors[1], if present, is a movement sensor that
// may supply IMU and/or odometer readings depending on which properties it
// reports.
func New(
	ctx context.Context,
	deps resource.Dependencies,
	c resource.Config,
	logger logging.Logger,
	queueTimeout time.Duration,
	testTimedLidarOverride s.TimedLidar,
	testTimedIMUOverride s.TimedIMUSensor,
	testTimedOdometerOverride s.TimedOdometerSensor,
) (slam.Service, error) {
	ctx, span := trace.StartSpan(ctx, "viamcartographer::New")
	defer span.End()

	svcConfig, err := resource.NativeConfig[*vcConfig.Config](c)
	if err != nil {
		return nil, err
	}

	if _, err := svcConfig.Validate("services.slam.attributes"); err != nil {
		return nil, err
	}

	lidarName := sensorName(svcConfig.Sensors, 0)
	movementSensorName := sensorName(svcConfig.Sensors, 1)

	lidarHz := defaultLidarDataFrequencyHz
	if svcConfig.LidarDataFrequencyHz != nil {
		lidarHz = *svcConfig.LidarDataFrequencyHz
	}
	movementSensorHz := defaultMovementSensorDataFrequencyHz
	if svcConfig.MovementSensorDataFrequencyHz != nil {
		movementSensorHz = *svcConfig.MovementSensorDataFrequencyHz
	}

	timedLidar, err := s.NewLidar(ctx, deps, lidarName, lidarHz, logger)
	if err != nil {
		return nil, err
	}

	var timedIMU s.TimedIMUSensor
	var timedOdometer s.TimedOdometerSensor
	if movementSensorName != "" {
		if timedIMU, err = s.NewIMU(ctx, deps, movementSensorName, movementSensorHz, logger); err != nil {
			logger.Infow("movement sensor does not support IMU readings", "name", movementSensorName, "error", err)
			timedIMU = nil
		}
		if timedOdometer, err = s.NewOdometer(ctx, deps, movementSensorName, movementSensorHz, logger); err != nil {
			logger.Infow("movement sensor does not support odometer readings", "name", movementSensorName, "error", err)
			timedOdometer = nil
		}
		if timedIMU == nil && timedOdometer == nil {
			return nil, errors.Errorf(
				"movement sensor %q supports neither IMU nor odometer readings", movementSensorName)
		}
	} else {
		logger.Info("no movement sensor configured, proceeding without IMU and without odometer")
	}

	if testTimedLidarOverride != nil {
		timedLidar = testTimedLidarOverride
	}
	if testTimedIMUOverride != nil {
		timedIMU = testTimedIMUOverride
	}
	if testTimedOdometerOverride != nil {
		timedOdometer = testTimedOdometerOverride
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	opts := svcConfig.ToBuilderOptions()
	opts.UseIMUData = opts.UseIMUData && timedIMU != nil
	builder := localtrajectory.New(logger, opts)
	queue := builderqueue.New(builder)

	cartoSvc := &CartographerService{
		Named:         c.ResourceName().AsNamed(),
		lidar:         timedLidar,
		imu:           timedIMU,
		odometer:      timedOdometer,
		queue:         queue,
		queueTimeout:  queueTimeout,
		cancelFunc:    cancelFunc,
		logger:        logger,
		mapTimestamp:  time.Now().UTC(),
		dataDirectory: svcConfig.DataDirectory,
	}

	defer func() {
		if err != nil {
			logger.Errorw("New() hit error, closing...", "error", err)
			if closeErr := cartoSvc.Close(ctx); closeErr != nil {
				logger.Errorw("error closing out after error", "error", closeErr)
			}
		}
	}()

	if err = s.ValidateGetLidarData(
		cancelCtx, timedLidar,
		time.Duration(sensorValidationMaxTimeoutSec)*time.Second,
		time.Duration(sensorValidationIntervalSec)*time.Second,
		logger,
	); err != nil {
		err = errors.Wrap(err, "failed to get data from lidar")
		return nil, err
	}

	if timedOdometer != nil {
		if err = s.ValidateGetOdometerData(
			cancelCtx, timedOdometer,
			time.Duration(sensorValidationMaxTimeoutSec)*time.Second,
			time.Duration(sensorValidationIntervalSec)*time.Second,
			logger,
		); err != nil {
			err = errors.Wrap(err, "failed to get data from odometer")
			return nil, err
		}
	}

	queue.Start(cancelCtx, &cartoSvc.workers)
	startSensorProcesses(cancelCtx, cartoSvc)

	return cartoSvc, nil
}

func startSensorProcesses(ctx context.Context, cartoSvc *CartographerService) {
	spConfig := &sensorprocess.Config{
		Queue:         cartoSvc.queue,
		Lidar:         cartoSvc.lidar,
		IMU:           cartoSvc.imu,
		Odometer:      cartoSvc.odometer,
		Timeout:       cartoSvc.queueTimeout,
		Logger:        cartoSvc.logger,
		DataDirectory: cartoSvc.dataDirectory,
	}

	cartoSvc.workers.Add(1)
	go func() {
		defer cartoSvc.workers.Done()
		spConfig.StartLidar(ctx)
		cartoSvc.jobDone.Store(true)
	}()

	if spConfig.IMU != nil {
		cartoSvc.workers.Add(1)
		go func() {
			defer cartoSvc.workers.Done()
			spConfig.StartIMU(ctx)
		}()
	}

	if spConfig.Odometer != nil {
		cartoSvc.workers.Add(1)
		go func() {
			defer cartoSvc.workers.Done()
			spConfig.StartOdometer(ctx)
		}()
	}
}

// CartographerService is the structure of the local trajectory builder slam service.
type CartographerService struct {
	resource.Named
	resource.AlwaysRebuild
	mu     sync.Mutex
	closed bool

	lidar    s.TimedLidar
	imu      s.TimedIMUSensor
	odometer s.TimedOdometerSensor

	queue        *builderqueue.Queue
	queueTimeout time.Duration

	cancelFunc func()
	logger     logging.Logger
	workers    sync.WaitGroup

	mapTimestamp  time.Time
	jobDone       atomic.Bool
	dataDirectory string
}

// Position forwards the request for positional data to the local trajectory builder. Once a
// response is received, it is unpacked into a Pose and a component reference string.
func (cartoSvc *CartographerService) Position(ctx context.Context) (spatialmath.Pose, string, error) {
	ctx, span := trace.StartSpan(ctx, "viamcartographer::CartographerService::Position")
	defer span.End()
	if cartoSvc.closed {
		cartoSvc.logger.Warn("Position called after closed")
		return nil, "", ErrClosed
	}

	estimate, err := cartoSvc.queue.PoseEstimate(ctx, cartoSvc.queueTimeout)
	if err != nil {
		return nil, "", err
	}

	pose := spatialmath.NewPose(estimate.Pose.Translation, &spatialmath.Quaternion{
		Real: estimate.Pose.Rotation.Real,
		Imag: estimate.Pose.Rotation.Imag,
		Jmag: estimate.Pose.Rotation.Jmag,
		Kmag: estimate.Pose.Rotation.Kmag,
	})
	return pose, cartoSvc.lidar.Name(), nil
}

// PointCloudMap returns a callback function which streams the current occupied-cell point cloud,
// in PCD chunks.
func (cartoSvc *CartographerService) PointCloudMap(ctx context.Context) (func() ([]byte, error), error) {
	ctx, span := trace.StartSpan(ctx, "viamcartographer::CartographerService::PointCloudMap")
	defer span.End()
	if cartoSvc.closed {
		cartoSvc.logger.Warn("PointCloudMap called after closed")
		return nil, ErrClosed
	}

	points, err := cartoSvc.queue.OccupiedMapPoints(ctx, cartoSvc.queueTimeout, submap.DefaultOccupiedThreshold)
	if err != nil {
		return nil, err
	}

	pc := pointcloud.NewWithPrealloc(len(points))
	for _, p := range points {
		if err := pc.Set(p, pointcloud.NewBasicData()); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := pointcloud.ToPCD(pc, buf, pointcloud.PCDBinary); err != nil {
		return nil, err
	}
	return toChunkedFunc(buf.Bytes()), nil
}

// InternalState returns a callback function which streams the current internal state of the
// trajectory builder: the active submaps' grid cells and their occupancy probabilities, as JSON.
func (cartoSvc *CartographerService) InternalState(ctx context.Context) (func() ([]byte, error), error) {
	ctx, span := trace.StartSpan(ctx, "viamcartographer::CartographerService::InternalState")
	defer span.End()
	if cartoSvc.closed {
		cartoSvc.logger.Warn("InternalState called after closed")
		return nil, ErrClosed
	}

	points, err := cartoSvc.queue.OccupiedMapPoints(ctx, cartoSvc.queueTimeout, submap.DefaultOccupiedThreshold)
	if err != nil {
		return nil, err
	}

	b, err := internalStateJSON(points)
	if err != nil {
		return nil, err
	}
	return toChunkedFunc(b), nil
}

// internalStateCell is the wire shape of a single occupied cell in the
// internal-state dump.
type internalStateCell struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// internalStateJSON renders the occupied cells of the active submap pair as
// the JSON body returned by InternalState.
func internalStateJSON(points []r3.Vector) ([]byte, error) {
	cells := make([]internalStateCell, len(points))
	for i, p := range points {
		cells[i] = internalStateCell{X: p.X, Y: p.Y}
	}
	return json.Marshal(struct {
		OccupiedCells []internalStateCell `json:"occupied_cells"`
	}{OccupiedCells: cells})
}

func toChunkedFunc(b []byte) func() ([]byte, error) {
	chunk := make([]byte, chunkSizeBytes)
	reader := bytes.NewReader(b)

	return func() ([]byte, error) {
		bytesRead, err := reader.Read(chunk)
		if err != nil {
			return nil, err
		}
		return chunk[:bytesRead], nil
	}
}

// LatestMapInfo returns a new timestamp every time it is called, since this service always runs
// in mapping mode.
func (cartoSvc *CartographerService) LatestMapInfo(ctx context.Context) (time.Time, error) {
	_, span := trace.StartSpan(ctx, "viamcartographer::CartographerService::LatestMapInfo")
	defer span.End()
	if cartoSvc.closed {
		cartoSvc.logger.Warn("LatestMapInfo called after closed")
		return time.Time{}, ErrClosed
	}

	cartoSvc.mapTimestamp = time.Now().UTC()
	return cartoSvc.mapTimestamp, nil
}

// DoCommand receives arbitrary commands.
func (cartoSvc *CartographerService) DoCommand(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	if cartoSvc.closed {
		cartoSvc.logger.Warn("DoCommand called after closed")
		return nil, ErrClosed
	}

	if _, ok := req["job_done"]; ok {
		return map[string]interface{}{"job_done": cartoSvc.jobDone.Load()}, nil
	}

	return nil, viamgrpc.UnimplementedError
}

// Close stops the sensor processes and the builder queue.
func (cartoSvc *CartographerService) Close(ctx context.Context) error {
	cartoSvc.mu.Lock()
	defer cartoSvc.mu.Unlock()

	cartoSvc.logger.Info("Closing local trajectory builder")
	if cartoSvc.closed {
		cartoSvc.logger.Warn("Close() called multiple times")
		return nil
	}

	cartoSvc.cancelFunc()
	cartoSvc.workers.Wait()
	cartoSvc.closed = true

	cartoSvc.logger.Info("Closing complete")
	return nil
}
