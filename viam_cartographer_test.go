// Package viamcartographer_test exercises construction and the slam.Service
// methods of the local trajectory builder against injected sensors, with no
// dependency on any particular robot or hardware.
package viamcartographer_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/slam"
	"go.viam.com/test"

	viamcartographer "github.com/viam-modules/local-trajectory-builder"
	vcConfig "github.com/viam-modules/local-trajectory-builder/config"
	s "github.com/viam-modules/local-trajectory-builder/sensors"
)

const testQueueTimeout = time.Second

func boolPtr(b bool) *bool { return &b }

func testResourceConfig(attrCfg *vcConfig.Config) resource.Config {
	c := resource.Config{
		Name:                "test",
		API:                 slam.API,
		Model:               viamcartographer.Model,
		ConvertedAttributes: attrCfg,
	}
	return c
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("fails when the lidar is not found in dependencies", func(t *testing.T) {
		attrCfg := &vcConfig.Config{
			Sensors:       []string{string(s.GibberishLidar)},
			ConfigParams:  map[string]string{"mode": "2d"},
			DataDirectory: t.TempDir(),
			UseLiveData:   boolPtr(true),
		}
		deps := s.SetupDeps(s.GibberishLidar, s.NoMovementSensor)

		_, err := viamcartographer.New(
			context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("fails when the movement sensor supports neither IMU nor odometer", func(t *testing.T) {
		attrCfg := &vcConfig.Config{
			Sensors:       []string{string(s.GoodLidar), string(s.MovementSensorNotIMUNotOdometer)},
			ConfigParams:  map[string]string{"mode": "2d"},
			DataDirectory: t.TempDir(),
			UseLiveData:   boolPtr(true),
		}
		deps := s.SetupDeps(s.GoodLidar, s.MovementSensorNotIMUNotOdometer)

		_, err := viamcartographer.New(
			context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
		test.That(t, err, test.ShouldBeError,
			errors.Errorf("movement sensor %q supports neither IMU nor odometer readings",
				string(s.MovementSensorNotIMUNotOdometer)))
	})

	t.Run("succeeds with just a lidar", func(t *testing.T) {
		attrCfg := &vcConfig.Config{
			Sensors:       []string{string(s.GoodLidar)},
			ConfigParams:  map[string]string{"mode": "2d"},
			DataDirectory: t.TempDir(),
			UseLiveData:   boolPtr(true),
		}
		deps := s.SetupDeps(s.GoodLidar, s.NoMovementSensor)

		svc, err := viamcartographer.New(
			context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	})

	t.Run("succeeds with a lidar and a movement sensor supporting both IMU and odometer", func(t *testing.T) {
		attrCfg := &vcConfig.Config{
			Sensors:       []string{string(s.GoodLidar), string(s.MovementSensorBothIMUAndOdometer)},
			ConfigParams:  map[string]string{"mode": "2d"},
			DataDirectory: t.TempDir(),
			UseLiveData:   boolPtr(true),
		}
		deps := s.SetupDeps(s.GoodLidar, s.MovementSensorBothIMUAndOdometer)

		svc, err := viamcartographer.New(
			context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	})
}

func TestPosition(t *testing.T) {
	logger := logging.NewTestLogger(t)
	attrCfg := &vcConfig.Config{
		Sensors:       []string{string(s.GoodLidar)},
		ConfigParams:  map[string]string{"mode": "2d"},
		DataDirectory: t.TempDir(),
		UseLiveData:   boolPtr(true),
	}
	deps := s.SetupDeps(s.GoodLidar, s.NoMovementSensor)

	svc, err := viamcartographer.New(
		context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	}()

	pose, componentRef, err := svc.Position(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldNotBeNil)
	test.That(t, componentRef, test.ShouldEqual, string(s.GoodLidar))
}

func TestPointCloudMapAndInternalState(t *testing.T) {
	logger := logging.NewTestLogger(t)
	attrCfg := &vcConfig.Config{
		Sensors:       []string{string(s.GoodLidar)},
		ConfigParams:  map[string]string{"mode": "2d"},
		DataDirectory: t.TempDir(),
		UseLiveData:   boolPtr(true),
	}
	deps := s.SetupDeps(s.GoodLidar, s.NoMovementSensor)

	svc, err := viamcartographer.New(
		context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	}()

	pcdFunc, err := svc.PointCloudMap(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pcdFunc, test.ShouldNotBeNil)

	internalStateFunc, err := svc.InternalState(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, internalStateFunc, test.ShouldNotBeNil)
}

func TestClose(t *testing.T) {
	logger := logging.NewTestLogger(t)
	attrCfg := &vcConfig.Config{
		Sensors:       []string{string(s.GoodLidar)},
		ConfigParams:  map[string]string{"mode": "2d"},
		DataDirectory: t.TempDir(),
		UseLiveData:   boolPtr(true),
	}
	deps := s.SetupDeps(s.GoodLidar, s.NoMovementSensor)

	svc, err := viamcartographer.New(
		context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	// closing twice must not error or hang
	test.That(t, svc.Close(context.Background()), test.ShouldBeNil)

	_, _, err = svc.Position(context.Background())
	test.That(t, err, test.ShouldBeError, viamcartographer.ErrClosed)
}

func TestDoCommand(t *testing.T) {
	logger := logging.NewTestLogger(t)
	attrCfg := &vcConfig.Config{
		Sensors:       []string{string(s.GoodLidar)},
		ConfigParams:  map[string]string{"mode": "2d"},
		DataDirectory: t.TempDir(),
		UseLiveData:   boolPtr(true),
	}
	deps := s.SetupDeps(s.GoodLidar, s.NoMovementSensor)

	svc, err := viamcartographer.New(
		context.Background(), deps, testResourceConfig(attrCfg), logger, testQueueTimeout, nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	}()

	resp, err := svc.DoCommand(context.Background(), map[string]interface{}{"job_done": true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["job_done"], test.ShouldNotBeNil)

	_, err = svc.DoCommand(context.Background(), map[string]interface{}{"unsupported": true})
	test.That(t, err, test.ShouldNotBeNil)
}
