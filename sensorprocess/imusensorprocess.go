package sensorprocess

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/viam-modules/local-trajectory-builder/dataprocess"
)

// StartIMU polls the IMU for the next reading and adds it to the builder queue.
// Stops when the context is Done.
func (config *Config) StartIMU(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			config.addIMUReading(ctx)
		}
	}
}

// addIMUReading adds the next IMU reading to the builder queue and sleeps the remainder
// of the IMU's sampling interval.
func (config *Config) addIMUReading(ctx context.Context) {
	startTime := time.Now().UTC()

	reading, err := config.IMU.TimedIMUSensorReading(ctx)
	if err != nil {
		config.Logger.Warn(err)
		return
	}

	if config.DataDirectory != "" {
		filename := config.dataFilename(config.IMU.Name(), ".json", reading.ReadingTime)
		if err := dataprocess.WriteJSONToFile(reading.LinearAcceleration, reading.AngularVelocity, filename); err != nil {
			config.Logger.Warnw("failed to save IMU reading to disk", "error", err)
		}
	}

	angularVelocity := r3.Vector{X: reading.AngularVelocity.X, Y: reading.AngularVelocity.Y, Z: reading.AngularVelocity.Z}
	err = config.Queue.AddIMU(ctx, config.Timeout, reading.ReadingTime, reading.LinearAcceleration, angularVelocity, nil)
	if err != nil {
		config.Logger.Warnw("failed to add IMU reading to local trajectory builder", "error", err)
	} else {
		config.Logger.Debugf("%v \t |  IMU  | Success \t \t | %v \n", reading.ReadingTime, reading.ReadingTime.Unix())
	}

	if !reading.Replay {
		timeElapsedMs := int(time.Since(startTime).Milliseconds())
		timeToSleep := int(math.Max(0, float64(1000/config.IMU.DataFrequencyHz()-timeElapsedMs)))
		time.Sleep(time.Duration(timeToSleep) * time.Millisecond)
	}
}
