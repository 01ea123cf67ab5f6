package sensorprocess

import (
	"context"
	"math"
	"time"

	"github.com/viam-modules/local-trajectory-builder/dataprocess"
)

// StartOdometer polls the odometer for the next reading and adds it to the builder queue.
// Stops when the context is Done.
func (config *Config) StartOdometer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			config.addOdometerReading(ctx)
		}
	}
}

// addOdometerReading adds the next odometer reading to the builder queue and sleeps the
// remainder of the odometer's sampling interval.
func (config *Config) addOdometerReading(ctx context.Context) {
	startTime := time.Now().UTC()

	reading, err := config.Odometer.TimedOdometerSensorReading(ctx)
	if err != nil {
		config.Logger.Warn(err)
		return
	}

	if config.DataDirectory != "" {
		filename := config.dataFilename(config.Odometer.Name(), ".json", reading.ReadingTime)
		if err := dataprocess.WriteOdometerJSONToFile(reading.Position, reading.Orientation, filename); err != nil {
			config.Logger.Warnw("failed to save odometer reading to disk", "error", err)
		}
	}

	if err := config.Queue.AddOdometer(ctx, config.Timeout, reading.ReadingTime, reading.Pose()); err != nil {
		config.Logger.Warnw("failed to add odometer reading to local trajectory builder", "error", err)
	} else {
		config.Logger.Debugf("%v \t | ODOM  | Success \t \t | %v \n", reading.ReadingTime, reading.ReadingTime.Unix())
	}

	if !reading.Replay {
		timeElapsedMs := int(time.Since(startTime).Milliseconds())
		timeToSleep := int(math.Max(0, float64(1000/config.Odometer.DataFrequencyHz()-timeElapsedMs)))
		time.Sleep(time.Duration(timeToSleep) * time.Millisecond)
	}
}
