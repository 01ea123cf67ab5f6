package sensorprocess

import (
	"context"
	"math"
	"time"

	"github.com/viam-modules/local-trajectory-builder/dataprocess"
)

// StartLidar polls the lidar for the next scan and adds it to the builder queue.
// Stops when the context is Done.
func (config *Config) StartLidar(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			config.addLidarReading(ctx)
		}
	}
}

// addLidarReading adds the next lidar scan to the builder queue and sleeps the remainder
// of the lidar's sampling interval.
func (config *Config) addLidarReading(ctx context.Context) {
	startTime := time.Now().UTC()

	reading, err := config.Lidar.TimedLidarReading(ctx)
	if err != nil {
		config.Logger.Warn(err)
		return
	}

	if config.DataDirectory != "" {
		filename := config.dataFilename(config.Lidar.Name(), ".pcd", reading.ReadingTime)
		if err := dataprocess.WriteRangeDataToFile(reading.Reading, filename); err != nil {
			config.Logger.Warnw("failed to save lidar reading to disk", "error", err)
		}
	}

	if _, err := config.Queue.AddHorizontalRange(ctx, config.Timeout, reading.ReadingTime, reading.Reading); err != nil {
		config.Logger.Warnw("failed to add lidar reading to local trajectory builder", "error", err)
	} else {
		config.Logger.Debugf("%v \t | LIDAR | Success \t \t | %v \n", reading.ReadingTime, reading.ReadingTime.Unix())
	}

	if !reading.IsReplaySensor {
		timeElapsedMs := int(time.Since(startTime).Milliseconds())
		timeToSleep := int(math.Max(0, float64(1000/config.Lidar.DataFrequencyHz()-timeElapsedMs)))
		time.Sleep(time.Duration(timeToSleep) * time.Millisecond)
	}
}
