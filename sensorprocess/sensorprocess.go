// Package sensorprocess contains the logic to poll lidar, IMU, and odometer sensors and feed
// their readings into the local trajectory builder through a builderqueue.Queue.
package sensorprocess

import (
	"path/filepath"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/local-trajectory-builder/builderqueue"
	"github.com/viam-modules/local-trajectory-builder/dataprocess"
	s "github.com/viam-modules/local-trajectory-builder/sensors"
)

// Config holds the sensors and queue needed to feed a local trajectory builder.
type Config struct {
	Queue *builderqueue.Queue

	Lidar    s.TimedLidar
	IMU      s.TimedIMUSensor
	Odometer s.TimedOdometerSensor

	Timeout time.Duration
	Logger  logging.Logger

	// DataDirectory, if non-empty, causes every reading to also be persisted
	// to disk under DataDirectory/data before it is added to the queue, for
	// later offline replay. Persistence failures are logged and otherwise
	// ignored; they never block feeding the builder.
	DataDirectory string
}

// dataFilename builds the path a sensor reading is persisted to, keyed by sensor name and
// reading time, matching CreateTimestampFilename's layout of DataDirectory/data/<name>_data_<ts>.
func (config *Config) dataFilename(sensorName, fileType string, readingTime time.Time) string {
	return dataprocess.CreateTimestampFilename(filepath.Join(config.DataDirectory, "data"), sensorName, fileType, readingTime)
}
