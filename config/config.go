// Package config implements functions to assist with attribute evaluation in the SLAM service.
package config

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-modules/local-trajectory-builder/localtrajectory"
	"github.com/viam-modules/local-trajectory-builder/motionfilter"
	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/scanmatching"
	"github.com/viam-modules/local-trajectory-builder/submap"
)

// newError returns an error specific to a failure in the SLAM config.
func newError(configError string) error {
	return errors.Errorf("SLAM Service configuration error: %s", configError)
}

// DetermineDeleteProcessedData will determine the value of the deleteProcessData attribute
// based on the useLiveData and deleteData input parameters.
func DetermineDeleteProcessedData(logger golog.Logger, deleteData *bool, useLiveData bool) bool {
	var deleteProcessedData bool
	if deleteData == nil {
		deleteProcessedData = useLiveData
	} else {
		deleteProcessedData = *deleteData
		if !useLiveData && deleteProcessedData {
			logger.Debug("a value of true cannot be given for delete_processed_data when in offline mode, setting to false")
			deleteProcessedData = false
		}
	}
	return deleteProcessedData
}

// DetermineUseLiveData will determine the value of the useLiveData attribute
// based on the liveData input parameter and sensor list.
func DetermineUseLiveData(logger golog.Logger, liveData *bool, sensors []string) (bool, error) {
	if liveData == nil {
		return false, newError("use_live_data is a required input parameter")
	}
	useLiveData := *liveData
	if useLiveData && len(sensors) == 0 {
		return false, newError("sensors field cannot be empty when use_live_data is set to true")
	}
	return useLiveData, nil
}

// AdaptiveVoxelFilterConfig configures the matcher-input voxel downsampler.
type AdaptiveVoxelFilterConfig struct {
	MaxLength    *float64 `json:"max_length"`
	MinNumPoints *int     `json:"min_num_points"`
}

// CorrelativeScanMatcherConfig configures the exhaustive correlative search stage.
type CorrelativeScanMatcherConfig struct {
	LinearSearchWindow   *float64 `json:"linear_search_window"`
	AngularSearchWindow  *float64 `json:"angular_search_window"`
	AngularStep          *float64 `json:"angular_step"`
	TranslationDeltaCost *float64 `json:"translation_delta_cost"`
	RotationDeltaCost    *float64 `json:"rotation_delta_cost"`
}

// CeresScanMatcherConfig configures the nonlinear refinement stage.
type CeresScanMatcherConfig struct {
	OccupancyWeight   *float64 `json:"occupancy_weight"`
	TranslationWeight *float64 `json:"translation_weight"`
	RotationWeight    *float64 `json:"rotation_weight"`
	MaxIterations     *int     `json:"max_iterations"`
}

// MotionFilterConfig configures the insertion-gating deduplicator.
type MotionFilterConfig struct {
	MaxTimeSeconds   *float64 `json:"max_time_seconds"`
	MaxDistanceMeter *float64 `json:"max_distance_meters"`
	MaxAngleRadians  *float64 `json:"max_angle_radians"`
}

// SubmapsConfig configures the probability grid and active-submap rotation.
type SubmapsConfig struct {
	Resolution      *float64 `json:"resolution"`
	NumRangeData    *int     `json:"num_range_data"`
	HitProbability  *float64 `json:"hit_probability"`
	MissProbability *float64 `json:"miss_probability"`
}

// Config describes how to configure the SLAM service.
type Config struct {
	Sensors                 []string          `json:"sensors"`
	ConfigParams            map[string]string `json:"config_params"`
	DataDirectory           string            `json:"data_dir"`
	UseLiveData             *bool             `json:"use_live_data"`
	DataRateMsec            int               `json:"data_rate_msec"`
	MapRateSec              *int              `json:"map_rate_sec"`
	Port                    string            `json:"port"`
	DeleteProcessedData     *bool             `json:"delete_processed_data"`
	ModularizationV2Enabled *bool             `json:"modularization_v2_enabled"`

	// LidarDataFrequencyHz and MovementSensorDataFrequencyHz set the poll rate
	// used for Sensors[0] (the lidar) and Sensors[1] (the optional movement
	// sensor), respectively, whatever use_live_data is set to.
	LidarDataFrequencyHz           *int `json:"lidar_data_frequency_hz"`
	MovementSensorDataFrequencyHz  *int `json:"movement_sensor_data_frequency_hz"`

	UseIMUData                       *bool                         `json:"use_imu_data"`
	IMUGravityTimeConstant           *float64                      `json:"imu_gravity_time_constant"`
	MinRange                         *float64                      `json:"min_range"`
	MaxRange                         *float64                      `json:"max_range"`
	MissingDataRayLength             *float64                      `json:"missing_data_ray_length"`
	ScansPerAccumulation             *int                           `json:"scans_per_accumulation"`
	VoxelFilterSize                  *float64                      `json:"voxel_filter_size"`
	AdaptiveVoxelFilterOptions       *AdaptiveVoxelFilterConfig    `json:"adaptive_voxel_filter_options"`
	MinZ                             *float64                      `json:"min_z"`
	MaxZ                             *float64                      `json:"max_z"`
	UseOnlineCorrelativeScanMatching *bool                          `json:"use_online_correlative_scan_matching"`
	CorrelativeScanMatcherOptions    *CorrelativeScanMatcherConfig `json:"real_time_correlative_scan_matcher_options"`
	CeresScanMatcherOptions          *CeresScanMatcherConfig       `json:"ceres_scan_matcher_options"`
	MotionFilterOptions              *MotionFilterConfig           `json:"motion_filter_options"`
	SubmapsOptions                   *SubmapsConfig                `json:"submaps_options"`
	NumOdometryStates                *int                           `json:"num_odometry_states"`
}

// Validate creates the list of implicit dependencies.
func (config *Config) Validate(path string) ([]string, error) {
	// get feature flag provided in config
	modularizationV2Enabled := false
	if config.ModularizationV2Enabled != nil {
		modularizationV2Enabled = *config.ModularizationV2Enabled
	}

	// require at least one sensor for full mod v2
	if modularizationV2Enabled {
		if len(config.Sensors) < 1 {
			return nil, utils.NewConfigValidationFieldRequiredError(path, "at least one sensor must be configured")
		}
	}

	if config.ConfigParams["mode"] == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "config_params[mode]")
	}

	if config.DataDirectory == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "data_dir")
	}

	// do not validate use_live_data if mod v2 is enabled
	if config.UseLiveData == nil && !modularizationV2Enabled {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "use_live_data")
	}

	if config.DataRateMsec < 0 {
		return nil, errors.New("cannot specify data_rate_msec less than zero")
	}

	if config.MapRateSec != nil && *config.MapRateSec < 0 {
		return nil, errors.New("cannot specify map_rate_sec less than zero")
	}

	if config.MinRange != nil && config.MaxRange != nil && *config.MinRange > *config.MaxRange {
		return nil, errors.New("min_range cannot be greater than max_range")
	}

	if config.ScansPerAccumulation != nil && *config.ScansPerAccumulation < 1 {
		return nil, errors.New("scans_per_accumulation must be at least 1")
	}

	deps := config.Sensors

	return deps, nil
}

// GetOptionalParameters sets any unset optional config parameters to the values passed to this function,
// and returns them.
func GetOptionalParameters(config *Config, defaultPort string,
	defaultDataRateMsec, defaultMapRateSec int, logger golog.Logger,
) (string, int, int, bool, bool, bool, error) {
	modularizationV2Enabled := false
	if config.ModularizationV2Enabled == nil {
		logger.Debug("no modularization_v2_enabled given, continuing with modularization v1")
	} else {
		modularizationV2Enabled = *config.ModularizationV2Enabled
	}

	// do not validate port if mod v2 is enabled
	port := config.Port
	if config.Port == "" && !modularizationV2Enabled {
		port = defaultPort
	}

	dataRateMsec := config.DataRateMsec
	if config.DataRateMsec == 0 {
		dataRateMsec = defaultDataRateMsec
		logger.Debugf("no data_rate_msec given, setting to default value of %d", defaultDataRateMsec)
	}

	mapRateSec := 0
	if config.MapRateSec == nil {
		logger.Debugf("no map_rate_sec given, setting to default value of %d", defaultMapRateSec)
		mapRateSec = defaultMapRateSec
	} else {
		mapRateSec = *config.MapRateSec
	}
	if mapRateSec == 0 {
		logger.Info("setting slam system to localization mode")
	}

	useLiveData, err := DetermineUseLiveData(logger, config.UseLiveData, config.Sensors)
	if err != nil {
		return "", 0, 0, false, false, false, err
	}

	// only validate deleteProcessedData if mod v2 is not enabled
	deleteProcessedData := false
	if !modularizationV2Enabled {
		deleteProcessedData = DetermineDeleteProcessedData(logger, config.DeleteProcessedData, useLiveData)
	}

	return port, dataRateMsec, mapRateSec, useLiveData, deleteProcessedData, modularizationV2Enabled, nil
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ToBuilderOptions maps the config's algorithm-facing fields onto
// localtrajectory.Options, starting from the builder's own defaults and
// overriding whatever this config specifies.
func (config *Config) ToBuilderOptions() localtrajectory.Options {
	opts := localtrajectory.DefaultOptions()

	opts.UseIMUData = boolOr(config.UseIMUData, opts.UseIMUData)
	opts.IMUGravityTimeConstant = floatOr(config.IMUGravityTimeConstant, opts.IMUGravityTimeConstant)
	opts.MinRange = floatOr(config.MinRange, opts.MinRange)
	opts.MaxRange = floatOr(config.MaxRange, opts.MaxRange)
	opts.MissingDataRayLength = floatOr(config.MissingDataRayLength, opts.MissingDataRayLength)
	opts.ScansPerAccumulation = intOr(config.ScansPerAccumulation, opts.ScansPerAccumulation)
	opts.VoxelFilterSize = floatOr(config.VoxelFilterSize, opts.VoxelFilterSize)
	opts.MinZ = floatOr(config.MinZ, opts.MinZ)
	opts.MaxZ = floatOr(config.MaxZ, opts.MaxZ)
	opts.NumOdometryStates = intOr(config.NumOdometryStates, opts.NumOdometryStates)

	if v := config.AdaptiveVoxelFilterOptions; v != nil {
		opts.AdaptiveVoxelFilter = rangedata.AdaptiveVoxelFilterOptions{
			MaxLength:    floatOr(v.MaxLength, opts.AdaptiveVoxelFilter.MaxLength),
			MinNumPoints: intOr(v.MinNumPoints, opts.AdaptiveVoxelFilter.MinNumPoints),
		}
	}

	opts.ScanMatching.UseOnlineCorrelativeScanMatching = boolOr(
		config.UseOnlineCorrelativeScanMatching, opts.ScanMatching.UseOnlineCorrelativeScanMatching)

	if v := config.CorrelativeScanMatcherOptions; v != nil {
		opts.ScanMatching.Correlative = scanmatching.CorrelativeOptions{
			LinearSearchWindow:   floatOr(v.LinearSearchWindow, opts.ScanMatching.Correlative.LinearSearchWindow),
			AngularSearchWindow:  floatOr(v.AngularSearchWindow, opts.ScanMatching.Correlative.AngularSearchWindow),
			AngularStep:          floatOr(v.AngularStep, opts.ScanMatching.Correlative.AngularStep),
			TranslationDeltaCost: floatOr(v.TranslationDeltaCost, opts.ScanMatching.Correlative.TranslationDeltaCost),
			RotationDeltaCost:    floatOr(v.RotationDeltaCost, opts.ScanMatching.Correlative.RotationDeltaCost),
		}
	}

	if v := config.CeresScanMatcherOptions; v != nil {
		opts.ScanMatching.Ceres = scanmatching.CeresOptions{
			OccupancyWeight:   floatOr(v.OccupancyWeight, opts.ScanMatching.Ceres.OccupancyWeight),
			TranslationWeight: floatOr(v.TranslationWeight, opts.ScanMatching.Ceres.TranslationWeight),
			RotationWeight:    floatOr(v.RotationWeight, opts.ScanMatching.Ceres.RotationWeight),
			MaxIterations:     intOr(v.MaxIterations, opts.ScanMatching.Ceres.MaxIterations),
		}
	}

	if v := config.MotionFilterOptions; v != nil {
		opts.MotionFilter = motionfilter.Options{
			MaxTime:     time.Duration(floatOr(v.MaxTimeSeconds, opts.MotionFilter.MaxTime.Seconds()) * float64(time.Second)),
			MaxDistance: floatOr(v.MaxDistanceMeter, opts.MotionFilter.MaxDistance),
			MaxAngle:    floatOr(v.MaxAngleRadians, opts.MotionFilter.MaxAngle),
		}
	}

	if v := config.SubmapsOptions; v != nil {
		grid := opts.Submaps.GridOptions
		grid.Resolution = floatOr(v.Resolution, grid.Resolution)
		grid.HitProbability = floatOr(v.HitProbability, grid.HitProbability)
		grid.MissProbability = floatOr(v.MissProbability, grid.MissProbability)
		opts.Submaps = submap.Options{
			GridOptions:  grid,
			NumRangeData: intOr(v.NumRangeData, opts.Submaps.NumRangeData),
		}
	}

	return opts
}
