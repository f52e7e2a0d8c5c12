// Package config implements functions to assist with attribute evaluation in the rgbd slam service.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
)

// Defaults applied by GetOptionalParameters.
const (
	DefaultEngine                        = "fake"
	DefaultRobotBaseFrame                = "base_link"
	DefaultGlobalFrame                   = "map"
	DefaultOdomFrame                     = "odom"
	DefaultRobotX                        = 1.0
	DefaultRobotY                        = 1.0
	DefaultSyncQueueSize                 = 10
	DefaultSyncToleranceMsec             = 50
	DefaultMapDataRateMsec               = 1000
	DefaultTraversabilityRateMsec        = 800
	DefaultCameraDataFrequencyHz         = 10
	DefaultMovementSensorDataFrequencyHz = 100
	DefaultLidarDataFrequencyHz          = 10
	DefaultEngineTimeoutMsec             = 5000
)

// newError returns an error specific to a failure in the SLAM config.
func newError(configError string) error {
	return errors.Errorf("SLAM Service configuration error: %s", configError)
}

// Config describes how to configure the rgbd slam service.
type Config struct {
	RGBCamera      string `json:"rgb_camera"`
	DepthCamera    string `json:"depth_camera"`
	MovementSensor string `json:"movement_sensor,omitempty"`
	Lidar          string `json:"lidar,omitempty"`
	Engine         string `json:"engine,omitempty"`

	Visualization    *bool `json:"visualization,omitempty"`
	RosVisualization bool  `json:"ros_visualization,omitempty"`

	RobotBaseFrame string   `json:"robot_base_frame,omitempty"`
	GlobalFrame    string   `json:"global_frame,omitempty"`
	OdomFrame      string   `json:"odom_frame,omitempty"`
	RobotX         *float64 `json:"robot_x,omitempty"`
	RobotY         *float64 `json:"robot_y,omitempty"`

	EnableTraversability bool `json:"enable_traversability,omitempty"`

	SyncQueueSize          int `json:"sync_queue_size,omitempty"`
	SyncToleranceMsec      int `json:"sync_tolerance_msec,omitempty"`
	MapDataRateMsec        int `json:"map_data_rate_msec,omitempty"`
	TraversabilityRateMsec int `json:"traversability_rate_msec,omitempty"`

	CameraDataFrequencyHz         int `json:"camera_data_frequency_hz,omitempty"`
	MovementSensorDataFrequencyHz int `json:"movement_sensor_data_frequency_hz,omitempty"`
	LidarDataFrequencyHz          int `json:"lidar_data_frequency_hz,omitempty"`

	EngineTimeoutMsec int               `json:"engine_timeout_msec,omitempty"`
	DataDirectory     string            `json:"data_dir,omitempty"`
	ConfigParams      map[string]string `json:"config_params,omitempty"`
}

// OptionalConfigParams holds every optional parameter with its default applied.
type OptionalConfigParams struct {
	Engine                        string
	Visualization                 bool
	RosVisualization              bool
	RobotBaseFrame                string
	GlobalFrame                   string
	OdomFrame                     string
	RobotX                        float64
	RobotY                        float64
	EnableTraversability          bool
	SyncQueueSize                 int
	SyncTolerance                 time.Duration
	MapDataRate                   time.Duration
	TraversabilityRate            time.Duration
	CameraDataFrequencyHz         int
	MovementSensorDataFrequencyHz int
	LidarDataFrequencyHz          int
	EngineTimeout                 time.Duration
	DataDirectory                 string
}

// Validate creates the list of implicit dependencies.
func (config *Config) Validate(path string) ([]string, error) {
	if config.RGBCamera == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "rgb_camera")
	}
	if config.DepthCamera == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "depth_camera")
	}

	for name, value := range map[string]int{
		"sync_queue_size":                   config.SyncQueueSize,
		"sync_tolerance_msec":               config.SyncToleranceMsec,
		"map_data_rate_msec":                config.MapDataRateMsec,
		"traversability_rate_msec":          config.TraversabilityRateMsec,
		"camera_data_frequency_hz":          config.CameraDataFrequencyHz,
		"movement_sensor_data_frequency_hz": config.MovementSensorDataFrequencyHz,
		"lidar_data_frequency_hz":           config.LidarDataFrequencyHz,
		"engine_timeout_msec":               config.EngineTimeoutMsec,
	} {
		if value < 0 {
			return nil, newError(fmt.Sprintf("cannot specify %s less than zero", name))
		}
	}

	deps := []string{config.RGBCamera, config.DepthCamera}
	if config.MovementSensor != "" {
		deps = append(deps, config.MovementSensor)
	}
	if config.Lidar != "" {
		deps = append(deps, config.Lidar)
	}
	return deps, nil
}

// GetOptionalParameters sets any unset optional config parameters to their defaults and returns
// them.
func GetOptionalParameters(config *Config, logger logging.Logger) OptionalConfigParams {
	optionalConfigParams := OptionalConfigParams{
		Engine:                        stringOrDefault(config.Engine, DefaultEngine),
		Visualization:                 true,
		RosVisualization:              config.RosVisualization,
		RobotBaseFrame:                stringOrDefault(config.RobotBaseFrame, DefaultRobotBaseFrame),
		GlobalFrame:                   stringOrDefault(config.GlobalFrame, DefaultGlobalFrame),
		OdomFrame:                     stringOrDefault(config.OdomFrame, DefaultOdomFrame),
		RobotX:                        DefaultRobotX,
		RobotY:                        DefaultRobotY,
		EnableTraversability:          config.EnableTraversability,
		SyncQueueSize:                 intOrDefault(config.SyncQueueSize, DefaultSyncQueueSize),
		SyncTolerance:                 msec(intOrDefault(config.SyncToleranceMsec, DefaultSyncToleranceMsec)),
		MapDataRate:                   msec(intOrDefault(config.MapDataRateMsec, DefaultMapDataRateMsec)),
		TraversabilityRate:            msec(intOrDefault(config.TraversabilityRateMsec, DefaultTraversabilityRateMsec)),
		CameraDataFrequencyHz:         intOrDefault(config.CameraDataFrequencyHz, DefaultCameraDataFrequencyHz),
		MovementSensorDataFrequencyHz: intOrDefault(config.MovementSensorDataFrequencyHz, DefaultMovementSensorDataFrequencyHz),
		LidarDataFrequencyHz:          intOrDefault(config.LidarDataFrequencyHz, DefaultLidarDataFrequencyHz),
		EngineTimeout:                 msec(intOrDefault(config.EngineTimeoutMsec, DefaultEngineTimeoutMsec)),
		DataDirectory:                 config.DataDirectory,
	}

	if config.Visualization != nil {
		optionalConfigParams.Visualization = *config.Visualization
	}
	if config.RobotX == nil {
		logger.Debugf("no robot_x given, setting to default value of %v", DefaultRobotX)
	} else {
		optionalConfigParams.RobotX = *config.RobotX
	}
	if config.RobotY == nil {
		logger.Debugf("no robot_y given, setting to default value of %v", DefaultRobotY)
	} else {
		optionalConfigParams.RobotY = *config.RobotY
	}
	if config.EnableTraversability && config.Lidar == "" {
		logger.Info("traversability enabled without a lidar, grids are built from map landmarks only")
	}
	if !config.EnableTraversability && config.Lidar != "" {
		logger.Warn("lidar configured but traversability disabled, lidar will not be read")
	}

	return optionalConfigParams
}

func stringOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func msec(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
