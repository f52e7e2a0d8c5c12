package config

import (
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
	"go.viam.com/test"
	"go.viam.com/utils"
)

const testCfgPath = "services.slam.attributes.fake"

func makeCfgService() resource.Config {
	model := resource.DefaultModelFamily.WithModel("test")
	cfgService := resource.Config{Name: "test", API: generic.API, Model: model}
	cfgService.Attributes = map[string]interface{}{
		"rgb_camera":   "rgb",
		"depth_camera": "depth",
	}
	return cfgService
}

func newConfig(conf resource.Config) (*Config, []string, error) {
	slamConf, err := resource.TransformAttributeMap[*Config](conf.Attributes)
	if err != nil {
		return &Config{}, nil, newError(err.Error())
	}

	deps, err := slamConf.Validate(testCfgPath)
	if err != nil {
		return &Config{}, nil, err
	}
	return slamConf, deps, nil
}

func TestValidate(t *testing.T) {
	t.Run("Simplest valid config", func(t *testing.T) {
		cfg, deps, err := newConfig(makeCfgService())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.RGBCamera, test.ShouldEqual, "rgb")
		test.That(t, deps, test.ShouldResemble, []string{"rgb", "depth"})
	})

	t.Run("Optional sensors are dependencies", func(t *testing.T) {
		cfgService := makeCfgService()
		cfgService.Attributes["movement_sensor"] = "imu"
		cfgService.Attributes["lidar"] = "velodyne"
		_, deps, err := newConfig(cfgService)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, deps, test.ShouldResemble, []string{"rgb", "depth", "imu", "velodyne"})
	})

	t.Run("Config without required fields", func(t *testing.T) {
		for _, requiredField := range []string{"rgb_camera", "depth_camera"} {
			cfgService := makeCfgService()
			delete(cfgService.Attributes, requiredField)
			_, _, err := newConfig(cfgService)
			test.That(t, err, test.ShouldBeError, utils.NewConfigValidationFieldRequiredError(testCfgPath, requiredField))
		}
	})

	t.Run("Config with negative values", func(t *testing.T) {
		for _, field := range []string{
			"sync_queue_size",
			"sync_tolerance_msec",
			"map_data_rate_msec",
			"traversability_rate_msec",
			"camera_data_frequency_hz",
			"movement_sensor_data_frequency_hz",
			"lidar_data_frequency_hz",
			"engine_timeout_msec",
		} {
			cfgService := makeCfgService()
			cfgService.Attributes[field] = -1
			_, _, err := newConfig(cfgService)
			test.That(t, err, test.ShouldBeError, newError("cannot specify "+field+" less than zero"))
		}
	})

	t.Run("Config with a mistyped field", func(t *testing.T) {
		cfgService := makeCfgService()
		cfgService.Attributes["robot_x"] = "one"
		_, _, err := newConfig(cfgService)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestGetOptionalParameters(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("Pass default parameters", func(t *testing.T) {
		cfg, _, err := newConfig(makeCfgService())
		test.That(t, err, test.ShouldBeNil)
		params := GetOptionalParameters(cfg, logger)
		test.That(t, params, test.ShouldResemble, OptionalConfigParams{
			Engine:                        "fake",
			Visualization:                 true,
			RosVisualization:              false,
			RobotBaseFrame:                "base_link",
			GlobalFrame:                   "map",
			OdomFrame:                     "odom",
			RobotX:                        1.0,
			RobotY:                        1.0,
			EnableTraversability:          false,
			SyncQueueSize:                 10,
			SyncTolerance:                 50 * time.Millisecond,
			MapDataRate:                   time.Second,
			TraversabilityRate:            800 * time.Millisecond,
			CameraDataFrequencyHz:         10,
			MovementSensorDataFrequencyHz: 100,
			LidarDataFrequencyHz:          10,
			EngineTimeout:                 5 * time.Second,
		})
	})

	t.Run("Return overrides", func(t *testing.T) {
		cfgService := makeCfgService()
		for k, v := range map[string]interface{}{
			"engine":                            "orbslam3",
			"visualization":                     false,
			"ros_visualization":                 true,
			"robot_base_frame":                  "base",
			"global_frame":                      "world",
			"odom_frame":                        "odometry",
			"robot_x":                           0.0,
			"robot_y":                           -2.5,
			"enable_traversability":             true,
			"sync_queue_size":                   5,
			"sync_tolerance_msec":               20,
			"map_data_rate_msec":                2000,
			"traversability_rate_msec":          400,
			"camera_data_frequency_hz":          30,
			"movement_sensor_data_frequency_hz": 200,
			"lidar_data_frequency_hz":           5,
			"engine_timeout_msec":               100,
			"data_dir":                          "/tmp/rgbd",
		} {
			cfgService.Attributes[k] = v
		}
		cfg, _, err := newConfig(cfgService)
		test.That(t, err, test.ShouldBeNil)
		params := GetOptionalParameters(cfg, logger)
		test.That(t, params, test.ShouldResemble, OptionalConfigParams{
			Engine:                        "orbslam3",
			Visualization:                 false,
			RosVisualization:              true,
			RobotBaseFrame:                "base",
			GlobalFrame:                   "world",
			OdomFrame:                     "odometry",
			RobotX:                        0.0,
			RobotY:                        -2.5,
			EnableTraversability:          true,
			SyncQueueSize:                 5,
			SyncTolerance:                 20 * time.Millisecond,
			MapDataRate:                   2 * time.Second,
			TraversabilityRate:            400 * time.Millisecond,
			CameraDataFrequencyHz:         30,
			MovementSensorDataFrequencyHz: 200,
			LidarDataFrequencyHz:          5,
			EngineTimeout:                 100 * time.Millisecond,
			DataDirectory:                 "/tmp/rgbd",
		})
	})

	t.Run("Explicit zero robot offsets are kept", func(t *testing.T) {
		zero := 0.0
		params := GetOptionalParameters(&Config{RobotX: &zero, RobotY: &zero}, logger)
		test.That(t, params.RobotX, test.ShouldEqual, 0.0)
		test.That(t, params.RobotY, test.ShouldEqual, 0.0)
	})
}
