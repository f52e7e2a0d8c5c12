// Package testhelper provides helpers to build the rgbd slam service around injected sensors.
package testhelper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/test"

	rgbdslam "github.com/viam-modules/viam-rgbd-slam"
	"github.com/viam-modules/viam-rgbd-slam/config"
	s "github.com/viam-modules/viam-rgbd-slam/sensors"
	"github.com/viam-modules/viam-rgbd-slam/sensors/inject"
)

const (
	// SensorDataFrequencyHz is the rate the injected sensors are polled at.
	SensorDataFrequencyHz = 200
	// FrameInterval is the time between two frames of an injected camera.
	FrameInterval = 33 * time.Millisecond
	// SensorValidationMaxTimeoutForTest bounds camera validation in tests.
	SensorValidationMaxTimeoutForTest = 50 * time.Millisecond
	// SensorValidationIntervalForTest is the camera validation interval in tests.
	SensorValidationIntervalForTest = 10 * time.Millisecond
)

// Epoch is the reading time of the first frame of every injected sensor.
var Epoch = time.Date(2021, 8, 15, 14, 30, 45, 1, time.UTC)

// timeTracker hands out consecutive reading times.
type timeTracker struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func (tt *timeTracker) tick() time.Time {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.next.IsZero() {
		tt.next = Epoch
	}
	t := tt.next
	tt.next = tt.next.Add(tt.interval)
	return t
}

// Camera returns an injected camera whose n-th frame is stamped Epoch + n*FrameInterval. Two
// cameras from this function therefore produce frames that pair with each other.
func Camera(name string, data []byte) *inject.TimedCamera {
	tt := &timeTracker{interval: FrameInterval}
	cam := &inject.TimedCamera{}
	cam.NameFunc = func() string { return name }
	cam.DataFrequencyHzFunc = func() int { return SensorDataFrequencyHz }
	cam.TimedFrameFunc = func(ctx context.Context) (s.Frame, error) {
		return s.Frame{Data: data, MimeType: "image/jpeg", FrameID: name, ReadingTime: tt.tick()}, nil
	}
	return cam
}

// MovementSensor returns an injected movement sensor acting as IMU and odometer. Its odometry
// moves 10 mm along x per reading.
func MovementSensor(name string) *inject.TimedMovementSensor {
	tt := &timeTracker{interval: FrameInterval}
	var mu sync.Mutex
	x := 0.0
	return &inject.TimedMovementSensor{
		NameFunc:            func() string { return name },
		DataFrequencyHzFunc: func() int { return SensorDataFrequencyHz },
		PropertiesFunc: func() s.MovementSensorProperties {
			return s.MovementSensorProperties{IMUSupported: true, OdometerSupported: true}
		},
		TimedIMUSampleFunc: func(ctx context.Context) (s.IMUSample, error) {
			return s.IMUSample{LinearAcceleration: r3.Vector{Z: 9.81}, ReadingTime: tt.tick()}, nil
		},
		TimedOdometrySampleFunc: func(ctx context.Context) (s.OdometrySample, error) {
			mu.Lock()
			x += 10
			pose := spatialmath.NewPoseFromPoint(r3.Vector{X: x})
			mu.Unlock()
			return s.OdometrySample{Pose: pose, FrameID: "odom", ChildFrameID: "base_link", ReadingTime: tt.tick()}, nil
		},
	}
}

// Lidar returns an injected lidar returning a single point 500 mm ahead.
func Lidar(name string) *inject.TimedLidar {
	tt := &timeTracker{interval: FrameInterval}
	lidar := &inject.TimedLidar{}
	lidar.NameFunc = func() string { return name }
	lidar.DataFrequencyHzFunc = func() int { return SensorDataFrequencyHz }
	lidar.TimedLidarScanFunc = func(ctx context.Context) (s.LidarScan, error) {
		cloud := pointcloud.New()
		if err := cloud.Set(r3.Vector{X: 500}, nil); err != nil {
			return s.LidarScan{}, err
		}
		return s.LidarScan{Cloud: cloud, ReadingTime: tt.tick()}, nil
	}
	return lidar
}

// CreateService validates cfg and builds the service with overrides in place of the sensors named
// by cfg.
func CreateService(
	t *testing.T,
	cfg *config.Config,
	overrides rgbdslam.Overrides,
	logger logging.Logger,
) (*rgbdslam.Service, error) {
	t.Helper()

	ctx := context.Background()
	cfgService := resource.Config{Name: "test", API: generic.API, Model: rgbdslam.Model}
	cfgService.ConvertedAttributes = cfg

	if _, err := cfg.Validate("path"); err != nil {
		return nil, err
	}

	if overrides.SensorValidationMaxTimeout == 0 {
		overrides.SensorValidationMaxTimeout = SensorValidationMaxTimeoutForTest
	}
	if overrides.SensorValidationInterval == 0 {
		overrides.SensorValidationInterval = SensorValidationIntervalForTest
	}

	svc, err := rgbdslam.New(ctx, resource.Dependencies{}, cfgService, logger, overrides)
	if err != nil {
		test.That(t, svc, test.ShouldBeNil)
		return nil, err
	}
	test.That(t, svc, test.ShouldNotBeNil)
	return svc, nil
}
