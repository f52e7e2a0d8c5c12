// Package ingest contains the callbacks that hand every sensor message to the slam engine and
// update the shared state from the results.
package ingest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/publish"
	"github.com/viam-modules/viam-rgbd-slam/sensors"
	"github.com/viam-modules/viam-rgbd-slam/state"
	"github.com/viam-modules/viam-rgbd-slam/timesync"
)

// Deps holds everything the callbacks read or write.
type Deps struct {
	Engine      engine.Interface
	State       *state.State
	Broadcaster publish.TransformPublisher
	// PointClouds receives the map points after every tracked pair when RosVisualization is set.
	PointClouds      publish.PointCloudPublisher
	RosVisualization bool
	Timeout          time.Duration
	GlobalFrame      string
	OdomFrame        string
	Logger           logging.Logger
}

// logEngineError logs err at debug level, or at error level when the engine was already released
// since no callback may run after teardown.
func logEngineError(deps *Deps, sensor string, readingTime time.Time, err error) {
	if errors.Is(err, engine.ErrClosed) {
		deps.Logger.Errorw("sensor callback ran after the slam engine was released", "sensor", sensor, "error", err)
		return
	}
	deps.Logger.Debugf("%v \t | %v | Failure \t \t | %v | %v \n", readingTime, sensor, readingTime.Unix(), err)
}

// IMU forwards an inertial sample to the engine. Failures are logged and dropped.
func IMU(ctx context.Context, deps *Deps, sample sensors.IMUSample) {
	if err := deps.Engine.HandleIMU(ctx, deps.Timeout, sample); err != nil {
		logEngineError(deps, "IMU", sample.ReadingTime, err)
		return
	}
	deps.Logger.Debugf("%v \t |  IMU  | Success \t \t | %v \n", sample.ReadingTime, sample.ReadingTime.Unix())
}

// Odometry computes the odometry to map transform for sample and stores it together with the
// sample time. Nothing is stored when the engine fails.
func Odometry(ctx context.Context, deps *Deps, sample sensors.OdometrySample) {
	pose, err := deps.Engine.ComputeOdomToMapTransform(ctx, deps.Timeout, sample)
	if err != nil {
		logEngineError(deps, "ODOM", sample.ReadingTime, err)
		return
	}
	deps.State.Transform.Write(state.TimestampedTransform{
		Pose:        pose,
		Timestamp:   sample.ReadingTime,
		ParentFrame: deps.GlobalFrame,
		ChildFrame:  deps.OdomFrame,
	})
	deps.Logger.Debugf("%v \t |  ODOM | Success \t \t | %v \n", sample.ReadingTime, sample.ReadingTime.Unix())
}

// RGBD tracks a synchronized pair. On success the tracking flag is raised and the stored
// odometry transform is broadcast; when ros visualization is enabled the map points are
// published as well. A failed track has no side effects.
func RGBD(ctx context.Context, deps *Deps, rgb, depth sensors.Frame) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::ingest::RGBD")
	defer span.End()

	result, err := deps.Engine.TrackRGBD(ctx, deps.Timeout, rgb, depth)
	if err != nil {
		logEngineError(deps, "RGBD", rgb.ReadingTime, err)
		return
	}
	if !result.Success {
		deps.Logger.Debugf("%v \t |  RGBD | Lost \t \t | %v \n", rgb.ReadingTime, rgb.ReadingTime.Unix())
		return
	}

	if deps.State.Tracking.Set() {
		deps.Logger.Infow("tracking established", "rgb_time", rgb.ReadingTime, "depth_time", depth.ReadingTime)
	}

	if err := deps.Broadcaster.PublishTransform(deps.State.Transform.Read()); err != nil {
		deps.Logger.Warnw("failed to broadcast transform", "error", err)
	}

	if deps.RosVisualization {
		cloud, err := deps.Engine.CurrentMapPointCloud(ctx, deps.Timeout)
		if err != nil {
			logEngineError(deps, "RGBD", rgb.ReadingTime, err)
		} else if err := deps.PointClouds.PublishPointCloud(cloud); err != nil {
			deps.Logger.Warnw("failed to publish map points", "topic", publish.TopicMapPoints, "error", err)
		}
	}
	deps.Logger.Debugf("%v \t |  RGBD | Success \t \t | %v \n", rgb.ReadingTime, rgb.ReadingTime.Unix())
}

// Lidar forwards a scan to the engine. Failures are logged and dropped.
func Lidar(ctx context.Context, deps *Deps, scan sensors.LidarScan) {
	if err := deps.Engine.HandleLidarScan(ctx, deps.Timeout, scan); err != nil {
		logEngineError(deps, "LIDAR", scan.ReadingTime, err)
		return
	}
	deps.Logger.Debugf("%v \t | LIDAR | Success \t \t | %v \n", scan.ReadingTime, scan.ReadingTime.Unix())
}

// Subscriptions is the input surface of the front end: one handler per input channel. Color and
// depth frames go through a Synchronizer and are tracked in pairs.
type Subscriptions struct {
	deps         *Deps
	synchronizer *timesync.Synchronizer
}

// NewSubscriptions returns the handlers for deps, pairing frames with the given queue size and
// tolerance.
func NewSubscriptions(deps *Deps, queueSize int, tolerance time.Duration) *Subscriptions {
	subs := &Subscriptions{deps: deps}
	subs.synchronizer = timesync.New(queueSize, tolerance, func(ctx context.Context, rgb, depth sensors.Frame) {
		RGBD(ctx, deps, rgb, depth)
	})
	return subs
}

// OnRGB handles a frame from the color camera.
func (subs *Subscriptions) OnRGB(ctx context.Context, frame sensors.Frame) {
	subs.synchronizer.AddRGB(ctx, frame)
}

// OnDepth handles a frame from the depth camera.
func (subs *Subscriptions) OnDepth(ctx context.Context, frame sensors.Frame) {
	subs.synchronizer.AddDepth(ctx, frame)
}

// OnIMU handles an inertial sample.
func (subs *Subscriptions) OnIMU(ctx context.Context, sample sensors.IMUSample) {
	IMU(ctx, subs.deps, sample)
}

// OnOdometry handles an odometry sample.
func (subs *Subscriptions) OnOdometry(ctx context.Context, sample sensors.OdometrySample) {
	Odometry(ctx, subs.deps, sample)
}

// OnLidar handles a lidar scan.
func (subs *Subscriptions) OnLidar(ctx context.Context, scan sensors.LidarScan) {
	Lidar(ctx, subs.deps, scan)
}

// SyncStats returns the counters of the frame synchronizer.
func (subs *Subscriptions) SyncStats() timesync.Stats {
	return subs.synchronizer.Stats()
}
