// Package sensors defines the timestamped sensor messages consumed by the rgbd slam front end
// and the adapters that produce them from rdk components.
package sensors

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/rdk/utils/contextutils"
	goutils "go.viam.com/utils"
)

const replayTimestampErrorMessage = "replay sensor timestamp parse RFC3339Nano error"

var defaultTime = time.Time{}

// Frame is a single image captured by a camera.
type Frame struct {
	Data        []byte
	MimeType    string
	FrameID     string
	ReadingTime time.Time
}

// IMUSample is one inertial reading.
type IMUSample struct {
	LinearAcceleration r3.Vector
	AngularVelocity    spatialmath.AngularVelocity
	ReadingTime        time.Time
}

// OdometrySample is one odometry reading. Pose is expressed in the odometry frame, relative to
// the first reading received from the sensor.
type OdometrySample struct {
	Pose         spatialmath.Pose
	FrameID      string
	ChildFrameID string
	ReadingTime  time.Time
}

// LidarScan is one point cloud from a lidar.
type LidarScan struct {
	Cloud       pointcloud.PointCloud
	ReadingTime time.Time
}

// TimedSensor is any sensor able to produce one timestamped reading.
type TimedSensor interface {
	Name() string
	DataFrequencyHz() int
}

// readingTime returns the time a reading is from. Replay sensors report the time requested
// through the context metadata; live sensors are stamped with the current time.
func readingTime(md map[string][]string) (time.Time, bool, error) {
	timeRequestedMetadata, ok := md[contextutils.TimeRequestedMetadataKey]
	if !ok {
		return time.Now().UTC(), false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, timeRequestedMetadata[0])
	if err != nil {
		return time.Time{}, true, errors.Wrap(err, replayTimestampErrorMessage)
	}
	return t, true, nil
}

// ValidateGetData calls get every sensorValidationInterval until it succeeds or
// sensorValidationMaxTimeout has elapsed. Returns an error if no valid reading was returned.
func ValidateGetData(
	ctx context.Context,
	sensorName string,
	get func(ctx context.Context) error,
	sensorValidationMaxTimeout time.Duration,
	sensorValidationInterval time.Duration,
	logger logging.Logger,
) error {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::sensors::ValidateGetData")
	defer span.End()

	startTime := time.Now().UTC()

	for {
		err := get(ctx)
		if err == nil {
			break
		}

		logger.Debugw("ValidateGetData hit error: ", "sensor", sensorName, "error", err)
		if time.Since(startTime) >= sensorValidationMaxTimeout {
			return errors.Wrapf(err, "ValidateGetData timeout for %v", sensorName)
		}
		if !goutils.SelectContextOrWait(ctx, sensorValidationInterval) {
			return ctx.Err()
		}
	}

	return nil
}
