package sensors

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/utils/contextutils"
)

// PointCloudSource is the part of a camera used as a lidar.
type PointCloudSource interface {
	NextPointCloud(ctx context.Context) (pointcloud.PointCloud, error)
	Properties(ctx context.Context) (camera.Properties, error)
}

// TimedLidar describes a lidar that reports the time its scans are from.
type TimedLidar interface {
	TimedSensor
	TimedLidarScan(ctx context.Context) (LidarScan, error)
}

// Lidar represents a LIDAR sensor.
type Lidar struct {
	name            string
	dataFrequencyHz int
	Lidar           PointCloudSource
}

// NewLidarFromSource returns a Lidar around an already resolved point cloud source.
func NewLidarFromSource(name string, src PointCloudSource, dataFrequencyHz int) Lidar {
	return Lidar{name: name, dataFrequencyHz: dataFrequencyHz, Lidar: src}
}

// Name returns the name of the lidar.
func (lidar Lidar) Name() string {
	return lidar.name
}

// DataFrequencyHz returns the rate at which the lidar is polled.
func (lidar Lidar) DataFrequencyHz() int {
	return lidar.dataFrequencyHz
}

// TimedLidarScan returns the next point cloud from the lidar and the time it is from.
func (lidar Lidar) TimedLidarScan(ctx context.Context) (LidarScan, error) {
	ctxWithMetadata, md := contextutils.ContextWithMetadata(ctx)
	cloud, err := lidar.Lidar.NextPointCloud(ctxWithMetadata)
	if err != nil {
		return LidarScan{}, errors.Wrap(err, "NextPointCloud error")
	}

	t, _, err := readingTime(md)
	if err != nil {
		return LidarScan{}, err
	}
	return LidarScan{Cloud: cloud, ReadingTime: t}, nil
}

// NewLidar returns the named lidar camera from the dependencies. The camera must support PCD.
func NewLidar(
	ctx context.Context,
	deps resource.Dependencies,
	cameraName string,
	dataFrequencyHz int,
	logger logging.Logger,
) (TimedLidar, error) {
	_, span := trace.StartSpan(ctx, "rgbdslam::sensors::NewLidar")
	defer span.End()
	lidar, err := camera.FromDependencies(deps, cameraName)
	if err != nil {
		return Lidar{}, errors.Wrapf(err, "error getting lidar camera %v for slam service", cameraName)
	}

	properties, err := lidar.Properties(ctx)
	if err != nil {
		return Lidar{}, errors.Wrapf(err, "error getting lidar camera properties %v for slam service", cameraName)
	}
	if !properties.SupportsPCD {
		return Lidar{}, errors.New("configuring lidar camera error: 'lidar' must support PCD")
	}

	logger.Debugw("using lidar", "name", cameraName)
	return NewLidarFromSource(cameraName, lidar, dataFrequencyHz), nil
}
