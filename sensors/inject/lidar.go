package inject

import (
	"context"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/pointcloud"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// PointCloudSource is an injected point cloud source.
type PointCloudSource struct {
	NextPointCloudFunc func(ctx context.Context) (pointcloud.PointCloud, error)
	PropertiesFunc     func(ctx context.Context) (camera.Properties, error)
}

// NextPointCloud calls the injected NextPointCloudFunc.
func (src *PointCloudSource) NextPointCloud(ctx context.Context) (pointcloud.PointCloud, error) {
	return src.NextPointCloudFunc(ctx)
}

// Properties calls the injected PropertiesFunc.
func (src *PointCloudSource) Properties(ctx context.Context) (camera.Properties, error) {
	return src.PropertiesFunc(ctx)
}

// TimedLidar is an injected TimedLidar.
type TimedLidar struct {
	s.Lidar
	NameFunc            func() string
	DataFrequencyHzFunc func() int
	TimedLidarScanFunc  func(ctx context.Context) (s.LidarScan, error)
}

// Name calls the injected Name or the real version.
func (lidar *TimedLidar) Name() string {
	if lidar.NameFunc == nil {
		return lidar.Lidar.Name()
	}
	return lidar.NameFunc()
}

// DataFrequencyHz calls the injected DataFrequencyHz or the real version.
func (lidar *TimedLidar) DataFrequencyHz() int {
	if lidar.DataFrequencyHzFunc == nil {
		return lidar.Lidar.DataFrequencyHz()
	}
	return lidar.DataFrequencyHzFunc()
}

// TimedLidarScan calls the injected TimedLidarScan or the real version.
func (lidar *TimedLidar) TimedLidarScan(ctx context.Context) (s.LidarScan, error) {
	if lidar.TimedLidarScanFunc == nil {
		return lidar.Lidar.TimedLidarScan(ctx)
	}
	return lidar.TimedLidarScanFunc(ctx)
}
