package engine

import (
	"context"
	"time"

	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// Mock is an injectable engine. Each method calls its func field when set, otherwise the
// embedded Interface, otherwise returns zero values.
type Mock struct {
	Interface

	HandleIMUFunc                 func(ctx context.Context, timeout time.Duration, sample s.IMUSample) error
	ComputeOdomToMapTransformFunc func(ctx context.Context, timeout time.Duration, sample s.OdometrySample) (spatialmath.Pose, error)
	TrackRGBDFunc                 func(ctx context.Context, timeout time.Duration, rgb, depth s.Frame) (TrackResult, error)
	HandleLidarScanFunc           func(ctx context.Context, timeout time.Duration, scan s.LidarScan) error
	MapSnapshotFunc               func(ctx context.Context, timeout time.Duration, query MapQuery) (MapData, error)
	TraversabilitySnapshotFunc    func(ctx context.Context, timeout time.Duration) (OccupancyGrid, GridMap, error)
	CurrentMapPointCloudFunc      func(ctx context.Context, timeout time.Duration) (pointcloud.PointCloud, error)
	TerminateFunc                 func(ctx context.Context, timeout time.Duration) error
}

// HandleIMU calls the injected HandleIMUFunc or the real version.
func (m *Mock) HandleIMU(ctx context.Context, timeout time.Duration, sample s.IMUSample) error {
	if m.HandleIMUFunc != nil {
		return m.HandleIMUFunc(ctx, timeout, sample)
	}
	if m.Interface != nil {
		return m.Interface.HandleIMU(ctx, timeout, sample)
	}
	return nil
}

// ComputeOdomToMapTransform calls the injected ComputeOdomToMapTransformFunc or the real version.
func (m *Mock) ComputeOdomToMapTransform(
	ctx context.Context,
	timeout time.Duration,
	sample s.OdometrySample,
) (spatialmath.Pose, error) {
	if m.ComputeOdomToMapTransformFunc != nil {
		return m.ComputeOdomToMapTransformFunc(ctx, timeout, sample)
	}
	if m.Interface != nil {
		return m.Interface.ComputeOdomToMapTransform(ctx, timeout, sample)
	}
	return spatialmath.NewZeroPose(), nil
}

// TrackRGBD calls the injected TrackRGBDFunc or the real version.
func (m *Mock) TrackRGBD(ctx context.Context, timeout time.Duration, rgb, depth s.Frame) (TrackResult, error) {
	if m.TrackRGBDFunc != nil {
		return m.TrackRGBDFunc(ctx, timeout, rgb, depth)
	}
	if m.Interface != nil {
		return m.Interface.TrackRGBD(ctx, timeout, rgb, depth)
	}
	return TrackResult{}, nil
}

// HandleLidarScan calls the injected HandleLidarScanFunc or the real version.
func (m *Mock) HandleLidarScan(ctx context.Context, timeout time.Duration, scan s.LidarScan) error {
	if m.HandleLidarScanFunc != nil {
		return m.HandleLidarScanFunc(ctx, timeout, scan)
	}
	if m.Interface != nil {
		return m.Interface.HandleLidarScan(ctx, timeout, scan)
	}
	return nil
}

// MapSnapshot calls the injected MapSnapshotFunc or the real version.
func (m *Mock) MapSnapshot(ctx context.Context, timeout time.Duration, query MapQuery) (MapData, error) {
	if m.MapSnapshotFunc != nil {
		return m.MapSnapshotFunc(ctx, timeout, query)
	}
	if m.Interface != nil {
		return m.Interface.MapSnapshot(ctx, timeout, query)
	}
	return MapData{}, nil
}

// TraversabilitySnapshot calls the injected TraversabilitySnapshotFunc or the real version.
func (m *Mock) TraversabilitySnapshot(ctx context.Context, timeout time.Duration) (OccupancyGrid, GridMap, error) {
	if m.TraversabilitySnapshotFunc != nil {
		return m.TraversabilitySnapshotFunc(ctx, timeout)
	}
	if m.Interface != nil {
		return m.Interface.TraversabilitySnapshot(ctx, timeout)
	}
	return OccupancyGrid{}, GridMap{}, nil
}

// CurrentMapPointCloud calls the injected CurrentMapPointCloudFunc or the real version.
func (m *Mock) CurrentMapPointCloud(ctx context.Context, timeout time.Duration) (pointcloud.PointCloud, error) {
	if m.CurrentMapPointCloudFunc != nil {
		return m.CurrentMapPointCloudFunc(ctx, timeout)
	}
	if m.Interface != nil {
		return m.Interface.CurrentMapPointCloud(ctx, timeout)
	}
	return pointcloud.New(), nil
}

// Terminate calls the injected TerminateFunc or the real version.
func (m *Mock) Terminate(ctx context.Context, timeout time.Duration) error {
	if m.TerminateFunc != nil {
		return m.TerminateFunc(ctx, timeout)
	}
	if m.Interface != nil {
		return m.Interface.Terminate(ctx, timeout)
	}
	return nil
}
