package engine

import (
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// BackendMock is a backend whose methods call the matching func field, returning zero values
// when it is unset.
type BackendMock struct {
	HandleIMUFunc                 func(sample s.IMUSample) error
	ComputeOdomToMapTransformFunc func(sample s.OdometrySample) (spatialmath.Pose, error)
	TrackRGBDFunc                 func(rgb, depth s.Frame) (TrackResult, error)
	HandleLidarScanFunc           func(scan s.LidarScan) error
	MapSnapshotFunc               func(query MapQuery) (MapData, error)
	TraversabilitySnapshotFunc    func() (OccupancyGrid, GridMap, error)
	CurrentMapPointCloudFunc      func() (pointcloud.PointCloud, error)
	TerminateFunc                 func() error
}

// HandleIMU calls the injected HandleIMUFunc.
func (b *BackendMock) HandleIMU(sample s.IMUSample) error {
	if b.HandleIMUFunc == nil {
		return nil
	}
	return b.HandleIMUFunc(sample)
}

// ComputeOdomToMapTransform calls the injected ComputeOdomToMapTransformFunc.
func (b *BackendMock) ComputeOdomToMapTransform(sample s.OdometrySample) (spatialmath.Pose, error) {
	if b.ComputeOdomToMapTransformFunc == nil {
		return spatialmath.NewZeroPose(), nil
	}
	return b.ComputeOdomToMapTransformFunc(sample)
}

// TrackRGBD calls the injected TrackRGBDFunc.
func (b *BackendMock) TrackRGBD(rgb, depth s.Frame) (TrackResult, error) {
	if b.TrackRGBDFunc == nil {
		return TrackResult{}, nil
	}
	return b.TrackRGBDFunc(rgb, depth)
}

// HandleLidarScan calls the injected HandleLidarScanFunc.
func (b *BackendMock) HandleLidarScan(scan s.LidarScan) error {
	if b.HandleLidarScanFunc == nil {
		return nil
	}
	return b.HandleLidarScanFunc(scan)
}

// MapSnapshot calls the injected MapSnapshotFunc.
func (b *BackendMock) MapSnapshot(query MapQuery) (MapData, error) {
	if b.MapSnapshotFunc == nil {
		return MapData{}, nil
	}
	return b.MapSnapshotFunc(query)
}

// TraversabilitySnapshot calls the injected TraversabilitySnapshotFunc.
func (b *BackendMock) TraversabilitySnapshot() (OccupancyGrid, GridMap, error) {
	if b.TraversabilitySnapshotFunc == nil {
		return OccupancyGrid{}, GridMap{}, nil
	}
	return b.TraversabilitySnapshotFunc()
}

// CurrentMapPointCloud calls the injected CurrentMapPointCloudFunc.
func (b *BackendMock) CurrentMapPointCloud() (pointcloud.PointCloud, error) {
	if b.CurrentMapPointCloudFunc == nil {
		return pointcloud.New(), nil
	}
	return b.CurrentMapPointCloudFunc()
}

// Terminate calls the injected TerminateFunc.
func (b *BackendMock) Terminate() error {
	if b.TerminateFunc == nil {
		return nil
	}
	return b.TerminateFunc()
}
