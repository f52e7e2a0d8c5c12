// Package publish defines the output channels of the rgbd slam front end and in-memory and
// file backed implementations of them.
package publish

import (
	"go.uber.org/multierr"
	"go.viam.com/rdk/pointcloud"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/state"
)

// Names of the input and output channels.
const (
	TopicRGB                = "camera/image_raw"
	TopicDepth              = "camera/depth/image_raw"
	TopicIMU                = "imu"
	TopicOdometry           = "odom"
	TopicLidar              = "velodyne_points"
	TopicTransform          = "tf"
	TopicMapData            = "map_data"
	TopicMapPoints          = "map_points"
	TopicTraversabilityGrid = "traversability_grid"
	TopicGridMap            = "RTQuadtree_struct"
	ServiceGetMapData       = "orb_slam3_get_map_data"
)

// TransformPublisher broadcasts the odometry to map transform.
type TransformPublisher interface {
	PublishTransform(transform state.TimestampedTransform) error
}

// MapDataPublisher publishes map snapshots.
type MapDataPublisher interface {
	PublishMapData(mapData engine.MapData) error
}

// PointCloudPublisher publishes the map points for visualization.
type PointCloudPublisher interface {
	PublishPointCloud(cloud pointcloud.PointCloud) error
}

// OccupancyGridPublisher publishes 2D traversability grids.
type OccupancyGridPublisher interface {
	PublishOccupancyGrid(grid engine.OccupancyGrid) error
}

// GridMapPublisher publishes multi-layer grid maps.
type GridMapPublisher interface {
	PublishGridMap(gridMap engine.GridMap) error
}

// TransformPublisherFunc adapts a function to a TransformPublisher.
type TransformPublisherFunc func(transform state.TimestampedTransform) error

// PublishTransform calls f.
func (f TransformPublisherFunc) PublishTransform(transform state.TimestampedTransform) error {
	return f(transform)
}

// MapDataPublisherFunc adapts a function to a MapDataPublisher.
type MapDataPublisherFunc func(mapData engine.MapData) error

// PublishMapData calls f.
func (f MapDataPublisherFunc) PublishMapData(mapData engine.MapData) error {
	return f(mapData)
}

// PointCloudPublisherFunc adapts a function to a PointCloudPublisher.
type PointCloudPublisherFunc func(cloud pointcloud.PointCloud) error

// PublishPointCloud calls f.
func (f PointCloudPublisherFunc) PublishPointCloud(cloud pointcloud.PointCloud) error {
	return f(cloud)
}

// OccupancyGridPublisherFunc adapts a function to an OccupancyGridPublisher.
type OccupancyGridPublisherFunc func(grid engine.OccupancyGrid) error

// PublishOccupancyGrid calls f.
func (f OccupancyGridPublisherFunc) PublishOccupancyGrid(grid engine.OccupancyGrid) error {
	return f(grid)
}

// GridMapPublisherFunc adapts a function to a GridMapPublisher.
type GridMapPublisherFunc func(gridMap engine.GridMap) error

// PublishGridMap calls f.
func (f GridMapPublisherFunc) PublishGridMap(gridMap engine.GridMap) error {
	return f(gridMap)
}

// Disabled implements every publisher and discards what it is given.
type Disabled struct{}

// PublishTransform discards transform.
func (Disabled) PublishTransform(transform state.TimestampedTransform) error { return nil }

// PublishMapData discards mapData.
func (Disabled) PublishMapData(mapData engine.MapData) error { return nil }

// PublishPointCloud discards cloud.
func (Disabled) PublishPointCloud(cloud pointcloud.PointCloud) error { return nil }

// PublishOccupancyGrid discards grid.
func (Disabled) PublishOccupancyGrid(grid engine.OccupancyGrid) error { return nil }

// PublishGridMap discards gridMap.
func (Disabled) PublishGridMap(gridMap engine.GridMap) error { return nil }

// Multi returns a publish function handing v to every publisher in order. Every publisher is
// called even when an earlier one fails, and the errors are combined.
func Multi[T any](publishers ...func(v T) error) func(v T) error {
	return func(v T) error {
		var err error
		for _, publish := range publishers {
			err = multierr.Append(err, publish(v))
		}
		return err
	}
}
