package rgbdslam

import (
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/test"

	"github.com/viam-modules/viam-rgbd-slam/config"
	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/publish"
)

func serviceWithParams(t *testing.T, params config.OptionalConfigParams) *Service {
	t.Helper()
	return &Service{
		params: params,
		logger: logging.NewTestLogger(t),
		clk:    clock.NewMock(),
		topics: newTopics(),
	}
}

func TestPointCloudPublisher(t *testing.T) {
	t.Run("map points are discarded without ros visualization", func(t *testing.T) {
		svc := serviceWithParams(t, config.OptionalConfigParams{RosVisualization: false})
		publisher := svc.pointCloudPublisher()
		_, ok := publisher.(publish.Disabled)
		test.That(t, ok, test.ShouldBeTrue)

		test.That(t, publisher.PublishPointCloud(pointcloud.New()), test.ShouldBeNil)
		test.That(t, svc.topics.MapPoints.Count(), test.ShouldEqual, int64(0))
	})

	t.Run("map points reach the topic with ros visualization", func(t *testing.T) {
		svc := serviceWithParams(t, config.OptionalConfigParams{RosVisualization: true})
		test.That(t, svc.pointCloudPublisher().PublishPointCloud(pointcloud.New()), test.ShouldBeNil)
		test.That(t, svc.topics.MapPoints.Count(), test.ShouldEqual, int64(1))
	})
}

func TestTraversabilityPublishers(t *testing.T) {
	t.Run("grids are discarded when traversability is disabled", func(t *testing.T) {
		svc := serviceWithParams(t, config.OptionalConfigParams{EnableTraversability: false})
		grids, gridMaps := svc.traversabilityPublishers()
		_, ok := grids.(publish.Disabled)
		test.That(t, ok, test.ShouldBeTrue)
		_, ok = gridMaps.(publish.Disabled)
		test.That(t, ok, test.ShouldBeTrue)

		test.That(t, grids.PublishOccupancyGrid(engine.OccupancyGrid{}), test.ShouldBeNil)
		test.That(t, gridMaps.PublishGridMap(engine.GridMap{}), test.ShouldBeNil)
		test.That(t, svc.topics.Traversability.Count(), test.ShouldEqual, int64(0))
		test.That(t, svc.topics.GridMap.Count(), test.ShouldEqual, int64(0))
	})

	t.Run("grids reach the topics when traversability is enabled", func(t *testing.T) {
		svc := serviceWithParams(t, config.OptionalConfigParams{EnableTraversability: true})
		grids, gridMaps := svc.traversabilityPublishers()
		test.That(t, grids.PublishOccupancyGrid(engine.OccupancyGrid{}), test.ShouldBeNil)
		test.That(t, gridMaps.PublishGridMap(engine.GridMap{}), test.ShouldBeNil)
		test.That(t, svc.topics.Traversability.Count(), test.ShouldEqual, int64(1))
		test.That(t, svc.topics.GridMap.Count(), test.ShouldEqual, int64(1))
	})
}
