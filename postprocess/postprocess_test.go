package postprocess

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-modules/viam-rgbd-slam/engine"
)

var landmarks = []engine.Landmark{
	{ID: 1, KeyframeID: 1, Position: r3.Vector{X: 1, Y: 2, Z: 3}, Tracked: false},
	{ID: 2, KeyframeID: 1, Position: r3.Vector{X: 4, Y: 5, Z: 6}, Tracked: true},
	{ID: 3, KeyframeID: 2, Position: r3.Vector{X: 7, Y: 8, Z: 9}, Tracked: true},
}

func TestOffsetGrid(t *testing.T) {
	grid := engine.OccupancyGrid{Origin: r3.Vector{X: -1, Y: -2}, Data: []int8{1, 2}}
	offset := OffsetGrid(grid, 1.0, 1.0)
	test.That(t, offset.Origin, test.ShouldResemble, r3.Vector{X: 0, Y: -1})
	test.That(t, offset.Data, test.ShouldResemble, grid.Data)
	// the input keeps its origin
	test.That(t, grid.Origin, test.ShouldResemble, r3.Vector{X: -1, Y: -2})
}

func TestStamp(t *testing.T) {
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	grid := StampOccupancyGrid(engine.OccupancyGrid{Width: 3}, "map", stamp)
	test.That(t, grid.Header, test.ShouldResemble, engine.Header{FrameID: "map", Stamp: stamp})
	test.That(t, grid.Width, test.ShouldEqual, 3)

	gridMap := StampGridMap(engine.GridMap{Resolution: 0.1}, "map", stamp)
	test.That(t, gridMap.Header, test.ShouldResemble, engine.Header{FrameID: "map", Stamp: stamp})
	test.That(t, gridMap.Resolution, test.ShouldEqual, 0.1)
}

func TestFilterLandmarks(t *testing.T) {
	t.Run("no restriction keeps everything", func(t *testing.T) {
		test.That(t, FilterLandmarks(landmarks, false, 0), test.ShouldResemble, landmarks)
	})

	t.Run("tracked only", func(t *testing.T) {
		filtered := FilterLandmarks(landmarks, true, 0)
		test.That(t, filtered, test.ShouldResemble, landmarks[1:])
	})

	t.Run("one keyframe", func(t *testing.T) {
		filtered := FilterLandmarks(landmarks, false, 1)
		test.That(t, filtered, test.ShouldResemble, landmarks[:2])
	})

	t.Run("tracked from one keyframe", func(t *testing.T) {
		filtered := FilterLandmarks(landmarks, true, 1)
		test.That(t, filtered, test.ShouldResemble, []engine.Landmark{landmarks[1]})
	})

	t.Run("unknown keyframe", func(t *testing.T) {
		test.That(t, FilterLandmarks(landmarks, false, 42), test.ShouldBeEmpty)
	})
}

func TestLandmarksToPointCloud(t *testing.T) {
	pc, err := LandmarksToPointCloud(landmarks)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)

	d, ok := pc.At(4, 5, 6)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.HasColor(), test.ShouldBeTrue)
	_, _, b := d.RGB255()
	test.That(t, b, test.ShouldEqual, uint8(fullConfidence))

	d, ok = pc.At(1, 2, 3)
	test.That(t, ok, test.ShouldBeTrue)
	_, _, b = d.RGB255()
	test.That(t, b, test.ShouldEqual, uint8(partialConfidence))

	empty, err := LandmarksToPointCloud(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Size(), test.ShouldEqual, 0)
}
