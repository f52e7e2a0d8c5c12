package fake

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/test"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func frames(i int) (s.Frame, s.Frame) {
	stamp := epoch.Add(time.Duration(i) * 100 * time.Millisecond)
	return s.Frame{Data: []byte{1}, ReadingTime: stamp}, s.Frame{Data: []byte{2}, ReadingTime: stamp}
}

func newEngine(t *testing.T, params map[string]string) *Engine {
	t.Helper()
	e, err := New(params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return e
}

func TestNew(t *testing.T) {
	t.Run("registered under its name", func(t *testing.T) {
		constructor, err := engine.Lookup(Name)
		test.That(t, err, test.ShouldBeNil)
		backend, err := constructor(nil, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, backend, test.ShouldHaveSameTypeAs, &Engine{})
	})

	t.Run("params override the defaults", func(t *testing.T) {
		e := newEngine(t, map[string]string{
			"keyframe_interval":      "2",
			"landmarks_per_keyframe": "3",
			"grid_resolution":        "0.1",
			"grid_cells":             "10",
		})
		test.That(t, e.keyframeInterval, test.ShouldEqual, 2)
		test.That(t, e.landmarksPerKeyframe, test.ShouldEqual, 3)
		test.That(t, e.gridResolution, test.ShouldEqual, 0.1)
		test.That(t, e.gridCells, test.ShouldEqual, 10)
	})

	t.Run("invalid params", func(t *testing.T) {
		for _, params := range []map[string]string{
			{"keyframe_interval": "zero"},
			{"landmarks_per_keyframe": "-1"},
			{"grid_cells": "0"},
			{"grid_resolution": "-0.5"},
		} {
			_, err := New(params, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldNotBeNil)
		}
	})

	t.Run("constructor errors surface a nil backend", func(t *testing.T) {
		constructor, err := engine.Lookup(Name)
		test.That(t, err, test.ShouldBeNil)
		backend, err := constructor(map[string]string{"grid_cells": "x"}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, backend, test.ShouldBeNil)
	})
}

func TestTrackRGBD(t *testing.T) {
	t.Run("empty frames fail to track", func(t *testing.T) {
		e := newEngine(t, nil)
		rgb, _ := frames(0)
		res, err := e.TrackRGBD(rgb, s.Frame{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Success, test.ShouldBeFalse)
		test.That(t, e.keyframes, test.ShouldBeEmpty)
	})

	t.Run("without odometry the camera moves forward", func(t *testing.T) {
		e := newEngine(t, nil)
		for i := 0; i < 3; i++ {
			rgb, depth := frames(i)
			res, err := e.TrackRGBD(rgb, depth)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Success, test.ShouldBeTrue)
			test.That(t, res.Pose.Point().X, test.ShouldEqual, float64(stepMM*(i+1)))
		}
	})

	t.Run("keyframes are spawned every interval", func(t *testing.T) {
		e := newEngine(t, map[string]string{"keyframe_interval": "2", "landmarks_per_keyframe": "3"})
		for i := 0; i < 5; i++ {
			rgb, depth := frames(i)
			_, err := e.TrackRGBD(rgb, depth)
			test.That(t, err, test.ShouldBeNil)
		}
		test.That(t, len(e.keyframes), test.ShouldEqual, 3)
		test.That(t, len(e.landmarks), test.ShouldEqual, 9)
		test.That(t, e.keyframes[1].Timestamp, test.ShouldResemble, epoch.Add(200*time.Millisecond))

		for _, l := range e.landmarks {
			test.That(t, l.Tracked, test.ShouldEqual, l.KeyframeID == 3)
		}
	})
}

func TestComputeOdomToMapTransform(t *testing.T) {
	e := newEngine(t, nil)

	t.Run("identity before tracking", func(t *testing.T) {
		odom := spatialmath.NewPoseFromPoint(r3.Vector{X: 100})
		pose, err := e.ComputeOdomToMapTransform(s.OdometrySample{Pose: odom})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)
	})

	t.Run("composes the tracked pose with the inverse odometry", func(t *testing.T) {
		rgb, depth := frames(0)
		res, err := e.TrackRGBD(rgb, depth)
		test.That(t, err, test.ShouldBeNil)
		// the camera sits at the last odometry pose
		test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 100)

		odom := spatialmath.NewPoseFromPoint(r3.Vector{X: 40})
		pose, err := e.ComputeOdomToMapTransform(s.OdometrySample{Pose: odom})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Point().X, test.ShouldAlmostEqual, 60)
	})

	t.Run("missing pose", func(t *testing.T) {
		_, err := e.ComputeOdomToMapTransform(s.OdometrySample{})
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestMapSnapshot(t *testing.T) {
	e := newEngine(t, map[string]string{"keyframe_interval": "1", "landmarks_per_keyframe": "2"})
	for i := 0; i < 2; i++ {
		rgb, depth := frames(i)
		_, err := e.TrackRGBD(rgb, depth)
		test.That(t, err, test.ShouldBeNil)
	}

	t.Run("without landmarks", func(t *testing.T) {
		mapData, err := e.MapSnapshot(engine.MapQuery{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(mapData.Keyframes), test.ShouldEqual, 2)
		test.That(t, mapData.Landmarks, test.ShouldBeEmpty)
		test.That(t, mapData.Header.Stamp, test.ShouldResemble, epoch.Add(100*time.Millisecond))
	})

	t.Run("with restricted landmarks", func(t *testing.T) {
		mapData, err := e.MapSnapshot(engine.MapQuery{IncludeLandmarks: true})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(mapData.Landmarks), test.ShouldEqual, 4)

		mapData, err = e.MapSnapshot(engine.MapQuery{IncludeLandmarks: true, TrackedOnly: true})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(mapData.Landmarks), test.ShouldEqual, 2)

		mapData, err = e.MapSnapshot(engine.MapQuery{IncludeLandmarks: true, KeyframeID: 1})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(mapData.Landmarks), test.ShouldEqual, 2)
		for _, l := range mapData.Landmarks {
			test.That(t, l.KeyframeID, test.ShouldEqual, int64(1))
		}
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		mapData, err := e.MapSnapshot(engine.MapQuery{IncludeLandmarks: true})
		test.That(t, err, test.ShouldBeNil)
		mapData.Keyframes[0].ID = 42
		mapData.Landmarks[0].Tracked = !mapData.Landmarks[0].Tracked
		test.That(t, e.keyframes[0].ID, test.ShouldEqual, int64(1))
		test.That(t, e.landmarks[0].Tracked, test.ShouldNotEqual, mapData.Landmarks[0].Tracked)
	})
}

func TestTraversabilitySnapshot(t *testing.T) {
	e := newEngine(t, map[string]string{"grid_cells": "4", "grid_resolution": "1"})

	cloud := pointcloud.New()
	test.That(t, cloud.Set(r3.Vector{X: 500, Y: 500, Z: 250}, nil), test.ShouldBeNil)
	test.That(t, cloud.Set(r3.Vector{X: 50000, Y: 0, Z: 0}, nil), test.ShouldBeNil)
	test.That(t, e.HandleLidarScan(s.LidarScan{Cloud: cloud}), test.ShouldBeNil)

	grid, gridMap, err := e.TraversabilitySnapshot()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, grid.Width, test.ShouldEqual, 4)
	test.That(t, grid.Height, test.ShouldEqual, 4)
	test.That(t, grid.Origin, test.ShouldResemble, r3.Vector{X: -2, Y: -2})
	test.That(t, len(grid.Data), test.ShouldEqual, 16)

	// (0.5m, 0.5m) falls in row 2, column 2; the far point is off the grid
	for i, cell := range grid.Data {
		if i == 2*4+2 {
			test.That(t, cell, test.ShouldEqual, int8(occupied))
		} else {
			test.That(t, cell, test.ShouldEqual, int8(unknown))
		}
	}

	elevation := gridMap.Layers[ElevationLayer]
	test.That(t, len(elevation), test.ShouldEqual, 16)
	test.That(t, elevation[2*4+2], test.ShouldAlmostEqual, 0.25)
	test.That(t, math.IsNaN(float64(elevation[0])), test.ShouldBeTrue)
	test.That(t, gridMap.Length, test.ShouldResemble, r3.Vector{X: 4, Y: 4})

	test.That(t, e.HandleLidarScan(s.LidarScan{}), test.ShouldNotBeNil)
}

func TestCurrentMapPointCloud(t *testing.T) {
	e := newEngine(t, map[string]string{"landmarks_per_keyframe": "3"})
	rgb, depth := frames(0)
	_, err := e.TrackRGBD(rgb, depth)
	test.That(t, err, test.ShouldBeNil)

	pc, err := e.CurrentMapPointCloud()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
}

func TestTerminate(t *testing.T) {
	e := newEngine(t, nil)
	test.That(t, e.HandleIMU(s.IMUSample{}), test.ShouldBeNil)
	test.That(t, e.IMUCount(), test.ShouldEqual, 1)

	test.That(t, e.Terminate(), test.ShouldBeNil)
	test.That(t, e.Terminate(), test.ShouldBeNil)
	test.That(t, e.HandleIMU(s.IMUSample{}), test.ShouldBeError, ErrTerminated)
	_, err := e.MapSnapshot(engine.MapQuery{})
	test.That(t, err, test.ShouldBeError, ErrTerminated)
	_, _, err = e.TraversabilitySnapshot()
	test.That(t, err, test.ShouldBeError, ErrTerminated)
	_, err = e.CurrentMapPointCloud()
	test.That(t, err, test.ShouldBeError, ErrTerminated)
}
