// Package fake implements a deterministic in-memory slam engine. It tracks every frame pair
// carrying data, places the camera at the latest odometry pose and spawns a fixed pattern of
// landmarks in front of every keyframe.
package fake

import (
	"math"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/postprocess"
	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// Name is the name the fake backend is registered under.
const Name = "fake"

const (
	defaultKeyframeInterval     = 5
	defaultLandmarksPerKeyframe = 4
	defaultGridResolution       = 0.05 // m
	defaultGridCells            = 40
	// stepMM is how far the camera advances per tracked frame when there is no odometry.
	stepMM         = 10
	maxLidarPoints = 10000
	occupied       = 100
	unknown        = -1
	// ElevationLayer is the grid map layer holding the highest point seen in each cell, in m.
	ElevationLayer = "elevation"
)

// ErrTerminated is returned by every call made after Terminate.
var ErrTerminated = errors.New("fake slam engine terminated")

func init() {
	engine.Register(Name, func(params map[string]string, logger logging.Logger) (engine.Backend, error) {
		e, err := New(params, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Engine is the fake backend.
type Engine struct {
	logger logging.Logger

	keyframeInterval     int
	landmarksPerKeyframe int
	gridResolution       float64
	gridCells            int

	imuCount    int
	framesTotal int
	lastStamp   time.Time
	lastOdom    spatialmath.Pose
	cameraPose  spatialmath.Pose
	keyframes   []engine.Keyframe
	landmarks   []engine.Landmark
	lidarPoints []r3.Vector
	terminated  bool
}

// New returns a fake engine. Recognized params are keyframe_interval, landmarks_per_keyframe,
// grid_resolution and grid_cells.
func New(params map[string]string, logger logging.Logger) (*Engine, error) {
	e := &Engine{
		logger:               logger,
		keyframeInterval:     defaultKeyframeInterval,
		landmarksPerKeyframe: defaultLandmarksPerKeyframe,
		gridResolution:       defaultGridResolution,
		gridCells:            defaultGridCells,
	}

	var err error
	if e.keyframeInterval, err = intParam(params, "keyframe_interval", e.keyframeInterval); err != nil {
		return nil, err
	}
	if e.landmarksPerKeyframe, err = intParam(params, "landmarks_per_keyframe", e.landmarksPerKeyframe); err != nil {
		return nil, err
	}
	if e.gridCells, err = intParam(params, "grid_cells", e.gridCells); err != nil {
		return nil, err
	}
	if v, ok := params["grid_resolution"]; ok {
		if e.gridResolution, err = strconv.ParseFloat(v, 64); err != nil || e.gridResolution <= 0 {
			return nil, errors.Errorf("grid_resolution must be a positive number, got %q", v)
		}
	}
	return e, nil
}

func intParam(params map[string]string, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// HandleIMU counts the sample.
func (e *Engine) HandleIMU(sample s.IMUSample) error {
	if e.terminated {
		return ErrTerminated
	}
	e.imuCount++
	return nil
}

// IMUCount returns how many inertial samples were handled.
func (e *Engine) IMUCount() int {
	return e.imuCount
}

// ComputeOdomToMapTransform returns the pose of the odometry frame in the map frame. It is the
// identity until the first frame was tracked.
func (e *Engine) ComputeOdomToMapTransform(sample s.OdometrySample) (spatialmath.Pose, error) {
	if e.terminated {
		return nil, ErrTerminated
	}
	if sample.Pose == nil {
		return nil, errors.New("odometry sample has no pose")
	}
	e.lastOdom = sample.Pose
	if e.cameraPose == nil {
		return spatialmath.NewZeroPose(), nil
	}
	return spatialmath.Compose(e.cameraPose, spatialmath.PoseInverse(sample.Pose)), nil
}

// TrackRGBD fails when either frame is empty. Otherwise the camera is placed at the latest
// odometry pose, or moved forward by a fixed step when there is none.
func (e *Engine) TrackRGBD(rgb, depth s.Frame) (engine.TrackResult, error) {
	if e.terminated {
		return engine.TrackResult{}, ErrTerminated
	}
	if len(rgb.Data) == 0 || len(depth.Data) == 0 {
		return engine.TrackResult{Success: false}, nil
	}

	e.framesTotal++
	e.lastStamp = rgb.ReadingTime
	if e.lastOdom != nil {
		e.cameraPose = e.lastOdom
	} else {
		e.cameraPose = spatialmath.NewPoseFromPoint(r3.Vector{X: float64(stepMM * e.framesTotal)})
	}

	if (e.framesTotal-1)%e.keyframeInterval == 0 {
		e.addKeyframe(rgb.ReadingTime)
	}
	return engine.TrackResult{Success: true, Pose: e.cameraPose}, nil
}

// addKeyframe keeps the camera pose and spawns its landmarks. Only the landmarks of the newest
// keyframe are tracked.
func (e *Engine) addKeyframe(stamp time.Time) {
	id := int64(len(e.keyframes) + 1)
	e.keyframes = append(e.keyframes, engine.Keyframe{ID: id, Pose: e.cameraPose, Timestamp: stamp})

	for i := range e.landmarks {
		e.landmarks[i].Tracked = false
	}
	origin := e.cameraPose.Point()
	for i := 0; i < e.landmarksPerKeyframe; i++ {
		e.landmarks = append(e.landmarks, engine.Landmark{
			ID:         int64(len(e.landmarks) + 1),
			KeyframeID: id,
			Position:   origin.Add(r3.Vector{X: 1000, Y: float64(i)*100 - 150, Z: float64(i) * 50}),
			Tracked:    true,
		})
	}
}

// HandleLidarScan keeps the most recent lidar points for the occupancy grid.
func (e *Engine) HandleLidarScan(scan s.LidarScan) error {
	if e.terminated {
		return ErrTerminated
	}
	if scan.Cloud == nil {
		return errors.New("lidar scan has no point cloud")
	}
	scan.Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		e.lidarPoints = append(e.lidarPoints, p)
		return true
	})
	if len(e.lidarPoints) > maxLidarPoints {
		e.lidarPoints = e.lidarPoints[len(e.lidarPoints)-maxLidarPoints:]
	}
	return nil
}

// MapSnapshot returns copies of all keyframes and, when requested, the landmarks matching q.
func (e *Engine) MapSnapshot(q engine.MapQuery) (engine.MapData, error) {
	if e.terminated {
		return engine.MapData{}, ErrTerminated
	}
	mapData := engine.MapData{
		Header:    engine.Header{Stamp: e.lastStamp},
		Keyframes: append([]engine.Keyframe(nil), e.keyframes...),
	}
	if q.IncludeLandmarks {
		mapData.Landmarks = postprocess.FilterLandmarks(e.landmarks, q.TrackedOnly, q.KeyframeID)
	}
	return mapData, nil
}

// TraversabilitySnapshot projects landmarks and lidar points onto a square grid centred on the
// map origin.
func (e *Engine) TraversabilitySnapshot() (engine.OccupancyGrid, engine.GridMap, error) {
	if e.terminated {
		return engine.OccupancyGrid{}, engine.GridMap{}, ErrTerminated
	}
	side := float64(e.gridCells) * e.gridResolution
	grid := engine.OccupancyGrid{
		Header:     engine.Header{Stamp: e.lastStamp},
		Resolution: e.gridResolution,
		Width:      e.gridCells,
		Height:     e.gridCells,
		Origin:     r3.Vector{X: -side / 2, Y: -side / 2},
		Data:       make([]int8, e.gridCells*e.gridCells),
	}
	elevation := make([]float32, e.gridCells*e.gridCells)
	for i := range grid.Data {
		grid.Data[i] = unknown
		elevation[i] = float32(math.NaN())
	}

	mark := func(pMM r3.Vector) {
		p := pMM.Mul(0.001)
		col := int(math.Floor((p.X - grid.Origin.X) / e.gridResolution))
		row := int(math.Floor((p.Y - grid.Origin.Y) / e.gridResolution))
		if col < 0 || col >= e.gridCells || row < 0 || row >= e.gridCells {
			return
		}
		idx := row*e.gridCells + col
		grid.Data[idx] = occupied
		if z := float32(p.Z); math.IsNaN(float64(elevation[idx])) || z > elevation[idx] {
			elevation[idx] = z
		}
	}
	for _, l := range e.landmarks {
		mark(l.Position)
	}
	for _, p := range e.lidarPoints {
		mark(p)
	}

	gridMap := engine.GridMap{
		Header:     engine.Header{Stamp: e.lastStamp},
		Resolution: e.gridResolution,
		Length:     r3.Vector{X: side, Y: side},
		Layers:     map[string][]float32{ElevationLayer: elevation},
	}
	return grid, gridMap, nil
}

// CurrentMapPointCloud returns every landmark as a point.
func (e *Engine) CurrentMapPointCloud() (pointcloud.PointCloud, error) {
	if e.terminated {
		return nil, ErrTerminated
	}
	return postprocess.LandmarksToPointCloud(e.landmarks)
}

// Terminate releases the engine. It may be called more than once.
func (e *Engine) Terminate() error {
	if !e.terminated {
		e.logger.Debugw("fake slam engine terminated", "frames_tracked", e.framesTotal, "keyframes", len(e.keyframes))
	}
	e.terminated = true
	return nil
}
