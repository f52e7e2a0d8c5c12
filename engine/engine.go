// Package engine describes the visual SLAM engine consumed by the rgbd front end and
// serialises every call into it onto a single goroutine.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// ErrUnknownBackend is returned by Lookup when no backend was registered under a name.
var ErrUnknownBackend = errors.New("unknown slam engine backend")

// Header identifies the frame a published message is expressed in and the time it is valid for.
type Header struct {
	FrameID string
	Stamp   time.Time
}

// TrackResult is the outcome of tracking one rgb/depth pair.
type TrackResult struct {
	Success bool
	// Pose is the camera pose in the map frame, only meaningful when Success is true.
	Pose spatialmath.Pose
}

// Keyframe is a pose of the camera the engine kept in its map.
type Keyframe struct {
	ID        int64
	Pose      spatialmath.Pose
	Timestamp time.Time
}

// Landmark is a 3D map point observed from a keyframe. Position is in mm in the map frame.
type Landmark struct {
	ID         int64
	KeyframeID int64
	Position   r3.Vector
	Tracked    bool
}

// MapData is a snapshot of the keyframes and landmarks of the map.
type MapData struct {
	Header    Header
	Keyframes []Keyframe
	Landmarks []Landmark
}

// MapQuery restricts a map snapshot.
type MapQuery struct {
	IncludeLandmarks bool
	TrackedOnly      bool
	// KeyframeID limits landmarks to those observed from one keyframe. Zero means all keyframes.
	KeyframeID int64
}

// OccupancyGrid is a 2D grid in row-major order. Cells hold -1 for unknown, or an occupancy
// probability from 0 to 100.
type OccupancyGrid struct {
	Header     Header
	Resolution float64
	Width      int
	Height     int
	Origin     r3.Vector
	Data       []int8
}

// GridMap is a multi-layer 2.5D grid of square cells of side Resolution.
type GridMap struct {
	Header     Header
	Resolution float64
	Length     r3.Vector
	Layers     map[string][]float32
}

// Interface defines the calls the front end makes into a SLAM engine. Every call is bounded by
// timeout.
type Interface interface {
	HandleIMU(ctx context.Context, timeout time.Duration, sample s.IMUSample) error
	ComputeOdomToMapTransform(ctx context.Context, timeout time.Duration, sample s.OdometrySample) (spatialmath.Pose, error)
	TrackRGBD(ctx context.Context, timeout time.Duration, rgb, depth s.Frame) (TrackResult, error)
	HandleLidarScan(ctx context.Context, timeout time.Duration, scan s.LidarScan) error
	MapSnapshot(ctx context.Context, timeout time.Duration, query MapQuery) (MapData, error)
	TraversabilitySnapshot(ctx context.Context, timeout time.Duration) (OccupancyGrid, GridMap, error)
	CurrentMapPointCloud(ctx context.Context, timeout time.Duration) (pointcloud.PointCloud, error)
	Terminate(ctx context.Context, timeout time.Duration) error
}

// Backend is an engine implementation. Backends are not safe for concurrent use; the Facade
// guarantees only one call is in flight at a time.
type Backend interface {
	HandleIMU(sample s.IMUSample) error
	ComputeOdomToMapTransform(sample s.OdometrySample) (spatialmath.Pose, error)
	TrackRGBD(rgb, depth s.Frame) (TrackResult, error)
	HandleLidarScan(scan s.LidarScan) error
	MapSnapshot(query MapQuery) (MapData, error)
	TraversabilitySnapshot() (OccupancyGrid, GridMap, error)
	CurrentMapPointCloud() (pointcloud.PointCloud, error)
	Terminate() error
}

// BackendConstructor builds a backend from the free form engine parameters of the config.
type BackendConstructor func(params map[string]string, logger logging.Logger) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]BackendConstructor{}
)

// Register makes a backend available under name. It panics if name is already taken.
func Register(name string, constructor BackendConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("slam engine backend %q registered twice", name))
	}
	registry[name] = constructor
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (BackendConstructor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	constructor, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", name)
	}
	return constructor, nil
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
