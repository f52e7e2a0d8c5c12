package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"
	goutils "go.viam.com/utils"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// ErrClosed is returned by every call made after the engine was terminated or its worker stopped.
var ErrClosed = errors.New("slam engine is closed")

var emptyRequestParams = map[requestParamType]interface{}{}

// requestType defines the backend call that is being made.
type requestType int64

const (
	handleIMU requestType = iota
	computeOdomToMapTransform
	trackRGBD
	handleLidarScan
	mapSnapshot
	traversabilitySnapshot
	currentMapPointCloud
	terminate
)

func (t requestType) String() string {
	switch t {
	case handleIMU:
		return "HandleIMU"
	case computeOdomToMapTransform:
		return "ComputeOdomToMapTransform"
	case trackRGBD:
		return "TrackRGBD"
	case handleLidarScan:
		return "HandleLidarScan"
	case mapSnapshot:
		return "MapSnapshot"
	case traversabilitySnapshot:
		return "TraversabilitySnapshot"
	case currentMapPointCloud:
		return "CurrentMapPointCloud"
	case terminate:
		return "Terminate"
	default:
		return "unknown"
	}
}

// requestParamType defines the type being provided as input to the work.
type requestParamType int64

const (
	reading requestParamType = iota
	depthReading
	query
)

type response struct {
	result interface{}
	err    error
}

type request struct {
	responseChan  chan response
	requestType   requestType
	requestParams map[requestParamType]interface{}
}

type traversability struct {
	grid    OccupancyGrid
	gridMap GridMap
}

/*
Facade makes sure that only one goroutine is calling into the backend at a time. Engines hold
global mutable state and are not reentrant, so every call is queued onto the worker goroutine
started by Start.
*/
type Facade struct {
	backend     Backend
	requestChan chan request

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFacade wraps backend. Start must be called before any other method.
func NewFacade(backend Backend) *Facade {
	return &Facade{
		backend:     backend,
		requestChan: make(chan request),
		closed:      make(chan struct{}),
	}
}

// Start starts the worker goroutine. It stops when ctx is done.
func (f *Facade) Start(ctx context.Context, activeBackgroundWorkers *sync.WaitGroup) {
	activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer activeBackgroundWorkers.Done()
		defer f.markClosed()

		for {
			select {
			case <-ctx.Done():
				return
			case workToDo := <-f.requestChan:
				result, err := workToDo.doWork(f)
				if workToDo.requestType == terminate {
					// requests queued behind terminate must see ErrClosed, not a released engine
					f.markClosed()
					workToDo.responseChan <- response{result: result, err: err}
					return
				}
				workToDo.responseChan <- response{result: result, err: err}
			}
		}
	})
}

func (f *Facade) markClosed() {
	f.closeOnce.Do(func() { close(f.closed) })
}

// HandleIMU forwards an inertial sample to the engine.
func (f *Facade) HandleIMU(ctx context.Context, timeout time.Duration, sample s.IMUSample) error {
	_, err := f.request(ctx, handleIMU, map[requestParamType]interface{}{reading: sample}, timeout)
	return err
}

// ComputeOdomToMapTransform returns the transform from the odometry frame to the map frame for
// an odometry sample.
func (f *Facade) ComputeOdomToMapTransform(
	ctx context.Context,
	timeout time.Duration,
	sample s.OdometrySample,
) (spatialmath.Pose, error) {
	untyped, err := f.request(ctx, computeOdomToMapTransform, map[requestParamType]interface{}{reading: sample}, timeout)
	if err != nil {
		return nil, err
	}

	pose, ok := untyped.(spatialmath.Pose)
	if !ok {
		return nil, errors.New("unable to cast response from engine to a pose")
	}
	return pose, nil
}

// TrackRGBD tracks one synchronized color and depth pair.
func (f *Facade) TrackRGBD(ctx context.Context, timeout time.Duration, rgb, depth s.Frame) (TrackResult, error) {
	requestParams := map[requestParamType]interface{}{
		reading:      rgb,
		depthReading: depth,
	}
	untyped, err := f.request(ctx, trackRGBD, requestParams, timeout)
	if err != nil {
		return TrackResult{}, err
	}

	result, ok := untyped.(TrackResult)
	if !ok {
		return TrackResult{}, errors.New("unable to cast response from engine to a track result")
	}
	return result, nil
}

// HandleLidarScan forwards a point cloud to the engine.
func (f *Facade) HandleLidarScan(ctx context.Context, timeout time.Duration, scan s.LidarScan) error {
	_, err := f.request(ctx, handleLidarScan, map[requestParamType]interface{}{reading: scan}, timeout)
	return err
}

// MapSnapshot returns the keyframes and landmarks of the map restricted by q.
func (f *Facade) MapSnapshot(ctx context.Context, timeout time.Duration, q MapQuery) (MapData, error) {
	untyped, err := f.request(ctx, mapSnapshot, map[requestParamType]interface{}{query: q}, timeout)
	if err != nil {
		return MapData{}, err
	}

	mapData, ok := untyped.(MapData)
	if !ok {
		return MapData{}, errors.New("unable to cast response from engine to map data")
	}
	return mapData, nil
}

// TraversabilitySnapshot returns the current occupancy grid and grid map.
func (f *Facade) TraversabilitySnapshot(ctx context.Context, timeout time.Duration) (OccupancyGrid, GridMap, error) {
	untyped, err := f.request(ctx, traversabilitySnapshot, emptyRequestParams, timeout)
	if err != nil {
		return OccupancyGrid{}, GridMap{}, err
	}

	t, ok := untyped.(traversability)
	if !ok {
		return OccupancyGrid{}, GridMap{}, errors.New("unable to cast response from engine to traversability")
	}
	return t.grid, t.gridMap, nil
}

// CurrentMapPointCloud returns the map points as a point cloud for visualization.
func (f *Facade) CurrentMapPointCloud(ctx context.Context, timeout time.Duration) (pointcloud.PointCloud, error) {
	untyped, err := f.request(ctx, currentMapPointCloud, emptyRequestParams, timeout)
	if err != nil {
		return nil, err
	}

	pc, ok := untyped.(pointcloud.PointCloud)
	if !ok {
		return nil, errors.New("unable to cast response from engine to a pointcloud")
	}
	return pc, nil
}

// Terminate shuts the engine down. Every later call returns ErrClosed.
func (f *Facade) Terminate(ctx context.Context, timeout time.Duration) error {
	_, err := f.request(ctx, terminate, emptyRequestParams, timeout)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	f.markClosed()
	return err
}

// doWork calls the backend method matching the request type with the request's inputs.
func (r *request) doWork(f *Facade) (interface{}, error) {
	switch r.requestType {
	case handleIMU:
		sample, ok := r.requestParams[reading].(s.IMUSample)
		if !ok {
			return nil, errors.New("could not cast inputted reading to type sensors.IMUSample")
		}
		return nil, f.backend.HandleIMU(sample)
	case computeOdomToMapTransform:
		sample, ok := r.requestParams[reading].(s.OdometrySample)
		if !ok {
			return nil, errors.New("could not cast inputted reading to type sensors.OdometrySample")
		}
		return f.backend.ComputeOdomToMapTransform(sample)
	case trackRGBD:
		rgb, ok := r.requestParams[reading].(s.Frame)
		if !ok {
			return nil, errors.New("could not cast inputted rgb reading to type sensors.Frame")
		}
		depth, ok := r.requestParams[depthReading].(s.Frame)
		if !ok {
			return nil, errors.New("could not cast inputted depth reading to type sensors.Frame")
		}
		return f.backend.TrackRGBD(rgb, depth)
	case handleLidarScan:
		scan, ok := r.requestParams[reading].(s.LidarScan)
		if !ok {
			return nil, errors.New("could not cast inputted reading to type sensors.LidarScan")
		}
		return nil, f.backend.HandleLidarScan(scan)
	case mapSnapshot:
		q, ok := r.requestParams[query].(MapQuery)
		if !ok {
			return nil, errors.New("could not cast inputted query to type engine.MapQuery")
		}
		return f.backend.MapSnapshot(q)
	case traversabilitySnapshot:
		grid, gridMap, err := f.backend.TraversabilitySnapshot()
		return traversability{grid: grid, gridMap: gridMap}, err
	case currentMapPointCloud:
		return f.backend.CurrentMapPointCloud()
	case terminate:
		return nil, f.backend.Terminate()
	}
	return nil, errors.Errorf("no worktype found for: %v", r.requestType)
}

// request hands one call to the worker goroutine and waits for its result. The caller must know
// which request types require casting to which response values.
func (f *Facade) request(
	ctxParent context.Context,
	requestType requestType,
	inputs map[requestParamType]interface{},
	timeout time.Duration,
) (interface{}, error) {
	select {
	case <-f.closed:
		return nil, ErrClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctxParent, timeout)
	defer cancel()

	req := request{
		responseChan:  make(chan response, 1),
		requestType:   requestType,
		requestParams: inputs,
	}

	// wait until the worker is free (and timeout if needed)
	select {
	case f.requestChan <- req:
		select {
		case resp := <-req.responseChan:
			return resp.result, resp.err
		case <-ctx.Done():
			msg := "timeout reading from slam engine"
			return nil, multierr.Combine(errors.New(msg), ctx.Err())
		}
	case <-f.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		msg := "timeout writing to slam engine"
		return nil, multierr.Combine(errors.New(msg), ctx.Err())
	}
}
