// Package rgbdslam implements the front end of an rgbd visual slam service: it feeds color, depth,
// inertial, odometry and lidar data into a slam engine and publishes the transforms, map data and
// traversability grids the engine produces.
package rgbdslam

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	viamgrpc "go.viam.com/rdk/grpc"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"

	"github.com/viam-modules/viam-rgbd-slam/config"
	"github.com/viam-modules/viam-rgbd-slam/dataprocess"
	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/ingest"
	"github.com/viam-modules/viam-rgbd-slam/mapquery"
	"github.com/viam-modules/viam-rgbd-slam/publish"
	"github.com/viam-modules/viam-rgbd-slam/publishing"
	"github.com/viam-modules/viam-rgbd-slam/sensorprocess"
	s "github.com/viam-modules/viam-rgbd-slam/sensors"
	"github.com/viam-modules/viam-rgbd-slam/state"
)

// Model is the model name of the rgbd slam front end.
var (
	Model = resource.NewModel("viam", "slam", "rgbd-frontend")
	// ErrClosed denotes that the slam service method was called on a closed slam resource.
	ErrClosed = errors.Errorf("resource (%s) is closed", Model.String())
)

// DoCommand keys.
const (
	GetMapDataCommand           = "get_map_data"
	IsTrackedCommand            = "is_tracked"
	LatestTransformCommand      = "latest_transform"
	LatestMapDataCommand        = "latest_map_data"
	LatestTraversabilityCommand = "latest_traversability"
	SyncStatsCommand            = "sync_stats"
	SessionIDCommand            = "session_id"
)

const (
	defaultSensorValidationMaxTimeout = 30 * time.Second
	defaultSensorValidationInterval   = time.Second
	visualizationParam                = "visualization"
	// cells at or above this occupancy are reported as occupied
	occupiedThreshold = 65
)

func init() {
	resource.RegisterService(generic.API, Model, resource.Registration[resource.Resource, *config.Config]{
		Constructor: func(
			ctx context.Context,
			deps resource.Dependencies,
			c resource.Config,
			logger logging.Logger,
		) (resource.Resource, error) {
			svc, err := New(ctx, deps, c, logger, Overrides{})
			if err != nil {
				return nil, err
			}
			return svc, nil
		},
	})
}

// Overrides replace parts of the service for testing. Nil fields are built from the config.
type Overrides struct {
	RGB            s.TimedCamera
	Depth          s.TimedCamera
	MovementSensor s.TimedMovementSensor
	Lidar          s.TimedLidar
	Engine         engine.Backend
	Clock          clock.Clock

	SensorValidationMaxTimeout time.Duration
	SensorValidationInterval   time.Duration
}

// Topics are the channels the service publishes on.
type Topics struct {
	Transforms     *publish.Topic[state.TimestampedTransform]
	MapData        *publish.Topic[engine.MapData]
	MapPoints      *publish.Topic[pointcloud.PointCloud]
	Traversability *publish.Topic[engine.OccupancyGrid]
	GridMap        *publish.Topic[engine.GridMap]
}

func newTopics() Topics {
	return Topics{
		Transforms:     publish.NewTopic[state.TimestampedTransform](publish.TopicTransform),
		MapData:        publish.NewTopic[engine.MapData](publish.TopicMapData),
		MapPoints:      publish.NewTopic[pointcloud.PointCloud](publish.TopicMapPoints),
		Traversability: publish.NewTopic[engine.OccupancyGrid](publish.TopicTraversabilityGrid),
		GridMap:        publish.NewTopic[engine.GridMap](publish.TopicGridMap),
	}
}

// Service is the rgbd slam front end.
type Service struct {
	resource.Named
	resource.AlwaysRebuild

	mu     sync.Mutex
	closed bool

	sessionID string
	params    config.OptionalConfigParams
	logger    logging.Logger
	clk       clock.Clock

	facade        *engine.Facade
	state         *state.State
	topics        Topics
	subscriptions *ingest.Subscriptions
	mapQuery      *mapquery.Handler

	cancelSensorProcessFunc func()
	cancelTimersFunc        func()
	cancelFacadeFunc        func()
	sensorProcessWorkers    sync.WaitGroup
	timerWorkers            sync.WaitGroup
	facadeWorkers           sync.WaitGroup
}

// New returns a new rgbd slam service.
func New(
	ctx context.Context,
	deps resource.Dependencies,
	c resource.Config,
	logger logging.Logger,
	overrides Overrides,
) (*Service, error) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::Service::New")
	defer span.End()

	svcConfig, err := resource.NativeConfig[*config.Config](c)
	if err != nil {
		return nil, err
	}
	if _, err := svcConfig.Validate(c.ResourceName().String()); err != nil {
		return nil, err
	}
	params := config.GetOptionalParameters(svcConfig, logger)

	clk := overrides.Clock
	if clk == nil {
		clk = clock.New()
	}

	rgb, depth, movementSensor, lidar, err := newSensors(ctx, deps, svcConfig, params, overrides, logger)
	if err != nil {
		return nil, err
	}

	backend := overrides.Engine
	if backend == nil {
		if backend, err = newBackend(svcConfig, params, logger); err != nil {
			return nil, err
		}
	}

	cancelSensorProcessCtx, cancelSensorProcessFunc := context.WithCancel(context.Background())
	cancelTimersCtx, cancelTimersFunc := context.WithCancel(context.Background())
	cancelFacadeCtx, cancelFacadeFunc := context.WithCancel(context.Background())

	svc := &Service{
		Named:                   c.ResourceName().AsNamed(),
		sessionID:               uuid.New().String(),
		params:                  params,
		logger:                  logger,
		clk:                     clk,
		facade:                  engine.NewFacade(backend),
		state:                   state.New(params.GlobalFrame, params.OdomFrame),
		topics:                  newTopics(),
		cancelSensorProcessFunc: cancelSensorProcessFunc,
		cancelTimersFunc:        cancelTimersFunc,
		cancelFacadeFunc:        cancelFacadeFunc,
	}
	svc.facade.Start(cancelFacadeCtx, &svc.facadeWorkers)

	defer func() {
		if err != nil {
			logger.Errorw("New() hit error, closing...", "error", err)
			if err := svc.Close(ctx); err != nil {
				logger.Errorw("error closing out after error", "error", err)
			}
		}
	}()

	validationMaxTimeout := overrides.SensorValidationMaxTimeout
	if validationMaxTimeout == 0 {
		validationMaxTimeout = defaultSensorValidationMaxTimeout
	}
	validationInterval := overrides.SensorValidationInterval
	if validationInterval == 0 {
		validationInterval = defaultSensorValidationInterval
	}
	if !params.EnableTraversability {
		lidar = nil
	}
	if err = validateSensors(ctx, rgb, depth, movementSensor, lidar, validationMaxTimeout, validationInterval, logger); err != nil {
		return nil, err
	}

	svc.subscriptions = ingest.NewSubscriptions(&ingest.Deps{
		Engine:           svc.facade,
		State:            svc.state,
		Broadcaster:      publish.TransformPublisherFunc(svc.topics.Transforms.Publish),
		PointClouds:      svc.pointCloudPublisher(),
		RosVisualization: params.RosVisualization,
		Timeout:          params.EngineTimeout,
		GlobalFrame:      params.GlobalFrame,
		OdomFrame:        params.OdomFrame,
		Logger:           logger,
	}, params.SyncQueueSize, params.SyncTolerance)

	svc.mapQuery = &mapquery.Handler{
		Engine:      svc.facade,
		Timeout:     params.EngineTimeout,
		GlobalFrame: params.GlobalFrame,
		Logger:      logger,
	}

	svc.initTimers(cancelTimersCtx)

	spConfig := sensorprocess.Config{
		Handlers: svc.subscriptions,
		RGB:      rgb,
		Depth:    depth,
		Logger:   logger,
	}
	if movementSensor != nil {
		spConfig.MovementSensor = movementSensor
	}
	if lidar != nil {
		spConfig.Lidar = lidar
	}
	spConfig.Start(cancelSensorProcessCtx, &svc.sensorProcessWorkers)

	logger.Infow("rgbd slam session started", "session_id", svc.sessionID, "engine", params.Engine,
		"traversability", params.EnableTraversability, "ros_visualization", params.RosVisualization)
	return svc, nil
}

// newSensors returns the configured sensors, preferring overrides. The movement sensor and lidar
// are nil when not configured.
func newSensors(
	ctx context.Context,
	deps resource.Dependencies,
	svcConfig *config.Config,
	params config.OptionalConfigParams,
	overrides Overrides,
	logger logging.Logger,
) (s.TimedCamera, s.TimedCamera, s.TimedMovementSensor, s.TimedLidar, error) {
	var err error
	rgb := overrides.RGB
	if rgb == nil {
		if rgb, err = s.NewRGBCamera(ctx, deps, svcConfig.RGBCamera, params.CameraDataFrequencyHz, logger); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	depth := overrides.Depth
	if depth == nil {
		if depth, err = s.NewDepthCamera(ctx, deps, svcConfig.DepthCamera, params.CameraDataFrequencyHz, logger); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	movementSensor := overrides.MovementSensor
	if movementSensor == nil && svcConfig.MovementSensor != "" {
		if movementSensor, err = s.NewMovementSensor(ctx, deps, svcConfig.MovementSensor, params.OdomFrame,
			params.RobotBaseFrame, params.MovementSensorDataFrequencyHz, logger); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if movementSensor == nil {
		logger.Info("no movement sensor configured, proceeding without IMU and without odometer")
	}

	lidar := overrides.Lidar
	if lidar == nil && svcConfig.Lidar != "" && params.EnableTraversability {
		if lidar, err = s.NewLidar(ctx, deps, svcConfig.Lidar, params.LidarDataFrequencyHz, logger); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return rgb, depth, movementSensor, lidar, nil
}

// validateSensors waits until every sensor whose loop will be started returns a reading. The
// movement sensor is checked for each reading type it supports.
func validateSensors(
	ctx context.Context,
	rgb, depth s.TimedCamera,
	movementSensor s.TimedMovementSensor,
	lidar s.TimedLidar,
	maxTimeout, interval time.Duration,
	logger logging.Logger,
) error {
	for _, cam := range []s.TimedCamera{rgb, depth} {
		if err := s.ValidateGetData(ctx, cam.Name(), func(ctx context.Context) error {
			_, err := cam.TimedFrame(ctx)
			return err
		}, maxTimeout, interval, logger); err != nil {
			return errors.Wrapf(err, "failed to get data from camera %v", cam.Name())
		}
	}

	if movementSensor != nil {
		properties := movementSensor.Properties()
		if properties.IMUSupported {
			if err := s.ValidateGetData(ctx, movementSensor.Name(), func(ctx context.Context) error {
				_, err := movementSensor.TimedIMUSample(ctx)
				return err
			}, maxTimeout, interval, logger); err != nil {
				return errors.Wrapf(err, "failed to get IMU data from movement sensor %v", movementSensor.Name())
			}
		}
		if properties.OdometerSupported {
			if err := s.ValidateGetData(ctx, movementSensor.Name(), func(ctx context.Context) error {
				_, err := movementSensor.TimedOdometrySample(ctx)
				return err
			}, maxTimeout, interval, logger); err != nil {
				return errors.Wrapf(err, "failed to get odometry data from movement sensor %v", movementSensor.Name())
			}
		}
	}

	if lidar != nil {
		if err := s.ValidateGetData(ctx, lidar.Name(), func(ctx context.Context) error {
			_, err := lidar.TimedLidarScan(ctx)
			return err
		}, maxTimeout, interval, logger); err != nil {
			return errors.Wrapf(err, "failed to get data from lidar %v", lidar.Name())
		}
	}
	return nil
}

// newBackend builds the configured engine backend. visualization is forwarded as a backend param.
func newBackend(svcConfig *config.Config, params config.OptionalConfigParams, logger logging.Logger) (engine.Backend, error) {
	constructor, err := engine.Lookup(params.Engine)
	if err != nil {
		return nil, err
	}
	backendParams := make(map[string]string, len(svcConfig.ConfigParams)+1)
	for k, v := range svcConfig.ConfigParams {
		backendParams[k] = v
	}
	backendParams[visualizationParam] = strconv.FormatBool(params.Visualization)

	backend, err := constructor(backendParams, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "creating slam engine %v", params.Engine)
	}
	return backend, nil
}

// pointCloudPublisher discards map points unless ros visualization is enabled.
func (svc *Service) pointCloudPublisher() publish.PointCloudPublisher {
	if !svc.params.RosVisualization {
		return publish.Disabled{}
	}
	if svc.params.DataDirectory == "" {
		return publish.PointCloudPublisherFunc(svc.topics.MapPoints.Publish)
	}
	sink := publish.NewPCDFileSink(svc.params.DataDirectory, publish.TopicMapPoints, svc.clk, svc.logger)
	return publish.PointCloudPublisherFunc(publish.Multi(svc.topics.MapPoints.Publish, sink.PublishPointCloud))
}

func (svc *Service) mapDataPublisher() publish.MapDataPublisher {
	if svc.params.DataDirectory == "" {
		return publish.MapDataPublisherFunc(svc.topics.MapData.Publish)
	}
	sink := publish.NewJSONFileSink(svc.params.DataDirectory, publish.TopicMapData, svc.clk, svc.logger)
	return publish.MapDataPublisherFunc(publish.Multi(svc.topics.MapData.Publish, sink.PublishMapData))
}

// initTimers starts the map data timer and, when traversability is enabled, the traversability
// timer.
func (svc *Service) initTimers(ctx context.Context) {
	mapDataPublisher := &publishing.MapDataPublisher{
		Engine:      svc.facade,
		State:       svc.state,
		Publisher:   svc.mapDataPublisher(),
		Timeout:     svc.params.EngineTimeout,
		GlobalFrame: svc.params.GlobalFrame,
		Logger:      svc.logger,
	}
	svc.startTimer(ctx, svc.params.MapDataRate, mapDataPublisher.Tick)

	grids, gridMaps := svc.traversabilityPublishers()
	traversabilityPublisher := &publishing.TraversabilityPublisher{
		Engine:      svc.facade,
		State:       svc.state,
		Grids:       grids,
		GridMaps:    gridMaps,
		Timeout:     svc.params.EngineTimeout,
		GlobalFrame: svc.params.GlobalFrame,
		RobotX:      svc.params.RobotX,
		RobotY:      svc.params.RobotY,
		Logger:      svc.logger,
	}
	if svc.params.EnableTraversability {
		svc.startTimer(ctx, svc.params.TraversabilityRate, traversabilityPublisher.Tick)
	}
}

// traversabilityPublishers returns the occupancy grid and grid map publishers. Both discard when
// traversability is disabled.
func (svc *Service) traversabilityPublishers() (publish.OccupancyGridPublisher, publish.GridMapPublisher) {
	if !svc.params.EnableTraversability {
		return publish.Disabled{}, publish.Disabled{}
	}
	return publish.OccupancyGridPublisherFunc(svc.topics.Traversability.Publish),
		publish.GridMapPublisherFunc(svc.topics.GridMap.Publish)
}

func (svc *Service) startTimer(ctx context.Context, period time.Duration, tick func(ctx context.Context)) {
	svc.timerWorkers.Add(1)
	go func() {
		defer svc.timerWorkers.Done()
		publishing.Run(ctx, svc.clk, period, tick)
	}()
}

// Topics returns the channels the service publishes on.
func (svc *Service) Topics() Topics {
	return svc.topics
}

// Subscriptions returns the input handlers of the service.
func (svc *Service) Subscriptions() *ingest.Subscriptions {
	return svc.subscriptions
}

// SessionID returns the id of the tracking session.
func (svc *Service) SessionID() string {
	return svc.sessionID
}

// GetMapData answers an on-demand map query.
func (svc *Service) GetMapData(ctx context.Context, req mapquery.Request) (engine.MapData, error) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::Service::GetMapData")
	defer span.End()
	if svc.isClosed() {
		svc.logger.Warn("GetMapData called after closed")
		return engine.MapData{}, ErrClosed
	}
	return svc.mapQuery.Handle(ctx, req)
}

func (svc *Service) isClosed() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.closed
}

// DoCommand receives arbitrary commands.
func (svc *Service) DoCommand(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	if svc.isClosed() {
		svc.logger.Warn("DoCommand called after closed")
		return nil, ErrClosed
	}

	if value, ok := req[GetMapDataCommand]; ok {
		query, err := mapquery.ParseDoCommand(value)
		if err != nil {
			return nil, err
		}
		mapData, err := svc.GetMapData(ctx, query)
		if err != nil {
			return nil, err
		}
		out, err := dataprocess.MapDataToStruct(mapData)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{GetMapDataCommand: out}, nil
	}

	if _, ok := req[IsTrackedCommand]; ok {
		return map[string]interface{}{IsTrackedCommand: svc.state.Tracking.IsSet()}, nil
	}

	if _, ok := req[LatestTransformCommand]; ok {
		return map[string]interface{}{LatestTransformCommand: dataprocess.TransformToStruct(svc.state.Transform.Read())}, nil
	}

	if _, ok := req[LatestMapDataCommand]; ok {
		mapData, ok := svc.topics.MapData.Latest()
		if !ok {
			return map[string]interface{}{LatestMapDataCommand: nil}, nil
		}
		out, err := dataprocess.MapDataToStruct(mapData)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{LatestMapDataCommand: out}, nil
	}

	if _, ok := req[LatestTraversabilityCommand]; ok {
		grid, ok := svc.topics.Traversability.Latest()
		if !ok {
			return map[string]interface{}{LatestTraversabilityCommand: nil}, nil
		}
		return map[string]interface{}{LatestTraversabilityCommand: dataprocess.OccupancyGridToStruct(grid, occupiedThreshold)}, nil
	}

	if _, ok := req[SyncStatsCommand]; ok {
		stats := svc.subscriptions.SyncStats()
		return map[string]interface{}{SyncStatsCommand: map[string]interface{}{
			"matched":       stats.Matched,
			"dropped_rgb":   stats.DroppedRGB,
			"dropped_depth": stats.DroppedDepth,
		}}, nil
	}

	if _, ok := req[SessionIDCommand]; ok {
		return map[string]interface{}{SessionIDCommand: svc.sessionID}, nil
	}

	return nil, viamgrpc.UnimplementedError
}

// Close stops the sensor processes, then the timers, then the slam engine.
func (svc *Service) Close(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.closed {
		svc.logger.Warn("Close() called multiple times")
		return nil
	}
	svc.logger.Info("Closing rgbd slam module")

	// stop sensor process workers so no callback reaches the engine after it is released
	svc.cancelSensorProcessFunc()
	svc.sensorProcessWorkers.Wait()

	// stop timers
	svc.cancelTimersFunc()
	svc.timerWorkers.Wait()

	// terminate slam engine
	err := svc.facade.Terminate(ctx, svc.params.EngineTimeout)
	if err != nil {
		svc.logger.Errorw("close hit error", "error", err)
	}

	// stop facade workers
	svc.cancelFacadeFunc()
	svc.facadeWorkers.Wait()
	svc.closed = true

	svc.logger.Info("Closing complete")
	return nil
}
