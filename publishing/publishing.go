// Package publishing runs the periodic publishers of the front end.
package publishing

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/postprocess"
	"github.com/viam-modules/viam-rgbd-slam/publish"
	"github.com/viam-modules/viam-rgbd-slam/state"
)

// Run calls tick every period until ctx is done. A tick that runs longer than period delays the
// next one rather than queueing more.
func Run(ctx context.Context, clk clock.Clock, period time.Duration, tick func(ctx context.Context)) {
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// a tick and a cancellation can be ready together
		if ctx.Err() != nil {
			return
		}
		tick(ctx)
	}
}

// MapDataPublisher publishes a keyframe snapshot of the map once tracking was established.
type MapDataPublisher struct {
	Engine      engine.Interface
	State       *state.State
	Publisher   publish.MapDataPublisher
	Timeout     time.Duration
	GlobalFrame string
	Logger      logging.Logger
}

// Tick publishes one map snapshot. Ticks before tracking was established do nothing, and engine
// failures skip the tick.
func (p *MapDataPublisher) Tick(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::publishing::MapDataPublisher::Tick")
	defer span.End()

	if !p.State.Tracking.IsSet() {
		return
	}

	mapData, err := p.Engine.MapSnapshot(ctx, p.Timeout, engine.MapQuery{IncludeLandmarks: false})
	if err != nil {
		p.Logger.Warnw("skipping map data tick", "topic", publish.TopicMapData, "error", err)
		return
	}
	mapData.Header.FrameID = p.GlobalFrame

	p.Logger.Infow("Publishing map data", "topic", publish.TopicMapData, "keyframes", len(mapData.Keyframes))
	if err := p.Publisher.PublishMapData(mapData); err != nil {
		p.Logger.Warnw("failed to publish map data", "topic", publish.TopicMapData, "error", err)
	}
}

// TraversabilityPublisher publishes the occupancy grid and grid map built by the engine.
type TraversabilityPublisher struct {
	Engine      engine.Interface
	State       *state.State
	Grids       publish.OccupancyGridPublisher
	GridMaps    publish.GridMapPublisher
	Timeout     time.Duration
	GlobalFrame string
	// RobotX and RobotY are added to the grid origin, in m.
	RobotX float64
	RobotY float64
	Logger logging.Logger
}

// Tick publishes one traversability snapshot, stamped with the time of the latest odometry
// transform. The grid origin is moved by the robot offset.
func (p *TraversabilityPublisher) Tick(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::publishing::TraversabilityPublisher::Tick")
	defer span.End()

	stamp := p.State.Transform.Timestamp()

	grid, gridMap, err := p.Engine.TraversabilitySnapshot(ctx, p.Timeout)
	if err != nil {
		p.Logger.Warnw("skipping traversability tick", "topic", publish.TopicTraversabilityGrid, "error", err)
		return
	}

	grid = postprocess.StampOccupancyGrid(postprocess.OffsetGrid(grid, p.RobotX, p.RobotY), p.GlobalFrame, stamp)
	gridMap = postprocess.StampGridMap(gridMap, p.GlobalFrame, stamp)

	if err := p.Grids.PublishOccupancyGrid(grid); err != nil {
		p.Logger.Warnw("failed to publish occupancy grid", "topic", publish.TopicTraversabilityGrid, "error", err)
	}
	if err := p.GridMaps.PublishGridMap(gridMap); err != nil {
		p.Logger.Warnw("failed to publish grid map", "topic", publish.TopicGridMap, "error", err)
	}
}
