// Package postprocess contains the transforms applied to engine output before it is published.
package postprocess

import (
	"image/color"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/pointcloud"

	"github.com/viam-modules/viam-rgbd-slam/engine"
)

const (
	fullConfidence    = 100
	partialConfidence = 50
)

// OffsetGrid returns grid with its origin moved by dx and dy, in m. The cell data is shared with
// the input.
func OffsetGrid(grid engine.OccupancyGrid, dx, dy float64) engine.OccupancyGrid {
	grid.Origin = grid.Origin.Add(r3.Vector{X: dx, Y: dy})
	return grid
}

// StampOccupancyGrid sets the frame and time of grid.
func StampOccupancyGrid(grid engine.OccupancyGrid, frameID string, stamp time.Time) engine.OccupancyGrid {
	grid.Header = engine.Header{FrameID: frameID, Stamp: stamp}
	return grid
}

// StampGridMap sets the frame and time of gridMap.
func StampGridMap(gridMap engine.GridMap, frameID string, stamp time.Time) engine.GridMap {
	gridMap.Header = engine.Header{FrameID: frameID, Stamp: stamp}
	return gridMap
}

// FilterLandmarks returns the landmarks that are tracked when trackedOnly is set and observed
// from keyframeID when it is non-zero. The input is not modified.
func FilterLandmarks(landmarks []engine.Landmark, trackedOnly bool, keyframeID int64) []engine.Landmark {
	filtered := make([]engine.Landmark, 0, len(landmarks))
	for _, l := range landmarks {
		if trackedOnly && !l.Tracked {
			continue
		}
		if keyframeID != 0 && l.KeyframeID != keyframeID {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered
}

/*
LandmarksToPointCloud converts landmarks into a point cloud.

Viam expects pointcloud data with fields "x y z" or "x y z rgb". If color data is included, Viam's
services read the blue channel as a confidence score from 1-100. Tracked landmarks get full
confidence, the others half.
*/
func LandmarksToPointCloud(landmarks []engine.Landmark) (pointcloud.PointCloud, error) {
	pc := pointcloud.NewWithPrealloc(len(landmarks))
	for _, l := range landmarks {
		confidence := uint8(partialConfidence)
		if l.Tracked {
			confidence = fullConfidence
		}
		if err := pc.Set(l.Position, pointcloud.NewColoredData(color.NRGBA{B: confidence, R: confidence})); err != nil {
			return nil, err
		}
	}
	return pc, nil
}
