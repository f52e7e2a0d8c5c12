package dataprocess

import (
	"time"

	"go.viam.com/rdk/spatialmath"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/state"
)

// PoseToStruct returns pose as a map of plain values. Position is in mm and the orientation is an
// orientation vector with theta in degrees.
func PoseToStruct(pose spatialmath.Pose) map[string]interface{} {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	point := pose.Point()
	ov := pose.Orientation().OrientationVectorDegrees()
	return map[string]interface{}{
		"x":     point.X,
		"y":     point.Y,
		"z":     point.Z,
		"o_x":   ov.OX,
		"o_y":   ov.OY,
		"o_z":   ov.OZ,
		"theta": ov.Theta,
	}
}

// TransformToStruct returns tf as a map of plain values, as DoCommand responses require.
func TransformToStruct(tf state.TimestampedTransform) map[string]interface{} {
	return map[string]interface{}{
		"parent_frame": tf.ParentFrame,
		"child_frame":  tf.ChildFrame,
		"stamp":        tf.Timestamp.UTC().Format(time.RFC3339Nano),
		"pose":         PoseToStruct(tf.Pose),
	}
}

// OccupancyGridToStruct summarizes grid as a map of plain values: its geometry and how many cells
// are occupied, free and unknown. Cells at or above occupiedThreshold count as occupied.
func OccupancyGridToStruct(grid engine.OccupancyGrid, occupiedThreshold int8) map[string]interface{} {
	var occupied, free, unknown int
	for _, cell := range grid.Data {
		switch {
		case cell < 0:
			unknown++
		case cell >= occupiedThreshold:
			occupied++
		default:
			free++
		}
	}
	return map[string]interface{}{
		"frame_id":   grid.Header.FrameID,
		"stamp":      grid.Header.Stamp.UTC().Format(time.RFC3339Nano),
		"resolution": grid.Resolution,
		"width":      grid.Width,
		"height":     grid.Height,
		"origin_x":   grid.Origin.X,
		"origin_y":   grid.Origin.Y,
		"occupied":   occupied,
		"free":       free,
		"unknown":    unknown,
	}
}
