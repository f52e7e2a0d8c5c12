// Package mapquery answers on-demand requests for the map, landmarks included.
package mapquery

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/viam-rgbd-slam/engine"
	"github.com/viam-modules/viam-rgbd-slam/postprocess"
	"github.com/viam-modules/viam-rgbd-slam/publish"
)

const (
	// TrackedPointsKey restricts the landmarks to the tracked ones.
	TrackedPointsKey = "tracked_points"
	// KeyframeIDKey restricts the landmarks to those observed from one keyframe.
	KeyframeIDKey = "kf_id_for_landmarks"
)

var (
	// ErrRequestNotAMap denotes that the request could not be parsed as a map.
	ErrRequestNotAMap = errors.New("could not parse map request as a map")

	// ErrTrackedPointsNotBool denotes that tracked_points was not a bool.
	ErrTrackedPointsNotBool = errors.New("could not parse provided tracked_points as a bool")

	// ErrKeyframeIDNotInteger denotes that kf_id_for_landmarks was not a whole number.
	ErrKeyframeIDNotInteger = errors.New("could not parse provided kf_id_for_landmarks as a non-negative integer")
)

// Request restricts the landmarks returned by a query.
type Request struct {
	TrackedPointsOnly bool
	// KeyframeID limits landmarks to those observed from one keyframe. Zero means all keyframes.
	KeyframeID int64
}

// Handler serves map queries from an engine.
type Handler struct {
	Engine      engine.Interface
	Timeout     time.Duration
	GlobalFrame string
	Logger      logging.Logger
}

// Handle returns the keyframes and the landmarks matching req.
func (h *Handler) Handle(ctx context.Context, req Request) (engine.MapData, error) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::mapquery::Handle")
	defer span.End()

	h.Logger.Infow("GetMap service called.", "service", publish.ServiceGetMapData,
		"tracked_points", req.TrackedPointsOnly, "kf_id_for_landmarks", req.KeyframeID)

	mapData, err := h.Engine.MapSnapshot(ctx, h.Timeout, engine.MapQuery{
		IncludeLandmarks: true,
		TrackedOnly:      req.TrackedPointsOnly,
		KeyframeID:       req.KeyframeID,
	})
	if err != nil {
		return engine.MapData{}, errors.Wrap(err, "failed to get map data")
	}
	mapData.Header.FrameID = h.GlobalFrame
	mapData.Landmarks = postprocess.FilterLandmarks(mapData.Landmarks, req.TrackedPointsOnly, req.KeyframeID)
	return mapData, nil
}

// ParseDoCommand reads a Request from the value of a DoCommand key. A nil value is the
// unrestricted request.
func ParseDoCommand(value interface{}) (Request, error) {
	var req Request
	if value == nil {
		return req, nil
	}
	fields, ok := value.(map[string]interface{})
	if !ok {
		return Request{}, ErrRequestNotAMap
	}

	if trackedPoints, ok := fields[TrackedPointsKey]; ok {
		b, ok := trackedPoints.(bool)
		if !ok {
			return Request{}, ErrTrackedPointsNotBool
		}
		req.TrackedPointsOnly = b
	}

	if keyframeID, ok := fields[KeyframeIDKey]; ok {
		id, err := toInt64(keyframeID)
		if err != nil {
			return Request{}, err
		}
		req.KeyframeID = id
	}
	return req, nil
}

// toInt64 accepts the numeric types a DoCommand map can carry. Keyframe ids are never negative.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, ErrKeyframeIDNotInteger
		}
		return int64(n), nil
	case int64:
		if n < 0 {
			return 0, ErrKeyframeIDNotInteger
		}
		return n, nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit
		if n != math.Trunc(n) || n < 0 || n >= math.MaxInt64 {
			return 0, ErrKeyframeIDNotInteger
		}
		return int64(n), nil
	default:
		return 0, ErrKeyframeIDNotInteger
	}
}
