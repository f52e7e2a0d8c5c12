package mapquery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/test"

	"github.com/viam-modules/viam-rgbd-slam/engine"
)

func TestHandle(t *testing.T) {
	landmarks := []engine.Landmark{
		{ID: 1, KeyframeID: 1, Position: r3.Vector{X: 1}, Tracked: true},
		{ID: 2, KeyframeID: 1, Position: r3.Vector{X: 2}, Tracked: false},
		{ID: 3, KeyframeID: 2, Position: r3.Vector{X: 3}, Tracked: true},
	}

	newHandler := func(t *testing.T, queries *[]engine.MapQuery) *Handler {
		mock := &engine.Mock{}
		mock.MapSnapshotFunc = func(ctx context.Context, timeout time.Duration, query engine.MapQuery) (engine.MapData, error) {
			*queries = append(*queries, query)
			// ignores the restrictions so the handler has to filter
			return engine.MapData{
				Keyframes: []engine.Keyframe{{ID: 1, Pose: spatialmath.NewZeroPose()}, {ID: 2, Pose: spatialmath.NewZeroPose()}},
				Landmarks: landmarks,
			}, nil
		}
		return &Handler{Engine: mock, Timeout: time.Second, GlobalFrame: "map", Logger: logging.NewTestLogger(t)}
	}

	t.Run("an unrestricted request returns every landmark", func(t *testing.T) {
		var queries []engine.MapQuery
		h := newHandler(t, &queries)
		mapData, err := h.Handle(context.Background(), Request{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, queries, test.ShouldResemble, []engine.MapQuery{{IncludeLandmarks: true}})
		test.That(t, len(mapData.Keyframes), test.ShouldEqual, 2)
		test.That(t, mapData.Landmarks, test.ShouldResemble, landmarks)
		test.That(t, mapData.Header.FrameID, test.ShouldEqual, "map")
	})

	t.Run("tracked points only", func(t *testing.T) {
		var queries []engine.MapQuery
		h := newHandler(t, &queries)
		mapData, err := h.Handle(context.Background(), Request{TrackedPointsOnly: true})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, queries[0].TrackedOnly, test.ShouldBeTrue)
		test.That(t, len(mapData.Landmarks), test.ShouldEqual, 2)
		for _, l := range mapData.Landmarks {
			test.That(t, l.Tracked, test.ShouldBeTrue)
		}
	})

	t.Run("one keyframe", func(t *testing.T) {
		var queries []engine.MapQuery
		h := newHandler(t, &queries)
		mapData, err := h.Handle(context.Background(), Request{TrackedPointsOnly: true, KeyframeID: 1})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, queries[0].KeyframeID, test.ShouldEqual, int64(1))
		test.That(t, mapData.Landmarks, test.ShouldResemble, landmarks[:1])
	})

	t.Run("engine errors are returned", func(t *testing.T) {
		mock := &engine.Mock{}
		mock.MapSnapshotFunc = func(ctx context.Context, timeout time.Duration, query engine.MapQuery) (engine.MapData, error) {
			return engine.MapData{}, errors.New("busy")
		}
		h := &Handler{Engine: mock, Timeout: time.Second, Logger: logging.NewTestLogger(t)}
		_, err := h.Handle(context.Background(), Request{})
		test.That(t, err, test.ShouldBeError, "failed to get map data: busy")
	})
}

func TestParseDoCommand(t *testing.T) {
	req, err := ParseDoCommand(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req, test.ShouldResemble, Request{})

	req, err = ParseDoCommand(true)
	test.That(t, err, test.ShouldEqual, ErrRequestNotAMap)
	test.That(t, req, test.ShouldResemble, Request{})

	req, err = ParseDoCommand(map[string]interface{}{TrackedPointsKey: true, KeyframeIDKey: 4.0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req, test.ShouldResemble, Request{TrackedPointsOnly: true, KeyframeID: 4})

	req, err = ParseDoCommand(map[string]interface{}{KeyframeIDKey: 7})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req, test.ShouldResemble, Request{KeyframeID: 7})

	_, err = ParseDoCommand(map[string]interface{}{TrackedPointsKey: "yes"})
	test.That(t, err, test.ShouldEqual, ErrTrackedPointsNotBool)

	_, err = ParseDoCommand(map[string]interface{}{KeyframeIDKey: 1.5})
	test.That(t, err, test.ShouldEqual, ErrKeyframeIDNotInteger)

	_, err = ParseDoCommand(map[string]interface{}{KeyframeIDKey: "1"})
	test.That(t, err, test.ShouldEqual, ErrKeyframeIDNotInteger)

	for _, id := range []interface{}{1e20, math.Inf(1), math.NaN(), -3.0, -3, int64(-3)} {
		_, err = ParseDoCommand(map[string]interface{}{KeyframeIDKey: id})
		test.That(t, err, test.ShouldEqual, ErrKeyframeIDNotInteger)
	}
}
