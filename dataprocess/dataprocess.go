// Package dataprocess manages code related to the data-saving process.
package dataprocess

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	pc "go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/spatialmath"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/viam-modules/viam-rgbd-slam/engine"
)

const (
	// SlamTimeFormat is the timestamp format used in the dataprocess.
	SlamTimeFormat = "2006-01-02T15:04:05.0000Z"
)

// CreateTimestampFilename creates an absolute filename with a topic name and timestamp written
// into the filename.
func CreateTimestampFilename(dataDirectory, topicName, fileType string, timeStamp time.Time) string {
	return filepath.Join(dataDirectory, filepath.Base(topicName)+"_data_"+timeStamp.UTC().Format(SlamTimeFormat)+fileType)
}

// WritePCDToFile encodes the pointcloud and then saves it to the passed filename.
func WritePCDToFile(pointcloud pc.PointCloud, filename string) error {
	buf := new(bytes.Buffer)
	if err := pc.ToPCD(pointcloud, buf, pc.PCDBinary); err != nil {
		return err
	}
	return WriteBytesToFile(buf.Bytes(), filename)
}

type keyframeJSON struct {
	ID        int64           `json:"id"`
	Pose      json.RawMessage `json:"pose"`
	Timestamp string          `json:"timestamp"`
}

type landmarkJSON struct {
	ID         int64     `json:"id"`
	KeyframeID int64     `json:"kf_id"`
	Position   r3.Vector `json:"position"`
	Tracked    bool      `json:"tracked"`
}

type mapDataJSON struct {
	FrameID   string         `json:"frame_id"`
	Stamp     string         `json:"stamp"`
	Keyframes []keyframeJSON `json:"keyframes"`
	Landmarks []landmarkJSON `json:"landmarks"`
}

// EncodeMapData returns the JSON encoding of mapData. Keyframe poses use the viam api pose
// encoding.
func EncodeMapData(mapData engine.MapData) ([]byte, error) {
	out := mapDataJSON{
		FrameID:   mapData.Header.FrameID,
		Stamp:     mapData.Header.Stamp.UTC().Format(time.RFC3339Nano),
		Keyframes: make([]keyframeJSON, 0, len(mapData.Keyframes)),
		Landmarks: make([]landmarkJSON, 0, len(mapData.Landmarks)),
	}
	for _, kf := range mapData.Keyframes {
		pose := kf.Pose
		if pose == nil {
			pose = spatialmath.NewZeroPose()
		}
		poseJSON, err := protojson.Marshal(spatialmath.PoseToProtobuf(pose))
		if err != nil {
			return nil, errors.Wrapf(err, "encoding pose of keyframe %d", kf.ID)
		}
		out.Keyframes = append(out.Keyframes, keyframeJSON{
			ID:        kf.ID,
			Pose:      poseJSON,
			Timestamp: kf.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	for _, l := range mapData.Landmarks {
		out.Landmarks = append(out.Landmarks, landmarkJSON{
			ID:         l.ID,
			KeyframeID: l.KeyframeID,
			Position:   l.Position,
			Tracked:    l.Tracked,
		})
	}
	return json.Marshal(out)
}

// MapDataToStruct returns mapData as a map of plain values, as DoCommand responses require.
func MapDataToStruct(mapData engine.MapData) (map[string]interface{}, error) {
	b, err := EncodeMapData(mapData)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteMapDataToFile encodes the map data and then saves it to the passed filename.
func WriteMapDataToFile(mapData engine.MapData, filename string) error {
	b, err := EncodeMapData(mapData)
	if err != nil {
		return err
	}
	return WriteBytesToFile(b, filename)
}

// WriteBytesToFile writes the passed bytes to the passed filename.
func WriteBytesToFile(bytes []byte, filename string) error {
	//nolint:gosec
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(bytes); err != nil {
		return multierr.Combine(err, f.Close())
	}
	if err := w.Flush(); err != nil {
		return multierr.Combine(err, f.Close())
	}
	return f.Close()
}
