package publish

import (
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"

	"github.com/viam-modules/viam-rgbd-slam/dataprocess"
	"github.com/viam-modules/viam-rgbd-slam/engine"
)

// PCDFileSink saves every published point cloud as a PCD file in a directory.
type PCDFileSink struct {
	dir    string
	topic  string
	clk    clock.Clock
	logger logging.Logger
}

// NewPCDFileSink returns a sink writing files named after topic into dir.
func NewPCDFileSink(dir, topic string, clk clock.Clock, logger logging.Logger) *PCDFileSink {
	return &PCDFileSink{dir: dir, topic: topic, clk: clk, logger: logger}
}

// PublishPointCloud writes cloud to a new file stamped with the current time.
func (sink *PCDFileSink) PublishPointCloud(cloud pointcloud.PointCloud) error {
	if cloud == nil {
		return errors.New("cannot save a nil point cloud")
	}
	filename := dataprocess.CreateTimestampFilename(sink.dir, sink.topic, ".pcd", sink.clk.Now())
	if err := dataprocess.WritePCDToFile(cloud, filename); err != nil {
		return errors.Wrapf(err, "saving %v", filepath.Base(filename))
	}
	sink.logger.Debugw("saved point cloud", "file", filename, "points", cloud.Size())
	return nil
}

// JSONFileSink saves every published map snapshot as a JSON file in a directory.
type JSONFileSink struct {
	dir    string
	topic  string
	clk    clock.Clock
	logger logging.Logger
}

// NewJSONFileSink returns a sink writing files named after topic into dir.
func NewJSONFileSink(dir, topic string, clk clock.Clock, logger logging.Logger) *JSONFileSink {
	return &JSONFileSink{dir: dir, topic: topic, clk: clk, logger: logger}
}

// PublishMapData writes mapData to a new file stamped with its header time, or with the current
// time when the header has none.
func (sink *JSONFileSink) PublishMapData(mapData engine.MapData) error {
	stamp := mapData.Header.Stamp
	if stamp.IsZero() {
		stamp = sink.clk.Now()
	}
	filename := dataprocess.CreateTimestampFilename(sink.dir, sink.topic, ".json", stamp)
	if err := dataprocess.WriteMapDataToFile(mapData, filename); err != nil {
		return errors.Wrapf(err, "saving %v", filepath.Base(filename))
	}
	sink.logger.Debugw("saved map data", "file", filename, "keyframes", len(mapData.Keyframes))
	return nil
}
