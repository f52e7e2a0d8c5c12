package sensors

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	rdkutils "go.viam.com/rdk/utils"
	"go.viam.com/rdk/utils/contextutils"
)

// ImageSource is the part of a camera used to capture frames.
type ImageSource interface {
	Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error)
}

// TimedCamera describes a camera that reports the time its frames are from.
type TimedCamera interface {
	TimedSensor
	TimedFrame(ctx context.Context) (Frame, error)
}

// Camera represents an RGB or depth camera.
type Camera struct {
	name            string
	dataFrequencyHz int
	mimeType        string
	frameID         string
	Camera          ImageSource
}

// NewCameraFromSource returns a Camera around an already resolved image source.
func NewCameraFromSource(name string, src ImageSource, mimeType, frameID string, dataFrequencyHz int) Camera {
	return Camera{
		name:            name,
		dataFrequencyHz: dataFrequencyHz,
		mimeType:        mimeType,
		frameID:         frameID,
		Camera:          src,
	}
}

// Name returns the name of the camera.
func (cam Camera) Name() string {
	return cam.name
}

// DataFrequencyHz returns the rate at which the camera is polled.
func (cam Camera) DataFrequencyHz() int {
	return cam.dataFrequencyHz
}

// TimedFrame returns the next frame from the camera and the time it is from.
func (cam Camera) TimedFrame(ctx context.Context) (Frame, error) {
	ctxWithMetadata, md := contextutils.ContextWithMetadata(ctx)
	data, metadata, err := cam.Camera.Image(ctxWithMetadata, cam.mimeType, nil)
	if err != nil {
		return Frame{}, errors.Wrap(err, "Image error")
	}

	t, _, err := readingTime(md)
	if err != nil {
		return Frame{}, err
	}

	mimeType := metadata.MimeType
	if mimeType == "" {
		mimeType = cam.mimeType
	}
	return Frame{Data: data, MimeType: mimeType, FrameID: cam.frameID, ReadingTime: t}, nil
}

// NewRGBCamera returns the named color camera from the dependencies.
func NewRGBCamera(
	ctx context.Context,
	deps resource.Dependencies,
	cameraName string,
	dataFrequencyHz int,
	logger logging.Logger,
) (TimedCamera, error) {
	return newCamera(ctx, deps, cameraName, rdkutils.MimeTypeJPEG, dataFrequencyHz, logger)
}

// NewDepthCamera returns the named depth camera from the dependencies.
func NewDepthCamera(
	ctx context.Context,
	deps resource.Dependencies,
	cameraName string,
	dataFrequencyHz int,
	logger logging.Logger,
) (TimedCamera, error) {
	return newCamera(ctx, deps, cameraName, rdkutils.MimeTypeRawDepth, dataFrequencyHz, logger)
}

func newCamera(
	ctx context.Context,
	deps resource.Dependencies,
	cameraName, mimeType string,
	dataFrequencyHz int,
	logger logging.Logger,
) (TimedCamera, error) {
	_, span := trace.StartSpan(ctx, "rgbdslam::sensors::newCamera")
	defer span.End()
	if cameraName == "" {
		return Camera{}, errors.New("camera name must not be empty")
	}
	cam, err := camera.FromDependencies(deps, cameraName)
	if err != nil {
		return Camera{}, errors.Wrapf(err, "error getting camera %v for slam service", cameraName)
	}
	logger.Debugw("using camera", "name", cameraName, "mime_type", mimeType)
	return NewCameraFromSource(cameraName, cam, mimeType, cameraName, dataFrequencyHz), nil
}
