// Package inject is used to mock sensors.
package inject

import (
	"context"

	"go.viam.com/rdk/components/camera"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// ImageSource is an injected image source.
type ImageSource struct {
	ImageFunc func(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error)
}

// Image calls the injected ImageFunc.
func (src *ImageSource) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return src.ImageFunc(ctx, mimeType, extra)
}

// TimedCamera is an injected TimedCamera.
type TimedCamera struct {
	s.Camera
	NameFunc            func() string
	DataFrequencyHzFunc func() int
	TimedFrameFunc      func(ctx context.Context) (s.Frame, error)
}

// Name calls the injected Name or the real version.
func (cam *TimedCamera) Name() string {
	if cam.NameFunc == nil {
		return cam.Camera.Name()
	}
	return cam.NameFunc()
}

// DataFrequencyHz calls the injected DataFrequencyHz or the real version.
func (cam *TimedCamera) DataFrequencyHz() int {
	if cam.DataFrequencyHzFunc == nil {
		return cam.Camera.DataFrequencyHz()
	}
	return cam.DataFrequencyHzFunc()
}

// TimedFrame calls the injected TimedFrame or the real version.
func (cam *TimedCamera) TimedFrame(ctx context.Context) (s.Frame, error) {
	if cam.TimedFrameFunc == nil {
		return cam.Camera.TimedFrame(ctx)
	}
	return cam.TimedFrameFunc(ctx)
}
