package sensorprocess

import (
	"context"
)

// StartRGB polls the color camera and hands every frame to OnRGB. Stops when the context is Done.
func (config *Config) StartRGB(ctx context.Context) {
	poll(ctx, config.RGB.DataFrequencyHz(), config.Logger, config.RGB.Name(), func(ctx context.Context) error {
		frame, err := config.RGB.TimedFrame(ctx)
		if err != nil {
			return err
		}
		config.Handlers.OnRGB(ctx, frame)
		return nil
	})
}

// StartDepth polls the depth camera and hands every frame to OnDepth. Stops when the context is
// Done.
func (config *Config) StartDepth(ctx context.Context) {
	poll(ctx, config.Depth.DataFrequencyHz(), config.Logger, config.Depth.Name(), func(ctx context.Context) error {
		frame, err := config.Depth.TimedFrame(ctx)
		if err != nil {
			return err
		}
		config.Handlers.OnDepth(ctx, frame)
		return nil
	})
}
