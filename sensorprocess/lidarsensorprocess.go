package sensorprocess

import (
	"context"
)

// StartLidar polls the lidar and hands every scan to OnLidar. Stops when the context is Done.
func (config *Config) StartLidar(ctx context.Context) {
	poll(ctx, config.Lidar.DataFrequencyHz(), config.Logger, config.Lidar.Name(), func(ctx context.Context) error {
		scan, err := config.Lidar.TimedLidarScan(ctx)
		if err != nil {
			return err
		}
		config.Handlers.OnLidar(ctx, scan)
		return nil
	})
}
