package sensorprocess

import (
	"context"

	"go.uber.org/multierr"
)

// StartMovementSensor polls the movement sensor and hands its IMU and odometry readings, as far as
// supported, to OnIMU and OnOdometry. Stops when the context is Done.
func (config *Config) StartMovementSensor(ctx context.Context) {
	properties := config.MovementSensor.Properties()
	poll(ctx, config.MovementSensor.DataFrequencyHz(), config.Logger, config.MovementSensor.Name(), func(ctx context.Context) error {
		var err error
		if properties.IMUSupported {
			err = multierr.Append(err, config.addIMUSample(ctx))
		}
		if properties.OdometerSupported {
			err = multierr.Append(err, config.addOdometrySample(ctx))
		}
		return err
	})
}

func (config *Config) addIMUSample(ctx context.Context) error {
	sample, err := config.MovementSensor.TimedIMUSample(ctx)
	if err != nil {
		return err
	}
	config.Handlers.OnIMU(ctx, sample)
	return nil
}

func (config *Config) addOdometrySample(ctx context.Context) error {
	sample, err := config.MovementSensor.TimedOdometrySample(ctx)
	if err != nil {
		return err
	}
	config.Handlers.OnOdometry(ctx, sample)
	return nil
}
