// Package sensorprocess polls the configured sensors and hands every reading to the ingestion
// handlers.
package sensorprocess

import (
	"context"
	"math"
	"sync"
	"time"

	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// Handlers receive the readings of the sensors. ingest.Subscriptions implements it.
type Handlers interface {
	OnRGB(ctx context.Context, frame s.Frame)
	OnDepth(ctx context.Context, frame s.Frame)
	OnIMU(ctx context.Context, sample s.IMUSample)
	OnOdometry(ctx context.Context, sample s.OdometrySample)
	OnLidar(ctx context.Context, scan s.LidarScan)
}

// Config holds the sensors to poll and where their readings go. MovementSensor and Lidar are
// optional.
type Config struct {
	Handlers       Handlers
	RGB            s.TimedCamera
	Depth          s.TimedCamera
	MovementSensor s.TimedMovementSensor
	Lidar          s.TimedLidar
	Logger         logging.Logger
}

// Start launches one polling loop per configured sensor. Every loop calls wg.Done when ctx is
// done and it returned.
func (config *Config) Start(ctx context.Context, wg *sync.WaitGroup) {
	start := func(name string, loop func(ctx context.Context)) {
		config.Logger.Debugw("starting sensor process", "sensor", name)
		wg.Add(1)
		goutils.PanicCapturingGo(func() {
			defer wg.Done()
			loop(ctx)
		})
	}

	start(config.RGB.Name(), config.StartRGB)
	start(config.Depth.Name(), config.StartDepth)
	if config.MovementSensor != nil {
		start(config.MovementSensor.Name(), config.StartMovementSensor)
	}
	if config.Lidar != nil {
		start(config.Lidar.Name(), config.StartLidar)
	}
}

// poll calls once at dataFrequencyHz until ctx is done. Errors are logged and the next
// reading is tried after the interval.
func poll(ctx context.Context, dataFrequencyHz int, logger logging.Logger, sensorName string, once func(ctx context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}
		startTime := time.Now().UTC()
		if err := once(ctx); err != nil && ctx.Err() == nil {
			logger.Debugw("failed to get sensor reading", "sensor", sensorName, "error", err)
		}
		if !goutils.SelectContextOrWait(ctx, remainingInterval(dataFrequencyHz, time.Since(startTime))) {
			return
		}
	}
}

// remainingInterval returns what is left of one polling interval after elapsed.
func remainingInterval(dataFrequencyHz int, elapsed time.Duration) time.Duration {
	if dataFrequencyHz <= 0 {
		return 0
	}
	interval := time.Second / time.Duration(dataFrequencyHz)
	return time.Duration(math.Max(0, float64(interval-elapsed)))
}
