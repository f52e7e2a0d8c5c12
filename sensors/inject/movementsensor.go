package inject

import (
	"context"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/spatialmath"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

// MovementSensorSource is an injected movement sensor source.
type MovementSensorSource struct {
	PositionFunc           func(ctx context.Context, extra map[string]interface{}) (*geo.Point, float64, error)
	OrientationFunc        func(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error)
	LinearAccelerationFunc func(ctx context.Context, extra map[string]interface{}) (r3.Vector, error)
	AngularVelocityFunc    func(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error)
	PropertiesFunc         func(ctx context.Context, extra map[string]interface{}) (*movementsensor.Properties, error)
}

// Position calls the injected PositionFunc.
func (ms *MovementSensorSource) Position(ctx context.Context, extra map[string]interface{}) (*geo.Point, float64, error) {
	return ms.PositionFunc(ctx, extra)
}

// Orientation calls the injected OrientationFunc.
func (ms *MovementSensorSource) Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error) {
	return ms.OrientationFunc(ctx, extra)
}

// LinearAcceleration calls the injected LinearAccelerationFunc.
func (ms *MovementSensorSource) LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	return ms.LinearAccelerationFunc(ctx, extra)
}

// AngularVelocity calls the injected AngularVelocityFunc.
func (ms *MovementSensorSource) AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error) {
	return ms.AngularVelocityFunc(ctx, extra)
}

// Properties calls the injected PropertiesFunc.
func (ms *MovementSensorSource) Properties(ctx context.Context, extra map[string]interface{}) (*movementsensor.Properties, error) {
	return ms.PropertiesFunc(ctx, extra)
}

// TimedMovementSensor is an injected TimedMovementSensor.
type TimedMovementSensor struct {
	NameFunc                func() string
	DataFrequencyHzFunc     func() int
	PropertiesFunc          func() s.MovementSensorProperties
	TimedIMUSampleFunc      func(ctx context.Context) (s.IMUSample, error)
	TimedOdometrySampleFunc func(ctx context.Context) (s.OdometrySample, error)
}

// Name calls the injected NameFunc.
func (ms *TimedMovementSensor) Name() string {
	return ms.NameFunc()
}

// DataFrequencyHz calls the injected DataFrequencyHzFunc.
func (ms *TimedMovementSensor) DataFrequencyHz() int {
	return ms.DataFrequencyHzFunc()
}

// Properties calls the injected PropertiesFunc.
func (ms *TimedMovementSensor) Properties() s.MovementSensorProperties {
	return ms.PropertiesFunc()
}

// TimedIMUSample calls the injected TimedIMUSampleFunc.
func (ms *TimedMovementSensor) TimedIMUSample(ctx context.Context) (s.IMUSample, error) {
	return ms.TimedIMUSampleFunc(ctx)
}

// TimedOdometrySample calls the injected TimedOdometrySampleFunc.
func (ms *TimedMovementSensor) TimedOdometrySample(ctx context.Context) (s.OdometrySample, error) {
	return ms.TimedOdometrySampleFunc(ctx)
}
