package sensors

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/rdk/utils/contextutils"
)

// ErrMovementSensorNeitherIMUNorOdometer denotes that the provided movement sensor supports neither
// an IMU nor an odometer.
var ErrMovementSensorNeitherIMUNorOdometer = errors.New("'movement_sensor' must either support both LinearAcceleration and " +
	"AngularVelocity, or both Position and Orientation")

// MovementSensorSource is the part of an rdk movement sensor read by the front end.
type MovementSensorSource interface {
	Position(ctx context.Context, extra map[string]interface{}) (*geo.Point, float64, error)
	Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error)
	LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error)
	AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error)
	Properties(ctx context.Context, extra map[string]interface{}) (*movementsensor.Properties, error)
}

// MovementSensorProperties contains information whether or not an IMU and/or odometer are supported.
type MovementSensorProperties struct {
	IMUSupported      bool
	OdometerSupported bool
}

// TimedMovementSensor describes a movement sensor that reports the time its readings are from.
type TimedMovementSensor interface {
	TimedSensor
	Properties() MovementSensorProperties
	TimedIMUSample(ctx context.Context) (IMUSample, error)
	TimedOdometrySample(ctx context.Context) (OdometrySample, error)
}

// MovementSensor represents a movement sensor acting as IMU and/or odometer.
type MovementSensor struct {
	name            string
	dataFrequencyHz int
	properties      MovementSensorProperties
	odomFrame       string
	baseFrame       string
	MovementSensor  MovementSensorSource

	mu     sync.Mutex
	origin *geo.Point
}

// NewMovementSensorFromSource returns a MovementSensor around an already resolved source.
func NewMovementSensorFromSource(
	name string,
	src MovementSensorSource,
	properties MovementSensorProperties,
	odomFrame, baseFrame string,
	dataFrequencyHz int,
) *MovementSensor {
	return &MovementSensor{
		name:            name,
		dataFrequencyHz: dataFrequencyHz,
		properties:      properties,
		odomFrame:       odomFrame,
		baseFrame:       baseFrame,
		MovementSensor:  src,
	}
}

// Name returns the name of the movement sensor.
func (ms *MovementSensor) Name() string {
	return ms.name
}

// DataFrequencyHz returns the rate at which the movement sensor is polled.
func (ms *MovementSensor) DataFrequencyHz() int {
	return ms.dataFrequencyHz
}

// Properties returns whether the movement sensor acts as an IMU and/or an odometer.
func (ms *MovementSensor) Properties() MovementSensorProperties {
	return ms.properties
}

// TimedIMUSample returns linear acceleration and angular velocity and the time they are from.
func (ms *MovementSensor) TimedIMUSample(ctx context.Context) (IMUSample, error) {
	if !ms.properties.IMUSupported {
		return IMUSample{}, errors.Errorf("movement sensor %v does not support IMU readings", ms.name)
	}

	ctxWithMetadata, md := contextutils.ContextWithMetadata(ctx)
	linAcc, err := ms.MovementSensor.LinearAcceleration(ctxWithMetadata, make(map[string]interface{}))
	if err != nil {
		return IMUSample{}, errors.Wrap(err, "LinearAcceleration error")
	}
	angVel, err := ms.MovementSensor.AngularVelocity(ctxWithMetadata, make(map[string]interface{}))
	if err != nil {
		return IMUSample{}, errors.Wrap(err, "AngularVelocity error")
	}

	t, _, err := readingTime(md)
	if err != nil {
		return IMUSample{}, err
	}
	return IMUSample{LinearAcceleration: linAcc, AngularVelocity: angVel, ReadingTime: t}, nil
}

// TimedOdometrySample returns the pose of the sensor relative to its first reading and the
// time it is from.
func (ms *MovementSensor) TimedOdometrySample(ctx context.Context) (OdometrySample, error) {
	if !ms.properties.OdometerSupported {
		return OdometrySample{}, errors.Errorf("movement sensor %v does not support odometry readings", ms.name)
	}

	ctxWithMetadata, md := contextutils.ContextWithMetadata(ctx)
	position, _, err := ms.MovementSensor.Position(ctxWithMetadata, make(map[string]interface{}))
	if err != nil {
		return OdometrySample{}, errors.Wrap(err, "Position error")
	}
	orientation, err := ms.MovementSensor.Orientation(ctxWithMetadata, make(map[string]interface{}))
	if err != nil {
		return OdometrySample{}, errors.Wrap(err, "Orientation error")
	}

	t, _, err := readingTime(md)
	if err != nil {
		return OdometrySample{}, err
	}

	ms.mu.Lock()
	if ms.origin == nil {
		ms.origin = position
	}
	origin := ms.origin
	ms.mu.Unlock()

	return OdometrySample{
		Pose:         spatialmath.NewPose(spatialmath.GeoPointToPoint(position, origin), orientation),
		FrameID:      ms.odomFrame,
		ChildFrameID: ms.baseFrame,
		ReadingTime:  t,
	}, nil
}

// NewMovementSensor returns the named movement sensor from the dependencies after checking that it
// supports IMU and/or odometer readings.
func NewMovementSensor(
	ctx context.Context,
	deps resource.Dependencies,
	movementSensorName string,
	odomFrame, baseFrame string,
	dataFrequencyHz int,
	logger logging.Logger,
) (TimedMovementSensor, error) {
	ctx, span := trace.StartSpan(ctx, "rgbdslam::sensors::NewMovementSensor")
	defer span.End()

	movementSensor, err := movementsensor.FromDependencies(deps, movementSensorName)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting movement sensor \"%v\" for slam service", movementSensorName)
	}

	properties, err := MovementSensorPropertiesFrom(ctx, movementSensor)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting movement sensor properties from \"%v\" for slam service", movementSensorName)
	}
	logger.Debugw("using movement sensor", "name", movementSensorName,
		"imu_supported", properties.IMUSupported, "odometer_supported", properties.OdometerSupported)

	return NewMovementSensorFromSource(movementSensorName, movementSensor, properties, odomFrame, baseFrame, dataFrequencyHz), nil
}

// MovementSensorPropertiesFrom reads the rdk properties of src and reduces them to IMU and
// odometer support.
func MovementSensorPropertiesFrom(ctx context.Context, src MovementSensorSource) (MovementSensorProperties, error) {
	properties, err := src.Properties(ctx, make(map[string]interface{}))
	if err != nil {
		return MovementSensorProperties{}, err
	}
	if properties == nil {
		return MovementSensorProperties{}, errors.New("movement sensor returned nil properties")
	}

	msProperties := MovementSensorProperties{
		IMUSupported:      properties.LinearAccelerationSupported && properties.AngularVelocitySupported,
		OdometerSupported: properties.PositionSupported && properties.OrientationSupported,
	}
	if !msProperties.IMUSupported && !msProperties.OdometerSupported {
		return MovementSensorProperties{}, ErrMovementSensorNeitherIMUNorOdometer
	}
	return msProperties, nil
}
