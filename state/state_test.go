package state

import (
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/test"
)

func TestCell(t *testing.T) {
	t.Run("starts with the identity transform and zero time", func(t *testing.T) {
		c := NewCell("map", "odom")
		tf := c.Read()
		test.That(t, spatialmath.PoseAlmostEqual(tf.Pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)
		test.That(t, tf.Timestamp.IsZero(), test.ShouldBeTrue)
		test.That(t, tf.ParentFrame, test.ShouldEqual, "map")
		test.That(t, tf.ChildFrame, test.ShouldEqual, "odom")
		test.That(t, c.Timestamp().IsZero(), test.ShouldBeTrue)
	})

	t.Run("write replaces the whole transform", func(t *testing.T) {
		c := NewCell("map", "odom")
		stamp := time.Unix(1, 0)
		c.Write(TimestampedTransform{
			Pose:        spatialmath.NewPoseFromPoint(r3.Vector{X: 1}),
			Timestamp:   stamp,
			ParentFrame: "world",
			ChildFrame:  "odom",
		})
		tf := c.Read()
		test.That(t, tf.Pose.Point().X, test.ShouldEqual, 1.0)
		test.That(t, tf.Timestamp, test.ShouldResemble, stamp)
		test.That(t, tf.ParentFrame, test.ShouldEqual, "world")
		test.That(t, c.Timestamp(), test.ShouldResemble, stamp)
	})

	t.Run("readers never observe a transform paired with another write's timestamp", func(t *testing.T) {
		c := NewCell("map", "odom")
		const writes = 2000
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 1; i <= writes; i++ {
				c.Write(TimestampedTransform{
					Pose:      spatialmath.NewPoseFromPoint(r3.Vector{X: float64(i)}),
					Timestamp: time.Unix(int64(i), 0),
				})
			}
		}()
		torn := 0
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				tf := c.Read()
				if tf.Timestamp.IsZero() {
					continue
				}
				if int64(tf.Pose.Point().X) != tf.Timestamp.Unix() {
					torn++
				}
			}
		}()
		wg.Wait()
		test.That(t, torn, test.ShouldEqual, 0)
	})
}

func TestTrackingFlag(t *testing.T) {
	t.Run("transitions exactly once", func(t *testing.T) {
		var f TrackingFlag
		test.That(t, f.IsSet(), test.ShouldBeFalse)
		test.That(t, f.Set(), test.ShouldBeTrue)
		test.That(t, f.IsSet(), test.ShouldBeTrue)
		test.That(t, f.Set(), test.ShouldBeFalse)
		test.That(t, f.IsSet(), test.ShouldBeTrue)
	})

	t.Run("concurrent setters observe a single transition", func(t *testing.T) {
		var f TrackingFlag
		var mu sync.Mutex
		transitions := 0
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.Set() {
					mu.Lock()
					transitions++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		test.That(t, transitions, test.ShouldEqual, 1)
	})
}

func TestNew(t *testing.T) {
	st := New("map", "odom")
	test.That(t, st.Transform, test.ShouldNotBeNil)
	test.That(t, st.Tracking.IsSet(), test.ShouldBeFalse)
}
