// Package state holds the state shared between the ingestion callbacks and the periodic publishers.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"go.viam.com/rdk/spatialmath"
)

// TimestampedTransform is a rigid transform between two frames at a point in time.
type TimestampedTransform struct {
	Pose        spatialmath.Pose
	Timestamp   time.Time
	ParentFrame string
	ChildFrame  string
}

// Cell holds the most recent map to odometry transform. The transform and its timestamp are
// always written and read together.
type Cell struct {
	mu     sync.Mutex
	latest TimestampedTransform
}

// NewCell returns a Cell holding the identity transform between parentFrame and childFrame.
func NewCell(parentFrame, childFrame string) *Cell {
	return &Cell{latest: TimestampedTransform{
		Pose:        spatialmath.NewZeroPose(),
		ParentFrame: parentFrame,
		ChildFrame:  childFrame,
	}}
}

// Write replaces the stored transform.
func (c *Cell) Write(tf TimestampedTransform) {
	c.mu.Lock()
	c.latest = tf
	c.mu.Unlock()
}

// Read returns a copy of the stored transform.
func (c *Cell) Read() TimestampedTransform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Timestamp returns the timestamp of the stored transform.
func (c *Cell) Timestamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest.Timestamp
}

// TrackingFlag records whether a frame has ever been localized. It is never reset.
type TrackingFlag struct {
	tracked atomic.Bool
}

// Set marks tracking as established and reports whether this call made the transition.
func (f *TrackingFlag) Set() bool {
	return f.tracked.CompareAndSwap(false, true)
}

// IsSet reports whether tracking has been established.
func (f *TrackingFlag) IsSet() bool {
	return f.tracked.Load()
}

// State is the handle shared by every component of one session.
type State struct {
	Transform *Cell
	Tracking  *TrackingFlag
}

// New returns the State of a new session.
func New(parentFrame, childFrame string) *State {
	return &State{
		Transform: NewCell(parentFrame, childFrame),
		Tracking:  &TrackingFlag{},
	}
}
