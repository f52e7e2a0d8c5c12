// Package timesync pairs RGB and depth frames arriving on independent channels by approximate
// capture time.
package timesync

import (
	"context"
	"sync"
	"time"

	s "github.com/viam-modules/viam-rgbd-slam/sensors"
)

const (
	// DefaultQueueSize is the number of frames buffered per channel.
	DefaultQueueSize = 10
	// DefaultTolerance is the largest skew allowed between the frames of a pair.
	DefaultTolerance = 50 * time.Millisecond
)

// PairFunc receives one matched pair with the context of the call that completed it.
type PairFunc func(ctx context.Context, rgb, depth s.Frame)

// Stats counts what the synchronizer did with the frames it received.
type Stats struct {
	Matched      int64
	DroppedRGB   int64
	DroppedDepth int64
}

// Synchronizer buffers frames from both channels and emits each matched pair exactly once.
type Synchronizer struct {
	queueSize int
	tolerance time.Duration
	onPair    PairFunc

	mu    sync.Mutex
	rgb   []s.Frame
	depth []s.Frame
	stats Stats

	// emitMu keeps pairs delivered in the order they were matched.
	emitMu sync.Mutex
}

// New returns a Synchronizer. Non-positive arguments fall back to the defaults.
func New(queueSize int, tolerance time.Duration, onPair PairFunc) *Synchronizer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Synchronizer{queueSize: queueSize, tolerance: tolerance, onPair: onPair}
}

// AddRGB adds a color frame. When it completes a pair, the pair callback runs before AddRGB
// returns.
func (ts *Synchronizer) AddRGB(ctx context.Context, frame s.Frame) {
	ts.add(ctx, frame, true)
}

// AddDepth adds a depth frame. When it completes a pair, the pair callback runs before AddDepth
// returns.
func (ts *Synchronizer) AddDepth(ctx context.Context, frame s.Frame) {
	ts.add(ctx, frame, false)
}

// Stats returns a snapshot of the synchronizer counters.
func (ts *Synchronizer) Stats() Stats {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.stats
}

// Tolerance returns the largest skew allowed within a pair.
func (ts *Synchronizer) Tolerance() time.Duration {
	return ts.tolerance
}

func (ts *Synchronizer) add(ctx context.Context, frame s.Frame, isRGB bool) {
	ts.emitMu.Lock()
	defer ts.emitMu.Unlock()

	ts.mu.Lock()
	own, other := &ts.rgb, &ts.depth
	if !isRGB {
		own, other = &ts.depth, &ts.rgb
	}

	idx := closest(*other, frame.ReadingTime, ts.tolerance)
	if idx < 0 {
		*own = append(*own, frame)
		if len(*own) > ts.queueSize {
			*own = (*own)[1:]
			ts.countDrops(isRGB, 1)
		}
		ts.mu.Unlock()
		return
	}

	match := (*other)[idx]
	var dropped int
	*other, dropped = dropUpTo(*other, match.ReadingTime)
	// the match itself is not a drop
	ts.countDrops(!isRGB, int64(dropped-1))
	*own, dropped = dropUpTo(*own, frame.ReadingTime)
	ts.countDrops(isRGB, int64(dropped))
	ts.stats.Matched++
	ts.mu.Unlock()

	rgb, depth := frame, match
	if !isRGB {
		rgb, depth = match, frame
	}
	if ts.onPair != nil {
		ts.onPair(ctx, rgb, depth)
	}
}

// dropUpTo removes every frame captured at or before t and returns how many were removed.
func dropUpTo(frames []s.Frame, t time.Time) ([]s.Frame, int) {
	kept := frames[:0]
	for _, f := range frames {
		if f.ReadingTime.After(t) {
			kept = append(kept, f)
		}
	}
	return kept, len(frames) - len(kept)
}

func (ts *Synchronizer) countDrops(isRGB bool, n int64) {
	if isRGB {
		ts.stats.DroppedRGB += n
	} else {
		ts.stats.DroppedDepth += n
	}
}

// closest returns the index of the frame nearest to t within tolerance, or -1.
func closest(frames []s.Frame, t time.Time, tolerance time.Duration) int {
	best := -1
	var bestSkew time.Duration
	for i, f := range frames {
		skew := f.ReadingTime.Sub(t)
		if skew < 0 {
			skew = -skew
		}
		if skew >= tolerance {
			continue
		}
		if best < 0 || skew < bestSkew {
			best, bestSkew = i, skew
		}
	}
	return best
}
