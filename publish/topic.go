package publish

import (
	"sync"
)

// Topic is an in-memory channel. It keeps the latest published value and hands every value to
// its subscribers without blocking; a subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	name string

	mu      sync.Mutex
	latest  T
	hasData bool
	count   int64
	dropped int64
	nextID  int
	subs    map[int]chan T
}

// NewTopic returns an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: map[int]chan T{}}
}

// Name returns the name of the topic.
func (t *Topic[T]) Name() string {
	return t.name
}

// Publish stores v as the latest value and fans it out. It never fails.
func (t *Topic[T]) Publish(v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = v
	t.hasData = true
	t.count++
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
			t.dropped++
		}
	}
	return nil
}

// Latest returns the last published value, and false if nothing was published yet.
func (t *Topic[T]) Latest() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.hasData
}

// Count returns how many values were published.
func (t *Topic[T]) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (t *Topic[T]) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Subscribe returns a channel receiving every later value and a function ending the
// subscription. The channel is closed when the subscription ends.
func (t *Topic[T]) Subscribe(buf int) (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan T, buf)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}
