package detect

import (
	"sync"
	"time"

	"github.com/himanishpuri/adrift/pkg/models"
)

type eventKind int

const (
	eventBoundary eventKind = iota
	eventProgress
)

type event struct {
	kind     eventKind
	boundary models.BoundaryEvent
	elapsed  time.Duration
}

// eventQueue is a bounded FIFO shared by a fixed number of producers and a
// single consumer. Pop blocks until an event is available or every producer
// has called done.
type eventQueue struct {
	mu        sync.Mutex
	readable  *sync.Cond
	writable  *sync.Cond
	items     []event
	capacity  int
	producers int
}

func newEventQueue(capacity, producers int) *eventQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &eventQueue{
		items:     make([]event, 0, capacity),
		capacity:  capacity,
		producers: producers,
	}
	q.readable = sync.NewCond(&q.mu)
	q.writable = sync.NewCond(&q.mu)
	return q
}

// push blocks while the queue is full.
func (q *eventQueue) push(e event) {
	q.mu.Lock()
	for len(q.items) >= q.capacity {
		q.writable.Wait()
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.readable.Signal()
}

// done marks one producer as finished.
func (q *eventQueue) done() {
	q.mu.Lock()
	q.producers--
	q.mu.Unlock()
	q.readable.Broadcast()
}

// pop returns false once the queue is empty and all producers are done.
func (q *eventQueue) pop() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && q.producers > 0 {
		q.readable.Wait()
	}
	if len(q.items) == 0 {
		return event{}, false
	}

	e := q.items[0]
	q.items[0] = event{}
	q.items = q.items[1:]
	q.writable.Signal()
	return e, true
}
