package scores

import (
	"context"
	"log"
	"sync"
	"time"
)

// Dispatcher decouples rooms from score storage. Record never blocks; a full
// queue drops the result.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Result
	done   chan struct{}
}

// NewDispatcher starts the worker. Each submission gets its own timeout.
func NewDispatcher(sink Sink, size int, timeout time.Duration) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{
		sink:    sink,
		timeout: timeout,
		queue:   make(chan Result, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Record queues r and reports whether it was accepted.
func (d *Dispatcher) Record(r Result) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- r:
		return true
	default:
		log.Printf("score dropped user=%s score=%d reason=queue_full", r.UserID, r.Score)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for r := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Submit(ctx, r)
		cancel()
		if err != nil {
			log.Printf("score submit failed user=%s score=%d err=%v", r.UserID, r.Score, err)
			continue
		}
		log.Printf("score saved user=%s score=%d", r.UserID, r.Score)
	}
}

// Close stops accepting results, drains the queue and closes the sink. If ctx
// ends first, queued results are abandoned to the worker and the sink is
// closed anyway.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		log.Printf("score queue not drained err=%v", ctx.Err())
	}
	return d.sink.Close()
}
