package renderer

import (
	"sync"

	"github.com/spaghettifunk/rekindle/engine/containers"
	"github.com/spaghettifunk/rekindle/engine/core"
)

const DefaultDispatchCapacity = 64

/**
 * @brief Queue of tasks that must run on the UI goroutine. Any goroutine
 * may Post; the UI goroutine runs them with Drain.
 */
type Dispatcher struct {
	mu     sync.Mutex
	queue  *containers.RingQueue[func()]
	notify func()
}

func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultDispatchCapacity
	}
	return &Dispatcher{queue: containers.NewRingQueue[func()](capacity)}
}

// SetNotify installs a function called after every Post, such as a wake up
// of a UI goroutine blocked waiting for window events.
func (d *Dispatcher) SetNotify(notify func()) {
	d.mu.Lock()
	d.notify = notify
	d.mu.Unlock()
}

// Post queues task. It fails with containers.ErrQueueFull when the UI
// goroutine is not keeping up.
func (d *Dispatcher) Post(task func()) error {
	d.mu.Lock()
	err := d.queue.Enqueue(task)
	notify := d.notify
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if notify != nil {
		notify()
	}
	return nil
}

// Drain runs the queued tasks in order and returns how many ran. Tasks
// posted while draining run in the same call.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		d.mu.Lock()
		task, err := d.queue.Dequeue()
		d.mu.Unlock()
		if err != nil {
			return n
		}
		task()
		n++
	}
}

// Pending is the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// postOrLog is used by the present goroutine, which has nobody to return to.
func (d *Dispatcher) postOrLog(task func()) bool {
	if err := d.Post(task); err != nil {
		core.LogDebug("ui dispatch: %v", err)
		return false
	}
	return true
}
