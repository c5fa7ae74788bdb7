package systems

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/rekindle/engine/containers"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

var (
	ErrNoWorkers           = fmt.Errorf("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
	ErrJobSystemClosed     = errors.New("job system shut down")
)

/**
 * @brief A fixed pool of worker goroutines. OnStart always runs on a worker.
 * The callbacks of JOB_TYPE_GPU_RESOURCE jobs are queued and run by Update
 * on the goroutine that owns the device; the others run on the worker.
 */
type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	mu       sync.Mutex
	notFull  *sync.Cond
	results  *containers.RingQueue[metadata.JobResultEntry]
	shutdown bool
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
		results:    containers.NewRingQueue[metadata.JobResultEntry](metadata.MAX_JOB_RESULTS),
	}
	js.notFull = sync.NewCond(&js.mu)
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	result, err := job.OnStart(job.InputParams)
	if err != nil {
		core.LogError(err.Error())
	}
	if job.JobType&metadata.JOB_TYPE_GPU_RESOURCE != 0 {
		js.storeResult(metadata.JobResultEntry{Task: job, Result: result, Err: err})
		return
	}
	finish(metadata.JobResultEntry{Task: job, Result: result, Err: err})
}

// storeResult blocks while the result queue is full.
func (js *JobSystem) storeResult(entry metadata.JobResultEntry) {
	js.mu.Lock()
	defer js.mu.Unlock()
	for js.results.IsFull() {
		js.notFull.Wait()
	}
	if err := js.results.Enqueue(entry); err != nil {
		core.LogError("job result lost: %s", err)
	}
}

func finish(entry metadata.JobResultEntry) {
	if entry.Err != nil {
		if entry.Task.OnFailure != nil {
			entry.Task.OnFailure(entry.Err)
		}
	} else if entry.Task.OnComplete != nil {
		entry.Task.OnComplete(entry.Result)
	}
	// Call the completion callback if set
	if entry.Task.OnCompletionCallback != nil {
		entry.Task.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run; their GPU
 * callbacks are delivered by the last Update.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.shutdown {
		js.mu.Unlock()
		return nil
	}
	js.shutdown = true
	js.mu.Unlock()

	done := make(chan struct{})
	go func() {
		js.wg.Wait()
		close(done)
	}()
	close(js.jobQueue)
	// Workers may be parked on a full result queue.
	for {
		select {
		case <-done:
			js.Update()
			return nil
		case <-time.After(time.Millisecond):
			js.Update()
		}
	}
}

/**
 * @brief Runs the callbacks of finished GPU resource jobs. Call once per
 * frame from the goroutine that owns the device.
 */
func (js *JobSystem) Update() {
	for {
		js.mu.Lock()
		entry, err := js.results.Dequeue()
		js.notFull.Signal()
		js.mu.Unlock()
		if err != nil {
			return
		}
		finish(entry)
	}
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the job channel is full. Submit and Shutdown must not race.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job has no OnStart")
	}
	js.mu.Lock()
	closed := js.shutdown
	js.mu.Unlock()
	if closed {
		return ErrJobSystemClosed
	}
	js.jobQueue <- jt
	return nil
}
