package systems

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestGeneralJobRunsCallbacksOnWorker(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	done := make(chan interface{}, 1)
	completed := make(chan struct{})
	require.NoError(t, js.Submit(metadata.JobTask{
		JobType:              metadata.JOB_TYPE_GENERAL,
		InputParams:          21,
		OnStart:              func(p interface{}) (interface{}, error) { return p.(int) * 2, nil },
		OnComplete:           func(r interface{}) { done <- r },
		OnCompletionCallback: func() { close(completed) },
	}))

	select {
	case r := <-done:
		assert.Equal(t, 42, r)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not complete")
	}
	<-completed
}

func TestGPUJobCallbacksWaitForUpdate(t *testing.T) {
	js, err := NewJobSystem(1, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	started := make(chan struct{})
	var completed atomic.Bool
	require.NoError(t, js.Submit(metadata.JobTask{
		JobType: metadata.JOB_TYPE_GPU_RESOURCE,
		OnStart: func(interface{}) (interface{}, error) {
			close(started)
			return "pixels", nil
		},
		OnComplete: func(r interface{}) {
			assert.Equal(t, "pixels", r)
			completed.Store(true)
		},
	}))

	<-started
	assert.False(t, completed.Load())
	assert.Eventually(t, func() bool {
		js.Update()
		return completed.Load()
	}, 5*time.Second, time.Millisecond)
}

func TestJobFailure(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	boom := errors.New("decode failed")
	var failed atomic.Value
	require.NoError(t, js.Submit(metadata.JobTask{
		JobType:    metadata.JOB_TYPE_GPU_RESOURCE,
		OnStart:    func(interface{}) (interface{}, error) { return nil, boom },
		OnComplete: func(interface{}) { t.Error("OnComplete called for a failed job") },
		OnFailure:  func(err error) { failed.Store(err) },
	}))

	assert.Eventually(t, func() bool {
		js.Update()
		return failed.Load() != nil
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, boom, failed.Load())
}

func TestShutdownDeliversPendingResults(t *testing.T) {
	js, err := NewJobSystem(2, 16)
	require.NoError(t, err)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, js.Submit(metadata.JobTask{
			JobType:    metadata.JOB_TYPE_GPU_RESOURCE,
			OnStart:    func(interface{}) (interface{}, error) { return nil, nil },
			OnComplete: func(interface{}) { count.Add(1) },
		}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(10), count.Load())

	assert.ErrorIs(t, js.Submit(metadata.JobTask{OnStart: func(interface{}) (interface{}, error) { return nil, nil }}), ErrJobSystemClosed)
	assert.NoError(t, js.Shutdown())
}

func TestSubmitRequiresOnStart(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()
	assert.Error(t, js.Submit(metadata.JobTask{}))
}
