package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/containers"
	"github.com/spaghettifunk/rekindle/engine/renderer"
)

func TestDispatcherRunsTasksInOrder(t *testing.T) {
	d := renderer.NewDispatcher(4)
	notified := 0
	d.SetNotify(func() { notified++ })

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, d.Post(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, d.Pending())
	assert.Equal(t, 3, notified)

	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 0, d.Drain())
}

func TestDispatcherFull(t *testing.T) {
	d := renderer.NewDispatcher(1)
	require.NoError(t, d.Post(func() {}))
	assert.ErrorIs(t, d.Post(func() {}), containers.ErrQueueFull)
}

func TestDispatcherRunsTasksPostedWhileDraining(t *testing.T) {
	d := renderer.NewDispatcher(0)
	ran := false
	require.NoError(t, d.Post(func() {
		_ = d.Post(func() { ran = true })
	}))
	assert.Equal(t, 2, d.Drain())
	assert.True(t, ran)
}
