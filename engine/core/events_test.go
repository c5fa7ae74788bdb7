package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryVisitsInRegistrationOrder(t *testing.T) {
	r := NewRegistry[func() int]()
	for i := 0; i < 5; i++ {
		v := i
		r.Register(func() int { return v })
	}

	var got []int
	r.Each(func(_ Handle, fn func() int) bool {
		got = append(got, fn())
		return true
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestRegistryUnregisterByHandle(t *testing.T) {
	r := NewRegistry[func() string]()
	same := func() string { return "x" }
	h1 := r.Register(same)
	h2 := r.Register(same)
	require.NotEqual(t, h1, h2)

	assert.True(t, r.Unregister(h1))
	assert.False(t, r.Unregister(h1))
	assert.Equal(t, 1, r.Len())

	var visited []Handle
	r.Each(func(h Handle, _ func() string) bool {
		visited = append(visited, h)
		return true
	})
	assert.Equal(t, []Handle{h2}, visited)
}

func TestRegistryRemovalDuringWalk(t *testing.T) {
	r := NewRegistry[func()]()
	var calls []string
	var second Handle
	r.Register(func() {
		calls = append(calls, "first")
		r.Unregister(second)
		r.Register(func() { calls = append(calls, "late") })
	})
	second = r.Register(func() { calls = append(calls, "second") })
	r.Register(func() { calls = append(calls, "third") })

	r.Each(func(_ Handle, fn func()) bool {
		fn()
		return true
	})
	assert.Equal(t, []string{"first", "third"}, calls)
	assert.Equal(t, 3, r.Len())
}

func TestRegistryStopsWalk(t *testing.T) {
	r := NewRegistry[int]()
	r.Register(1)
	r.Register(2)
	r.Register(3)

	n := 0
	r.Each(func(_ Handle, v int) bool {
		n++
		return v < 2
	})
	assert.Equal(t, 2, n)
}

func TestHandleValidity(t *testing.T) {
	assert.False(t, InvalidHandle.IsValid())
	h := NewHandle()
	assert.True(t, h.IsValid())
	assert.Len(t, h.String(), 36)
}
