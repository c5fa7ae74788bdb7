package vulkan

import "sync"

type lockGroup string

const (
	// groupQueue serializes access to the queue; Vulkan requires external sync.
	groupQueue lockGroup = "queue"
	// groupMemory guards map and unmap of device memory.
	groupMemory lockGroup = "memory"
)

type lockPool struct {
	mu    sync.Mutex
	locks map[lockGroup]*sync.Mutex
}

func newLockPool() *lockPool {
	return &lockPool{locks: make(map[lockGroup]*sync.Mutex)}
}

// Get or create the mutex for a group.
func (p *lockPool) get(group lockGroup) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[group]
	if !ok {
		l = &sync.Mutex{}
		p.locks[group] = l
	}
	return l
}

func (p *lockPool) SafeCall(group lockGroup, fn func() error) error {
	l := p.get(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}
