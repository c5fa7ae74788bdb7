package software

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

type buffer struct {
	mu       sync.Mutex
	device   *Device
	desc     metadata.BufferDesc
	data     []byte
	released bool
}

func (b *buffer) Size() int { return b.desc.Size }

func (b *buffer) check() error {
	if b.released {
		return core.ErrResourceDisposed
	}
	if b.device.Closed() {
		return core.ErrNoDevice
	}
	return nil
}

func (b *buffer) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(); err != nil {
		return nil, err
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *buffer) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(); err != nil {
		return err
	}
	if err := renderer.CheckWrite(len(data), len(b.data)); err != nil {
		return err
	}
	copy(b.data, data)
	return nil
}

func (b *buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.data = nil
	b.device.free(int64(b.desc.Size), b.desc.Pool)
}

type texture struct {
	mu       sync.Mutex
	device   *Device
	desc     metadata.TextureDesc
	levels   [][]byte
	size     int64
	released bool
}

func (t *texture) Desc() metadata.TextureDesc { return t.desc }

func (t *texture) LevelCount() int { return t.desc.Levels }

func (t *texture) LevelDesc(level int) metadata.LevelDesc {
	return metadata.MipLevelDesc(t.desc.Width, t.desc.Height, level, t.desc.Format)
}

func (t *texture) level(level int) ([]byte, error) {
	if t.released {
		return nil, core.ErrResourceDisposed
	}
	if t.device.Closed() {
		return nil, core.ErrNoDevice
	}
	if level < 0 || level >= len(t.levels) {
		return nil, fmt.Errorf("texture level %d of %d", level, len(t.levels))
	}
	return t.levels[level], nil
}

func (t *texture) ReadLevel(level int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := t.level(level)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (t *texture) WriteLevel(level int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dst, err := t.level(level)
	if err != nil {
		return err
	}
	if err := renderer.CheckWrite(len(data), len(dst)); err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (t *texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.levels = nil
	t.device.free(t.size, t.desc.Pool)
}
