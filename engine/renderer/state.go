package renderer

import (
	"fmt"
	"sync/atomic"
	"time"
)

/**
 * @brief Draw state shared by the UI goroutine and the present goroutine.
 */
type DrawState int32

const (
	DrawStateDisabled DrawState = iota
	DrawStateReadyToDraw
	DrawStateReadyToPresent
	DrawStateDeviceLost
	DrawStateExit
)

func (s DrawState) String() string {
	switch s {
	case DrawStateDisabled:
		return "disabled"
	case DrawStateReadyToDraw:
		return "ready-to-draw"
	case DrawStateReadyToPresent:
		return "ready-to-present"
	case DrawStateDeviceLost:
		return "device-lost"
	case DrawStateExit:
		return "exit"
	}
	return fmt.Sprintf("DrawState(%d)", int32(s))
}

type drawState struct {
	v atomic.Int32
}

func (d *drawState) Load() DrawState {
	return DrawState(d.v.Load())
}

func (d *drawState) Store(s DrawState) {
	d.v.Store(int32(s))
}

func (d *drawState) CompareAndSwap(old, new DrawState) bool {
	return d.v.CompareAndSwap(int32(old), int32(new))
}

/**
 * @brief Moves to next once no frame is waiting to be presented. Spins with
 * the given sleep while the present goroutine owns the state. Exit is never
 * overwritten; the result tells whether next was stored.
 */
func (d *drawState) storeAfterPresenting(next DrawState, sleep func(time.Duration)) bool {
	for {
		cur := d.Load()
		switch cur {
		case DrawStateExit:
			return next == DrawStateExit
		case DrawStateReadyToPresent:
			sleep(time.Millisecond)
			continue
		}
		if d.CompareAndSwap(cur, next) {
			return true
		}
	}
}
