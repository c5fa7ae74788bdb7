package renderer

import (
	"sync"
	"time"

	"github.com/spaghettifunk/rekindle/engine/core"
)

/**
 * @brief The present goroutine. It asks the UI goroutine for frames through
 * a Dispatcher, at most one request at a time, and presents every frame
 * the UI goroutine finishes.
 */
type Loop struct {
	session    *Session
	dispatcher *Dispatcher
	now        func() time.Time
	wg         sync.WaitGroup
	started    bool
}

// NewLoop attaches a present loop to the session. Call Start to run it.
func NewLoop(session *Session, dispatcher *Dispatcher) *Loop {
	l := &Loop{
		session:    session,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	session.loop = l
	return l
}

func (l *Loop) Start() {
	if l.started {
		return
	}
	l.started = true
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run()
	}()
}

func (l *Loop) wait() {
	l.wg.Wait()
}

func (l *Loop) run() {
	s := l.session
	var (
		frames    int32
		second    = l.now().Unix()
		requested chan struct{}
	)

	for {
		state := s.state.Load()
		if state == DrawStateExit {
			return
		}

		if requested != nil {
			select {
			case <-requested:
				requested = nil
			default:
			}
		}
		wantsFrame := state == DrawStateReadyToDraw || state == DrawStateDeviceLost || s.retryPending()
		if wantsFrame && requested == nil {
			done := make(chan struct{})
			if l.dispatcher.postOrLog(func() {
				defer close(done)
				if err := s.RenderFrame(); err != nil {
					core.LogError("render frame: %v", err)
				}
			}) {
				requested = done
			}
		}

		if now := l.now().Unix(); now != second {
			s.fps.Store(frames)
			frames = 0
			second = now
		}

		s.sleep(s.presentInterval)

		if s.state.Load() == DrawStateReadyToPresent {
			if err := s.device.Present(); err != nil {
				core.LogWarn("present failed, device lost: %v", err)
				s.state.CompareAndSwap(DrawStateReadyToPresent, DrawStateDeviceLost)
				continue
			}
			frames++
			s.state.CompareAndSwap(DrawStateReadyToPresent, DrawStateReadyToDraw)
		}
	}
}
