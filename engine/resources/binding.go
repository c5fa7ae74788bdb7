package resources

import (
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
)

/**
 * @brief The link between a handle and its session: the two lifecycle
 * subscriptions and the live-instance counter of the handle's kind.
 */
type binding struct {
	session  *renderer.Session
	kind     core.ResourceKind
	lost     core.Handle
	restored core.Handle
	disposed bool
}

func (b *binding) bind(session *renderer.Session, kind core.ResourceKind, evacuate, restore func() error) {
	b.session = session
	b.kind = kind
	b.lost = session.Subscribe(renderer.EventLost, func(*renderer.Session) error { return evacuate() })
	b.restored = session.Subscribe(renderer.EventRestored, func(*renderer.Session) error { return restore() })
	session.Counters().Inc(kind)
}

// unbind reports false when the handle was already disposed.
func (b *binding) unbind() bool {
	if b.disposed {
		return false
	}
	b.disposed = true
	b.session.Unsubscribe(renderer.EventLost, b.lost)
	b.session.Unsubscribe(renderer.EventRestored, b.restored)
	b.session.Counters().Dec(b.kind)
	return true
}

// Session is the session the handle is bound to.
func (b *binding) Session() *renderer.Session { return b.session }

func (b *binding) Disposed() bool { return b.disposed }

// usable returns the error for an operation that needs a live object.
func (b *binding) usable(live bool) error {
	if b.disposed {
		return core.ErrResourceDisposed
	}
	if !live {
		return core.ErrResourceEvacuated
	}
	return nil
}

func deviceOf(session *renderer.Session, kind core.ResourceKind, op string) (renderer.Device, error) {
	if session == nil {
		return nil, &core.AllocationError{Kind: kind, Op: op, Err: fmt.Errorf("nil session")}
	}
	device := session.Device()
	if device == nil {
		return nil, &core.AllocationError{Kind: kind, Op: op, Err: core.ErrNoDevice}
	}
	return device, nil
}

func allocationError(kind core.ResourceKind, op string, err error) error {
	return &core.AllocationError{Kind: kind, Op: op, Err: err}
}

// evacuationError keeps the handle consistent when reading back failed: the
// shadow is zero filled and the error reported.
func evacuationError(kind core.ResourceKind, err error) error {
	core.LogError("evacuating %s: %v", kind, err)
	return fmt.Errorf("evacuate %s: %w", kind, err)
}
