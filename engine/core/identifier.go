package core

import "github.com/google/uuid"

// Handle identifies a registration. It stays stable for the registration's
// whole life, unlike the callback value it refers to.
type Handle uuid.UUID

// InvalidHandle is never returned by NewHandle.
var InvalidHandle = Handle(uuid.Nil)

func NewHandle() Handle {
	return Handle(uuid.New())
}

func (h Handle) IsValid() bool {
	return h != InvalidHandle
}

func (h Handle) String() string {
	return uuid.UUID(h).String()
}
