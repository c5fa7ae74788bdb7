package core

import "sync"

// Key code definitions. Only the keys the engine binds are listed.
type KeyCode uint16

const (
	KEY_ENTER  KeyCode = 0x0D
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_F      KeyCode = 0x46
	KEY_L      KeyCode = 0x4C
	KEY_S      KeyCode = 0x53
	KEY_F5     KeyCode = 0x74
	KEY_F11    KeyCode = 0x7A

	KEYS_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	keys [KEYS_MAX_KEYS]bool
}

/**
 * @brief Keyboard state for the current and the previous frame. Written by the
 * platform callbacks, read by the engine once per frame.
 */
type InputState struct {
	mu       sync.Mutex
	current  keyboardState
	previous keyboardState
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update copies the current state to the previous one. Call once per frame,
// after the frame consumed the input.
func (s *InputState) Update() {
	s.mu.Lock()
	s.previous = s.current
	s.mu.Unlock()
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	s.mu.Lock()
	s.current.keys[key] = pressed
	s.mu.Unlock()
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	if key >= KEYS_MAX_KEYS {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.keys[key]
}

// WasKeyPressed is true on the frame a key goes down.
func (s *InputState) WasKeyPressed(key KeyCode) bool {
	if key >= KEYS_MAX_KEYS {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.keys[key] && !s.previous.keys[key]
}
