package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/rekindle/engine/core"
)

func TestTranslateKey(t *testing.T) {
	code, ok := translateKey(glfw.KeyEscape)
	assert.True(t, ok)
	assert.Equal(t, core.KEY_ESCAPE, code)

	code, ok = translateKey(glfw.KeyF11)
	assert.True(t, ok)
	assert.Equal(t, core.KEY_F11, code)

	_, ok = translateKey(glfw.KeyQ)
	assert.False(t, ok)
}

func TestBoolHint(t *testing.T) {
	assert.Equal(t, glfw.True, boolHint(true))
	assert.Equal(t, glfw.False, boolHint(false))
}
