package resources

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/renderer/software"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func newTestSession(t *testing.T) (*renderer.Session, *software.Driver) {
	t.Helper()
	driver := software.New(software.Config{})
	session, err := renderer.NewSession(&renderer.SessionConfig{
		Sleep: func(time.Duration) {},
	}, driver, renderer.NewHeadlessHost(320, 240), metadata.DefaultDeviceSettings())
	require.NoError(t, err)
	require.NoError(t, session.Setup())
	return session, driver
}

// recreate drops the device and creates a new one, as after a device loss.
func recreate(t *testing.T, session *renderer.Session) {
	t.Helper()
	require.NoError(t, session.ForceDeviceUpdate())
	require.NotNil(t, session.Device())
}

func pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)*7 + seed
	}
	return out
}
