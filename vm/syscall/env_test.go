package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvOverlaySetAndGet(t *testing.T) {
	e := NewEnvOverlay()
	e.Set("PATH", "/usr/bin")

	v, ok := e.Get("PATH")
	require.True(t, ok)
	require.Equal(t, "/usr/bin", v)
}

func TestEnvOverlayUnsetTombstonesKey(t *testing.T) {
	e := NewEnvOverlay()
	e.Set("FOO", "bar")
	e.Unset("FOO")

	_, ok := e.Get("FOO")
	require.False(t, ok)
}

func TestEnvOverlaySnapshotDropsTombstones(t *testing.T) {
	e := NewEnvOverlay()
	e.Set("A", "1")
	e.Set("B", "2")
	e.Unset("B")

	snap := e.Snapshot()
	require.Equal(t, map[string]string{"A": "1"}, snap)
}

func TestEnvOverlayGetMissingKey(t *testing.T) {
	e := NewEnvOverlay()
	_, ok := e.Get("NOPE")
	require.False(t, ok)
}
