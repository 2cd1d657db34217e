package pty

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessOwnsMasterAndPid(t *testing.T) {
	p, err := NewProcess(exec.Command("sleep", "5"))
	require.NoError(t, err)
	defer func() {
		p.Signal(syscall.SIGKILL)
		p.waitReap()
		p.Close()
	}()

	assert.Greater(t, p.Pid(), 0)
	require.NotNil(t, p.Master())

	st, err := p.Status()
	require.NoError(t, err)
	assert.Equal(t, StillAlive, st.State)
}

func TestProcessSignalAndReap(t *testing.T) {
	p, err := NewProcess(exec.Command("sleep", "60"))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Signal(syscall.SIGTERM))

	st, err := p.waitReap()
	require.NoError(t, err)
	assert.Equal(t, Signaled, st.State)
	assert.Equal(t, syscall.SIGTERM, st.Signal)

	t.Run("signal after reap is not an error", func(t *testing.T) {
		assert.NoError(t, p.Signal(syscall.SIGTERM))
	})
}

func TestProcessResize(t *testing.T) {
	p, err := NewProcess(exec.Command("sleep", "5"))
	require.NoError(t, err)
	defer func() {
		p.Signal(syscall.SIGKILL)
		p.waitReap()
		p.Close()
	}()

	assert.NoError(t, p.Resize(120, 40))
}

func TestProcessCloseIsIdempotent(t *testing.T) {
	p, err := NewProcess(exec.Command("true"))
	require.NoError(t, err)

	// Let the child finish and be reaped before closing.
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := p.Status()
		require.NoError(t, err)
		if st.Terminal() {
			break
		}
		require.False(t, time.Now().After(deadline), "true did not exit")
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
