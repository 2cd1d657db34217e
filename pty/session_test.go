package pty

import (
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitTerminal polls the session until the child reaches a terminal state.
func waitTerminal(t *testing.T, s *Session) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := s.Status()
		require.NoError(t, err)
		if st.Terminal() {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatal("child did not reach a terminal state in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSpawnEchoRoundTrip(t *testing.T) {
	s, err := Spawn("cat")
	require.NoError(t, err)
	defer s.Exit()

	require.NoError(t, s.SendLine("hans\n"))

	// The terminal's line discipline echoes the input, so the first line
	// readable from the session is the text just sent.
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hans", line)
}

func TestStatusWhileRunning(t *testing.T) {
	s, err := Spawn("sleep", "5")
	require.NoError(t, err)
	defer s.Exit()

	start := time.Now()
	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, StillAlive, st.State)
	assert.True(t, st.Running())
	assert.Less(t, time.Since(start), time.Second, "status poll must not block")
}

func TestStatusAfterNaturalExit(t *testing.T) {
	s, err := Spawn("sh", "-c", "exit 3")
	require.NoError(t, err)
	defer s.Exit()

	st := waitTerminal(t, s)
	assert.Equal(t, Exited, st.State)
	assert.Equal(t, 3, st.ExitCode)

	t.Run("terminal status stays observable", func(t *testing.T) {
		again, err := s.Status()
		require.NoError(t, err)
		assert.Equal(t, st, again)
	})
}

func TestExitTerminatesChild(t *testing.T) {
	s, err := Spawn("sleep", "60")
	require.NoError(t, err)

	require.NoError(t, s.Exit())

	st, err := s.Status()
	require.NoError(t, err)
	assert.True(t, st.Terminal(), "child still runnable after Exit: %s", st)
	if st.State == Signaled {
		assert.Equal(t, syscall.SIGHUP, st.Signal)
	}
}

func TestExitIsIdempotent(t *testing.T) {
	s, err := Spawn("cat")
	require.NoError(t, err)

	require.NoError(t, s.Exit())
	require.NoError(t, s.Exit())
}

func TestIOFailsCleanlyAfterExit(t *testing.T) {
	s, err := Spawn("cat")
	require.NoError(t, err)
	require.NoError(t, s.Exit())

	err = s.SendLine("too late\n")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindIO, perr.Kind)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))

	_, err = s.ReadLine()
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}

func TestSpawnNonexistentProgram(t *testing.T) {
	_, err := Spawn("/nonexistent/program/for/sure")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindSpawn, perr.Kind)
}

func TestSendLineBuffersUntilNewline(t *testing.T) {
	s, err := Spawn("cat")
	require.NoError(t, err)
	defer s.Exit()

	// Without a newline the text stays in the writer's buffer.
	require.NoError(t, s.SendLine("pen"))
	require.NoError(t, s.SendLine("ding\n"))

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "pending", line)
}

func TestSendRawBytes(t *testing.T) {
	s, err := Spawn("cat")
	require.NoError(t, err)
	defer s.Exit()

	require.NoError(t, s.Send([]byte("raw\n")))

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "raw", line)
}

func TestSpawnShell(t *testing.T) {
	s, err := SpawnShell()
	require.NoError(t, err)
	defer s.Exit()

	st, err := s.Status()
	require.NoError(t, err)
	assert.True(t, st.Running())
	assert.Greater(t, s.Pid(), 0)
}
