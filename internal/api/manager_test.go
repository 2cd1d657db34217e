package api

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T) *Manager {
	return NewManager(zaptest.NewLogger(t), 1024, time.Second)
}

// drainUntil polls the session's output buffer until want shows up.
func drainUntil(t *testing.T, ms *ManagedSession, want string) {
	t.Helper()
	var got []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		got = append(got, ms.Drain()...)
		if bytes.Contains(got, []byte(want)) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("output %q never appeared, got %q", want, got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerSpawnWriteRead(t *testing.T) {
	m := newTestManager(t)
	defer m.ExitAll()

	ms, err := m.Spawn("cat", nil)
	require.NoError(t, err)
	require.NotEmpty(t, ms.ID)
	assert.Equal(t, 1, m.Count())

	require.NoError(t, ms.Write([]byte("ping\n")))
	drainUntil(t, ms, "ping")
}

func TestManagerExitRemovesSession(t *testing.T) {
	m := newTestManager(t)

	ms, err := m.Spawn("sleep", []string{"60"})
	require.NoError(t, err)

	require.NoError(t, m.Exit(ms.ID))
	assert.Nil(t, m.Get(ms.ID))
	assert.Equal(t, 0, m.Count())

	st, err := ms.Status()
	require.NoError(t, err)
	assert.True(t, st.Terminal())
}

func TestManagerExitUnknownSession(t *testing.T) {
	m := newTestManager(t)
	require.Error(t, m.Exit("no-such-id"))
}

func TestManagerNaturalExitKeepsSessionListed(t *testing.T) {
	m := newTestManager(t)
	defer m.ExitAll()

	ms, err := m.Spawn("sh", []string{"-c", "exit 7"})
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := ms.Status()
		require.NoError(t, err)
		if st.Terminal() {
			assert.Equal(t, 7, st.ExitCode)
			break
		}
		require.False(t, time.Now().After(deadline), "child did not exit")
		time.Sleep(10 * time.Millisecond)
	}

	// The final status stays queryable until an explicit exit.
	assert.NotNil(t, m.Get(ms.ID))
}

func TestOutputBufferDropsOldestBytes(t *testing.T) {
	ms := &ManagedSession{maxBuf: 8}
	ms.append([]byte("abcdefgh"))
	ms.append([]byte("ij"))
	assert.Equal(t, []byte("cdefghij"), ms.Drain())
	assert.Empty(t, ms.Drain())
}
