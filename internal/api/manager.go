// Package api exposes PTY sessions to external tooling over a Unix socket
// using a small JSON request/response protocol, and keeps the registry of
// live sessions.
package api

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/ptyexpect/pty"
)

// ManagedSession pairs a PTY session with a bounded buffer of unread child
// output. A background goroutine pumps output from the PTY into the buffer
// so the read action can return available bytes without blocking.
type ManagedSession struct {
	ID string

	sess *pty.Session
	log  *zap.Logger

	mu      sync.Mutex
	buf     []byte
	maxBuf  int
	readErr error
	done    chan struct{}
}

func (s *ManagedSession) readLoop() {
	defer close(s.done)

	buf := make([]byte, 4096)
	for {
		n, err := s.sess.Read(buf)
		if n > 0 {
			s.append(buf[:n])
		}
		if err != nil {
			// EOF or EIO here means the child released the slave side,
			// which is the normal end of a session's output.
			if err != io.EOF && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Debug("session read loop ended", zap.String("id", s.ID), zap.Error(err))
			}
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
	}
}

// append adds child output to the buffer, dropping the oldest bytes once
// the cap is exceeded.
func (s *ManagedSession) append(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, data...)
	if len(s.buf) > s.maxBuf {
		s.buf = s.buf[len(s.buf)-s.maxBuf:]
	}
}

// Drain returns all buffered output and clears the buffer.
func (s *ManagedSession) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = nil
	return out
}

// Write forwards raw bytes to the session.
func (s *ManagedSession) Write(data []byte) error {
	return s.sess.Send(data)
}

// Status polls the underlying session.
func (s *ManagedSession) Status() (pty.Status, error) {
	return s.sess.Status()
}

// Resize sets the child's terminal window size.
func (s *ManagedSession) Resize(cols, rows uint16) error {
	return s.sess.Resize(cols, rows)
}

// Pid returns the child's process identifier.
func (s *ManagedSession) Pid() int {
	return s.sess.Pid()
}

// Exit terminates the session and waits for its read loop to finish.
func (s *ManagedSession) Exit() error {
	err := s.sess.Exit()
	<-s.done
	return err
}

// Manager manages active PTY sessions in a thread-safe manner.
type Manager struct {
	log       *zap.Logger
	bufSize   int
	exitGrace time.Duration

	mu       sync.RWMutex
	sessions map[string]*ManagedSession
}

// NewManager creates a session manager. bufSize caps the per-session output
// buffer; exitGrace is passed through to each session's teardown.
func NewManager(log *zap.Logger, bufSize int, exitGrace time.Duration) *Manager {
	return &Manager{
		log:       log,
		bufSize:   bufSize,
		exitGrace: exitGrace,
		sessions:  make(map[string]*ManagedSession),
	}
}

// Spawn starts program (or the detected shell when program is empty) on a
// fresh PTY and registers the session under a new ID.
func (m *Manager) Spawn(program string, args []string) (*ManagedSession, error) {
	var sess *pty.Session
	var err error
	if program == "" {
		sess, err = pty.SpawnShell()
	} else {
		sess, err = pty.Spawn(program, args...)
	}
	if err != nil {
		return nil, err
	}
	if m.exitGrace > 0 {
		sess.ExitGrace = m.exitGrace
	}

	ms := &ManagedSession{
		ID:     uuid.New().String(),
		sess:   sess,
		log:    m.log,
		maxBuf: m.bufSize,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[ms.ID] = ms
	m.mu.Unlock()

	go ms.readLoop()

	m.log.Info("spawned session",
		zap.String("id", ms.ID),
		zap.String("program", program),
		zap.Int("pid", sess.Pid()))
	return ms, nil
}

// Get retrieves a session by ID. Returns nil if not found.
func (m *Manager) Get(id string) *ManagedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// List returns all registered sessions. Sessions whose child has exited on
// its own stay listed until an exit action removes them, so their final
// status remains queryable.
func (m *Manager) List() []*ManagedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]*ManagedSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Exit terminates the session with the given ID and removes it from the
// registry.
func (m *Manager) Exit(id string) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return errors.New("session not found")
	}

	err := ms.Exit()
	m.log.Info("session exited", zap.String("id", id))
	return err
}

// ExitAll terminates every registered session. Used on daemon shutdown.
func (m *Manager) ExitAll() {
	for _, ms := range m.List() {
		if err := m.Exit(ms.ID); err != nil {
			m.log.Warn("session cleanup failed", zap.String("id", ms.ID), zap.Error(err))
		}
	}
}
