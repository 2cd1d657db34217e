package pty

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultExitGrace is how long Exit waits for the child to act on SIGHUP
// before escalating to SIGKILL.
const DefaultExitGrace = 2 * time.Second

const exitPollInterval = 10 * time.Millisecond

// Session presents the PTY master as a duplex, buffered byte channel to the
// child and manages the child's status and termination. Input goes through
// a line-buffered writer; output (the child's stdout and stderr, interleaved
// as PTY semantics dictate) comes back through a buffered reader.
//
// A session moves Spawned -> Interacting -> Exited; there is no way back
// from Exited. All methods are synchronous; the only concurrency is between
// the caller and the child process itself.
type Session struct {
	// ExitGrace bounds how long Exit waits after SIGHUP before killing the
	// child outright. Callers may adjust it before calling Exit.
	ExitGrace time.Duration

	proc   *Process
	wfile  *os.File
	writer *bufio.Writer
	reader *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// Spawn starts program with the given arguments on a fresh pseudo-terminal
// and returns a session for interacting with it. The environment is
// inherited.
func Spawn(program string, args ...string) (*Session, error) {
	return SpawnCommand(exec.Command(program, args...))
}

// SpawnCommand is like Spawn but takes a fully constructed command, letting
// the caller override directory, environment, or process attributes.
func SpawnCommand(cmd *exec.Cmd) (*Session, error) {
	proc, err := NewProcess(cmd)
	if err != nil {
		return nil, err
	}
	wfile, err := dupMaster(proc.Master())
	if err != nil {
		proc.Close()
		proc.Signal(syscall.SIGKILL)
		proc.waitReap()
		return nil, spawnError("open write stream", err)
	}
	return &Session{
		ExitGrace: DefaultExitGrace,
		proc:      proc,
		wfile:     wfile,
		writer:    bufio.NewWriter(wfile),
		reader:    bufio.NewReader(proc.Master()),
	}, nil
}

// dupMaster duplicates the master descriptor and wraps the duplicate in an
// *os.File. This is the only place a raw descriptor is turned into a typed
// file. Contract: f must be a valid open descriptor owned by the calling
// Process; the returned file owns the duplicate and must be closed exactly
// once, by Session.Exit.
func dupMaster(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), f.Name()), nil
}

// Pid returns the child's process identifier.
func (s *Session) Pid() int {
	return s.proc.Pid()
}

// SendLine writes the text's bytes to the child's terminal input. The write
// is line-buffered: a newline anywhere in the text flushes the buffer to
// the descriptor. No terminator is appended; callers whose target expects
// line-delimited input must include the newline themselves (or call Flush).
func (s *Session) SendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ioError("write line to child", io.ErrClosedPipe)
	}
	if _, err := s.writer.WriteString(line); err != nil {
		return ioError("write line to child", err)
	}
	if strings.ContainsRune(line, '\n') {
		if err := s.writer.Flush(); err != nil {
			return ioError("flush line to child", err)
		}
	}
	return nil
}

// Send writes raw bytes to the child's terminal input and flushes them
// immediately.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ioError("write to child", io.ErrClosedPipe)
	}
	if _, err := s.writer.Write(data); err != nil {
		return ioError("write to child", err)
	}
	if err := s.writer.Flush(); err != nil {
		return ioError("flush to child", err)
	}
	return nil
}

// Flush forces any buffered input out to the child.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ioError("flush to child", io.ErrClosedPipe)
	}
	if err := s.writer.Flush(); err != nil {
		return ioError("flush to child", err)
	}
	return nil
}

// Read reads available output from the child, blocking until data arrives
// or the descriptor is closed. Session implements io.Reader.
func (s *Session) Read(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ioError("read from child", io.ErrClosedPipe)
	}
	n, err := s.reader.Read(p)
	if err != nil && err != io.EOF {
		return n, ioError("read from child", err)
	}
	return n, err
}

// ReadLine reads one line of child output and returns it with the trailing
// newline (and the carriage return the terminal adds before it) trimmed.
func (s *Session) ReadLine() (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ioError("read line from child", io.ErrClosedPipe)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return line, ioError("read line from child", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Status polls the child's state without blocking. While the child runs it
// reports StillAlive; calling it repeatedly in a loop is the intended way
// to wait for termination.
func (s *Session) Status() (Status, error) {
	return s.proc.Status()
}

// Resize sets the terminal window size seen by the child.
func (s *Session) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ioError("resize pty", io.ErrClosedPipe)
	}
	return s.proc.Resize(cols, rows)
}

// Exit terminates the session: it sends SIGHUP (the disconnect a real
// terminal would deliver, giving the child its normal logout path), closes
// both descriptors, and reaps the child. If the child ignores the hangup
// past ExitGrace it is killed. After Exit all I/O on the session fails with
// an IO-kind error; calling Exit again is a no-op.
func (s *Session) Exit() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.proc.Signal(syscall.SIGHUP); err != nil {
		s.wfile.Close()
		s.proc.Close()
		return err
	}
	if err := s.wfile.Close(); err != nil {
		s.proc.Close()
		return ioError("close write stream", err)
	}
	if err := s.proc.Close(); err != nil {
		return err
	}
	return s.reap()
}

// reap waits out the grace period for the child to exit on its own, then
// escalates to SIGKILL and performs one blocking wait so no teardown path
// leaves a zombie.
func (s *Session) reap() error {
	grace := s.ExitGrace
	if grace <= 0 {
		grace = DefaultExitGrace
	}
	deadline := time.Now().Add(grace)
	for {
		st, err := s.proc.Status()
		if err != nil {
			return err
		}
		if st.Terminal() {
			return nil
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(exitPollInterval)
	}
	if err := s.proc.Signal(syscall.SIGKILL); err != nil {
		return err
	}
	_, err := s.proc.waitReap()
	return err
}
