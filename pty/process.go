package pty

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"

	ptylib "github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Process owns the master side of a pseudo-terminal and the identity of the
// child running on its slave side. The two are created together by
// NewProcess and must be torn down together: Process is the sole authority
// for signaling and reaping the child and for closing the master.
type Process struct {
	master *os.File
	pid    int

	mu sync.Mutex
	// last holds the terminal status once observed. waitpid reaps the
	// child, so a second query against the kernel would fail with ECHILD;
	// polling after exit is the documented usage pattern, so the terminal
	// state is kept observable here.
	last   Status
	reaped bool
	closed bool
}

// NewProcess allocates a PTY pair and starts cmd with the slave side as its
// controlling terminal and stdin/stdout/stderr. On success the parent
// retains only the master descriptor; the slave is closed in the parent.
//
// The returned Process holds the only reference to the master and the only
// authority over the child PID. The caller must not wait on cmd itself.
func NewProcess(cmd *exec.Cmd) (*Process, error) {
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	master, err := ptylib.Start(cmd)
	if err != nil {
		return nil, spawnError("start "+cmd.Path+" on pty", err)
	}
	return &Process{
		master: master,
		pid:    cmd.Process.Pid,
	}, nil
}

// Pid returns the child's process identifier.
func (p *Process) Pid() int {
	return p.pid
}

// Master returns the master descriptor. The Process retains ownership; the
// caller must not close it.
func (p *Process) Master() *os.File {
	return p.master
}

// Status polls the child with a no-hang wait and returns immediately. While
// the child runs it reports StillAlive; after termination it reports the
// exit code or fatal signal. Once a terminal status has been observed it is
// returned on every subsequent call.
func (p *Process) Status() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Process) statusLocked() (Status, error) {
	if p.reaped {
		return p.last, nil
	}
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
	if err != nil {
		return Status{}, ioError("wait for child status", err)
	}
	if wpid == 0 {
		return Status{State: StillAlive}, nil
	}
	st := statusFromWait(ws)
	if st.Terminal() {
		p.last = st
		p.reaped = true
	}
	return st, nil
}

// Signal delivers sig to the child. A child that is already gone (ESRCH) is
// not an error: the desired outcome, a dead process, already holds.
func (p *Process) Signal(sig syscall.Signal) error {
	if err := unix.Kill(p.pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return ioError("signal child", err)
	}
	return nil
}

// waitReap blocks until the child terminates and records the result. Used
// by the teardown path after a kill, when termination is guaranteed.
func (p *Process) waitReap() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reaped {
		return p.last, nil
	}
	var ws unix.WaitStatus
	if _, err := unix.Wait4(p.pid, &ws, 0, nil); err != nil {
		return Status{}, ioError("reap child", err)
	}
	st := statusFromWait(ws)
	p.last = st
	p.reaped = true
	return st, nil
}

// Resize sets the terminal window size seen by the child.
func (p *Process) Resize(cols, rows uint16) error {
	err := ptylib.Setsize(p.master, &ptylib.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return ioError("resize pty", err)
	}
	return nil
}

// Close closes the master descriptor. Safe to call more than once; only the
// first call closes.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.master.Close(); err != nil {
		return ioError("close pty master", err)
	}
	return nil
}
