package pty

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// State describes what a no-hang status poll observed about the child.
type State int

const (
	// StillAlive means the child has not changed state since the last poll.
	StillAlive State = iota
	// Exited means the child terminated normally with an exit code.
	Exited
	// Signaled means the child was terminated by a signal.
	Signaled
	// Stopped means the child was stopped by a signal (job control).
	Stopped
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StillAlive:
		return "alive"
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is the result of polling a child process with a no-hang wait.
type Status struct {
	State State
	// ExitCode is valid when State is Exited.
	ExitCode int
	// Signal is valid when State is Signaled or Stopped.
	Signal syscall.Signal
}

// Running reports whether the child can still change state. Stopped
// processes count as running: they can be continued.
func (s Status) Running() bool {
	return s.State == StillAlive || s.State == Stopped
}

// Terminal reports whether the child has reached a final state.
func (s Status) Terminal() bool {
	return s.State == Exited || s.State == Signaled
}

// String renders the status for logs and error messages.
func (s Status) String() string {
	switch s.State {
	case Exited:
		return fmt.Sprintf("exited(%d)", s.ExitCode)
	case Signaled:
		return fmt.Sprintf("signaled(%s)", unix.SignalName(s.Signal))
	case Stopped:
		return fmt.Sprintf("stopped(%s)", unix.SignalName(s.Signal))
	default:
		return s.State.String()
	}
}

// statusFromWait decodes the wait status reported by waitpid.
func statusFromWait(ws unix.WaitStatus) Status {
	switch {
	case ws.Exited():
		return Status{State: Exited, ExitCode: ws.ExitStatus()}
	case ws.Signaled():
		return Status{State: Signaled, Signal: ws.Signal()}
	case ws.Stopped():
		return Status{State: Stopped, Signal: ws.StopSignal()}
	default:
		return Status{State: StillAlive}
	}
}
