package pty

import "fmt"

// Kind categorizes errors returned by this package.
type Kind int

const (
	// KindSpawn covers failures while establishing a session: PTY
	// allocation, fork, or starting the child program.
	KindSpawn Kind = iota
	// KindIO covers failures on an established session: write, read,
	// status query, signal delivery, descriptor close.
	KindIO
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the error type returned by all fallible operations in this
// package. It carries the failure category, the operation that was being
// attempted, and the underlying OS error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func spawnError(op string, err error) error {
	return &Error{Kind: KindSpawn, Op: op, Err: err}
}

func ioError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}
