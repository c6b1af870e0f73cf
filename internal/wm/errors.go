package wm

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchClient  = errors.New("no such client")
	ErrNoSuchMonitor = errors.New("no such monitor")
	ErrNoSuchTag     = errors.New("no such tag")
	ErrNoMonitor     = errors.New("no monitor available")
	ErrNoFocus       = errors.New("no focused client")
)

// InvariantError is the panic value raised when a caller breaks the core's
// state machine, for example by mapping a client twice or by using a handle
// whose client has already been destroyed.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("wm: %s: %s", e.Op, e.Msg)
}

func invariantf(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
