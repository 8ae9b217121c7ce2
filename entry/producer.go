package entry

import (
	"fmt"
	"runtime/debug"
)

/*
Producer computes the value of a deferred entry.

It is called at most once per entry, no matter how many goroutines ask for
the value concurrently. It is never retried: once it fails the entry is
dead and the next compute call for the key installs a fresh entry.
*/
type Producer func() (any, error)

// PanicError is the failure delivered to every waiter when a Producer panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("entry: producer panicked: %v", e.Value)
}

// invoke runs p, turning a panic into a *PanicError.
func invoke(p Producer) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return p()
}
