package copier

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinels a copy function may wrap to force a retry class. Errors from the
// operating system are classified by errno as well.
var (
	// ErrTransient marks resource-exhaustion style failures that are retried
	// through the scheduler queue.
	ErrTransient = errors.New("transient copy failure")
	// ErrBusy marks a busy resource that is retried after a backoff.
	ErrBusy = errors.New("resource busy")
)

// CopyError is the terminal failure of a copy.
type CopyError struct {
	Src     string
	Dst     string
	Retries int
	Err     error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s -> %s failed after %d retries: %v", e.Src, e.Dst, e.Retries, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

type errorClass int

const (
	classFatal errorClass = iota
	classTransient
	classBusy
)

func (c errorClass) String() string {
	switch c {
	case classTransient:
		return "transient"
	case classBusy:
		return "busy"
	default:
		return "fatal"
	}
}

func classify(err error) errorClass {
	switch {
	case errors.Is(err, ErrTransient), errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return classTransient
	case errors.Is(err, ErrBusy), errors.Is(err, syscall.EBUSY):
		return classBusy
	default:
		return classFatal
	}
}
