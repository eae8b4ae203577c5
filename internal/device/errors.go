package device

import (
	"errors"
	"fmt"
)

var (
	ErrOpen        = errors.New("device: open failed")
	ErrWrite       = errors.New("device: write failed")
	ErrShortWrite  = errors.New("device: short write")
	ErrInvalidPath = errors.New("device: invalid path")
)

// Error is one failed write attempt against Path.
type Error struct {
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v path=%q", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v path=%q: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
