package fiscat

import (
	"errors"
	"fmt"
)

var (
	ErrDecode             = errors.New("fiscat: decode command")
	ErrMissingField       = errors.New("fiscat: missing required field")
	ErrInvalidTotalPrice  = errors.New("fiscat: total_price must be an integer")
	ErrUnknownPaymentKind = errors.New("fiscat: unknown payment_kind")
)

// DecodeError reports why one incoming payload could not become a Command.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrDecode, e.Err)
	}
	return fmt.Sprintf("%v: field=%s: %v", ErrDecode, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
