package osc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress      = errors.New("osc: invalid address")
	ErrUnsupportedArgument = errors.New("osc: unsupported argument type")
	ErrInvalidString       = errors.New("osc: invalid string argument")

	ErrMisaligned         = errors.New("osc: block not aligned to 4 bytes")
	ErrMissingTypeTags    = errors.New("osc: missing type tag string")
	ErrUnterminatedString = errors.New("osc: unterminated string")
	ErrTruncated          = errors.New("osc: truncated data")
	ErrUnknownTypeTag     = errors.New("osc: unknown type tag")
	ErrTrailingBytes      = errors.New("osc: trailing bytes after arguments")
	ErrNonZeroPadding     = errors.New("osc: nonzero padding byte")

	ErrArgumentIndex = errors.New("osc: argument index out of range")
	ErrArgumentType  = errors.New("osc: argument type mismatch")
)

// DecodeError reports a malformed datagram. No partial message accompanies it.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err came from Decode rejecting its input.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

func decodeErr(offset int, err error) error {
	return &DecodeError{Offset: offset, Err: err}
}
