package osc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Encode serializes m as one datagram: address block, type tag block, then
// the argument blocks in order.
func Encode(m Message) ([]byte, error) {
	if err := validateAddress(m.Address); err != nil {
		return nil, err
	}

	size := paddedLen(len(m.Address)) + paddedLen(len(m.Arguments)+1)
	for i, arg := range m.Arguments {
		switch v := arg.(type) {
		case Int, Float:
			size += 4
		case String:
			if err := validateString(string(v)); err != nil {
				return nil, fmt.Errorf("argument %d of %s: %w", i, m.Address, err)
			}
			size += paddedLen(len(v))
		default:
			return nil, fmt.Errorf("argument %d of %s: %w: %T", i, m.Address, ErrUnsupportedArgument, arg)
		}
	}

	buf := make([]byte, 0, size)
	buf = appendString(buf, m.Address)
	buf = appendString(buf, m.TypeTags())
	for _, arg := range m.Arguments {
		switch v := arg.(type) {
		case Int:
			buf = binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
		case Float:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		case String:
			buf = appendString(buf, string(v))
		}
	}
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m Message) MarshalBinary() ([]byte, error) {
	return Encode(m)
}

// paddedLen is the on-wire size of an n-byte string: the bytes, a NUL, then
// zero padding up to the next multiple of 4.
func paddedLen(n int) int {
	return (n + 4) &^ 3
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	pad := paddedLen(len(s)) - len(s)
	for range pad {
		buf = append(buf, 0)
	}
	return buf
}

func validateAddress(address string) error {
	switch {
	case address == "":
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	case address[0] != '/':
		return fmt.Errorf("%w: %q does not start with '/'", ErrInvalidAddress, address)
	case strings.ContainsAny(address, "\x00,"):
		return fmt.Errorf("%w: %q contains NUL or ','", ErrInvalidAddress, address)
	case !utf8.ValidString(address):
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidAddress, address)
	}
	return nil
}

func validateString(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: contains NUL", ErrInvalidString)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidString)
	}
	return nil
}
