// Package osc implements the OSC-style datagram format used between the
// controller and the host: a slash-delimited address, a type tag string, and
// big-endian int32/float32/string arguments, every block padded to 4 bytes.
package osc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Argument is one typed message argument. The set of implementations is
// closed: Int, Float and String.
type Argument interface {
	Tag() byte
	isArgument()
}

// Int is a 32-bit signed integer argument (tag 'i').
type Int int32

// Float is a 32-bit IEEE-754 argument (tag 'f').
type Float float32

// String is a UTF-8 string argument (tag 's').
type String string

func (Int) Tag() byte    { return 'i' }
func (Float) Tag() byte  { return 'f' }
func (String) Tag() byte { return 's' }

func (Int) isArgument()    {}
func (Float) isArgument()  {}
func (String) isArgument() {}

// Message is one datagram worth of address and arguments.
type Message struct {
	Address   string
	Arguments []Argument
}

// NewMessage builds a message from plain Go values. Accepted values are
// int, int32, int64 (within int32 range), float32, float64, string, bool
// (sent as 0/1) and Argument values. Anything else fails with
// ErrUnsupportedArgument.
func NewMessage(address string, values ...any) (Message, error) {
	args := make([]Argument, 0, len(values))
	for i, v := range values {
		arg, err := toArgument(v)
		if err != nil {
			return Message{}, fmt.Errorf("argument %d of %s: %w", i, address, err)
		}
		args = append(args, arg)
	}
	return Message{Address: address, Arguments: args}, nil
}

func toArgument(v any) (Argument, error) {
	switch val := v.(type) {
	case Argument:
		return val, nil
	case int32:
		return Int(val), nil
	case int:
		if val < math.MinInt32 || val > math.MaxInt32 {
			return nil, fmt.Errorf("%w: int %d overflows int32", ErrUnsupportedArgument, val)
		}
		return Int(int32(val)), nil
	case int64:
		if val < math.MinInt32 || val > math.MaxInt32 {
			return nil, fmt.Errorf("%w: int64 %d overflows int32", ErrUnsupportedArgument, val)
		}
		return Int(int32(val)), nil
	case bool:
		if val {
			return Int(1), nil
		}
		return Int(0), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(float32(val)), nil
	case string:
		return String(val), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedArgument, v)
	}
}

// TypeTags returns the tag string for the message, including the leading comma.
func (m Message) TypeTags() string {
	var b strings.Builder
	b.Grow(len(m.Arguments) + 1)
	b.WriteByte(',')
	for _, arg := range m.Arguments {
		b.WriteByte(arg.Tag())
	}
	return b.String()
}

func (m Message) argument(i int) (Argument, error) {
	if i < 0 || i >= len(m.Arguments) {
		return nil, fmt.Errorf("%w: %d of %d", ErrArgumentIndex, i, len(m.Arguments))
	}
	return m.Arguments[i], nil
}

// ReadInt32 returns argument i as an int32.
func (m Message) ReadInt32(i int) (int32, error) {
	arg, err := m.argument(i)
	if err != nil {
		return 0, err
	}
	v, ok := arg.(Int)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d is %q, want 'i'", ErrArgumentType, i, arg.Tag())
	}
	return int32(v), nil
}

// ReadFloat32 returns argument i as a float32.
func (m Message) ReadFloat32(i int) (float32, error) {
	arg, err := m.argument(i)
	if err != nil {
		return 0, err
	}
	v, ok := arg.(Float)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d is %q, want 'f'", ErrArgumentType, i, arg.Tag())
	}
	return float32(v), nil
}

// ReadString returns argument i as a string.
func (m Message) ReadString(i int) (string, error) {
	arg, err := m.argument(i)
	if err != nil {
		return "", err
	}
	v, ok := arg.(String)
	if !ok {
		return "", fmt.Errorf("%w: argument %d is %q, want 's'", ErrArgumentType, i, arg.Tag())
	}
	return string(v), nil
}

// ReadNumber accepts either an int or a float argument.
func (m Message) ReadNumber(i int) (float64, error) {
	arg, err := m.argument(i)
	if err != nil {
		return 0, err
	}
	switch v := arg.(type) {
	case Int:
		return float64(v), nil
	case Float:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: argument %d is %q, want numeric", ErrArgumentType, i, arg.Tag())
	}
}

// ReadBool treats a nonzero int argument as true.
func (m Message) ReadBool(i int) (bool, error) {
	v, err := m.ReadInt32(i)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Equal compares address and arguments. Floats compare by bit pattern so a
// decoded NaN equals the NaN that was encoded.
func (m Message) Equal(other Message) bool {
	if m.Address != other.Address || len(m.Arguments) != len(other.Arguments) {
		return false
	}
	for i, arg := range m.Arguments {
		switch a := arg.(type) {
		case Float:
			b, ok := other.Arguments[i].(Float)
			if !ok || math.Float32bits(float32(a)) != math.Float32bits(float32(b)) {
				return false
			}
		default:
			if arg != other.Arguments[i] {
				return false
			}
		}
	}
	return true
}

// String renders the message for logs, e.g. `/live/tempo ,f 150`.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Address)
	b.WriteByte(' ')
	b.WriteString(m.TypeTags())
	for _, arg := range m.Arguments {
		b.WriteByte(' ')
		switch v := arg.(type) {
		case Int:
			b.WriteString(strconv.FormatInt(int64(v), 10))
		case Float:
			b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		case String:
			b.WriteString(strconv.Quote(string(v)))
		}
	}
	return b.String()
}
