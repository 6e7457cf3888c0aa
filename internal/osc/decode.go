package osc

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Decode parses one datagram produced by Encode. Anything else fails with a
// *DecodeError and a zero Message.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, decodeErr(0, ErrTruncated)
	}
	if len(data)%4 != 0 {
		return Message{}, decodeErr(len(data), ErrMisaligned)
	}

	comma := bytes.IndexByte(data, ',')
	if comma < 0 {
		return Message{}, decodeErr(0, ErrMissingTypeTags)
	}
	if comma%4 != 0 {
		return Message{}, decodeErr(comma, ErrMisaligned)
	}

	addrEnd := bytes.IndexByte(data[:comma], 0)
	if addrEnd < 0 {
		return Message{}, decodeErr(0, ErrUnterminatedString)
	}
	address := string(data[:addrEnd])
	if err := validateAddress(address); err != nil {
		return Message{}, decodeErr(0, err)
	}
	if comma != paddedLen(addrEnd) {
		return Message{}, decodeErr(paddedLen(addrEnd), ErrMisaligned)
	}
	if at := nonZeroAt(data, addrEnd, comma); at >= 0 {
		return Message{}, decodeErr(at, ErrNonZeroPadding)
	}

	tags, offset, err := readString(data, comma)
	if err != nil {
		return Message{}, err
	}

	args := make([]Argument, 0, len(tags)-1)
	for i := 1; i < len(tags); i++ {
		switch tags[i] {
		case 'i':
			if offset+4 > len(data) {
				return Message{}, decodeErr(offset, ErrTruncated)
			}
			args = append(args, Int(int32(binary.BigEndian.Uint32(data[offset:]))))
			offset += 4
		case 'f':
			if offset+4 > len(data) {
				return Message{}, decodeErr(offset, ErrTruncated)
			}
			args = append(args, Float(math.Float32frombits(binary.BigEndian.Uint32(data[offset:]))))
			offset += 4
		case 's':
			s, next, err := readString(data, offset)
			if err != nil {
				return Message{}, err
			}
			args = append(args, String(s))
			offset = next
		default:
			return Message{}, decodeErr(comma+i, ErrUnknownTypeTag)
		}
	}

	if offset != len(data) {
		return Message{}, decodeErr(offset, ErrTrailingBytes)
	}
	return Message{Address: address, Arguments: args}, nil
}

// readString reads a NUL-terminated, 4-byte padded string starting at
// offset and returns it with the offset of the following block.
func readString(data []byte, offset int) (string, int, error) {
	if offset >= len(data) {
		return "", 0, decodeErr(offset, ErrTruncated)
	}
	end := bytes.IndexByte(data[offset:], 0)
	if end < 0 {
		return "", 0, decodeErr(offset, ErrUnterminatedString)
	}
	raw := data[offset : offset+end]
	next := offset + paddedLen(end)
	if next > len(data) {
		return "", 0, decodeErr(offset, ErrTruncated)
	}
	if at := nonZeroAt(data, offset+end, next); at >= 0 {
		return "", 0, decodeErr(at, ErrNonZeroPadding)
	}
	if !utf8.Valid(raw) {
		return "", 0, decodeErr(offset, ErrInvalidString)
	}
	return string(raw), next, nil
}

// nonZeroAt returns the offset of the first nonzero byte in data[from:to],
// or -1 when the run is all NUL.
func nonZeroAt(data []byte, from, to int) int {
	for i := from; i < to; i++ {
		if data[i] != 0 {
			return i
		}
	}
	return -1
}
