// Package bcd implements the packed binary-coded-decimal encoding used
// for IMSIs on the gateway's datagram interface. Digits are packed two
// per byte, low digit in the low nibble, with 0xF filling the high
// nibble of the last byte when the digit count is odd.
package bcd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyIMSI is returned when encoding an empty string or
	// decoding a payload that yields no digits.
	ErrEmptyIMSI = errors.New("imsi cannot be empty")

	// ErrInvalidDigit is returned when encoding a string containing
	// non-decimal characters.
	ErrInvalidDigit = errors.New("imsi must contain only digits 0-9")

	// ErrInvalidNibble is returned when decoding a byte whose nibble
	// is neither a decimal digit nor the trailing filler.
	ErrInvalidNibble = errors.New("invalid bcd nibble")
)

const filler = 0x0F

// Encode packs an IMSI digit string into swapped-nibble BCD bytes.
// An odd-length IMSI gets a 0xF filler in the high nibble of the
// final byte.
func Encode(imsi string) ([]byte, error) {
	if imsi == "" {
		return nil, ErrEmptyIMSI
	}

	for i := 0; i < len(imsi); i++ {
		if imsi[i] < '0' || imsi[i] > '9' {
			return nil, fmt.Errorf("%w: byte 0x%02X at position %d", ErrInvalidDigit, imsi[i], i)
		}
	}

	out := make([]byte, 0, (len(imsi)+1)/2)
	for i := 0; i < len(imsi); i += 2 {
		low := imsi[i] - '0'
		high := byte(filler)
		if i+1 < len(imsi) {
			high = imsi[i+1] - '0'
		}
		out = append(out, high<<4|low)
	}
	return out, nil
}

// Decode unpacks swapped-nibble BCD bytes into an IMSI digit string.
// Decoding stops at the first 0xF high nibble; any remaining bytes are
// ignored. Nibbles outside 0-9 that are not the trailing filler are an
// error.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyIMSI
	}

	var sb strings.Builder
	sb.Grow(len(data) * 2)

	for i, b := range data {
		low := b & 0x0F
		high := b >> 4

		if low > 9 {
			return "", fmt.Errorf("%w: low nibble 0x%X in byte %d", ErrInvalidNibble, low, i)
		}
		sb.WriteByte('0' + low)

		if high == filler {
			break
		}
		if high > 9 {
			return "", fmt.Errorf("%w: high nibble 0x%X in byte %d", ErrInvalidNibble, high, i)
		}
		sb.WriteByte('0' + high)
	}

	return sb.String(), nil
}
