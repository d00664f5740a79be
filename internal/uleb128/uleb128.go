// Package uleb128 implements the variable-length unsigned integer encoding
// used for record seeds: 7 data bits per byte, continuation bit set on every
// byte except the last, least-significant group first. Small seeds encode in
// one byte instead of a fixed four.
package uleb128

import (
	"errors"
	"io"
)

// MaxLen is the longest valid encoding of a uint32 (5 groups of 7 bits).
const MaxLen = 5

var (
	// ErrTooLong is returned for encodings longer than MaxLen bytes.
	ErrTooLong = errors.New("uleb128: encoding too long")
	// ErrOverflow is returned when the encoded value does not fit in a uint32.
	ErrOverflow = errors.New("uleb128: value overflows uint32")
	// ErrIncomplete is returned when the input ends mid-encoding.
	ErrIncomplete = errors.New("uleb128: incomplete encoding")
)

// Append appends the encoding of v to dst and returns the extended slice.
func Append(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// EncodedLen returns the number of bytes Append would use for v.
func EncodedLen(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Decode reads one encoded value from the front of buf, returning the value
// and the number of bytes consumed.
func Decode(buf []byte) (uint32, int, error) {
	var v uint32
	shift := 0
	for i, b := range buf {
		if i >= MaxLen {
			return 0, 0, ErrTooLong
		}
		// The 5th byte may only carry the top 4 bits of a uint32.
		if shift == 28 && b&0x7F > 0x0F {
			return 0, 0, ErrOverflow
		}
		v |= uint32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrIncomplete
}

// Read decodes one value from r.
func Read(r io.ByteReader) (uint32, error) {
	var v uint32
	shift := 0
	for i := 0; ; i++ {
		if i >= MaxLen {
			return 0, ErrTooLong
		}
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, ErrIncomplete
			}
			return 0, err
		}
		if shift == 28 && b&0x7F > 0x0F {
			return 0, ErrOverflow
		}
		v |= uint32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			return v, nil
		}
	}
}
