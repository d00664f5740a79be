package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/eigensim/eigensim/internal/uleb128"
)

// Record is one trial's result as stored on disk: the seed that produced it
// and its ordered value vector.
type Record struct {
	Seed   uint32
	Values []float64
}

// EncodedSize returns the number of bytes AppendRecord will use for r.
func (r Record) EncodedSize() int {
	return uleb128.EncodedLen(r.Seed) + 1 + 8*len(r.Values)
}

// AppendRecord appends the binary encoding of r to dst. The value count must
// fit in one byte.
func AppendRecord(dst []byte, r Record) ([]byte, error) {
	if len(r.Values) > math.MaxUint8 {
		return dst, fmt.Errorf("record seed %d: %d values exceeds maximum of %d",
			r.Seed, len(r.Values), math.MaxUint8)
	}
	dst = uleb128.Append(dst, r.Seed)
	dst = append(dst, byte(len(r.Values)))
	for _, v := range r.Values {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst, nil
}

// DecodeRecord decodes one record from the front of buf, returning the record
// and the number of bytes consumed. A malformed seed encoding or a declared
// value count the remaining bytes cannot satisfy is a format error.
func DecodeRecord(buf []byte) (Record, int, error) {
	seed, n, err := uleb128.Decode(buf)
	if err != nil {
		return Record{}, 0, fmt.Errorf("%w: seed: %v", ErrFormat, err)
	}
	if n >= len(buf) {
		return Record{}, 0, fmt.Errorf("%w: truncated record (no value count)", ErrFormat)
	}
	count := int(buf[n])
	n++
	if len(buf)-n < 8*count {
		return Record{}, 0, fmt.Errorf("%w: record declares %d values, %d bytes remain",
			ErrFormat, count, len(buf)-n)
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[n:]))
		n += 8
	}
	return Record{Seed: seed, Values: values}, n, nil
}
