package store

import (
	"encoding/binary"
	"fmt"

	"github.com/eigensim/eigensim/internal/uleb128"
)

const (
	// Magic identifies the current format version. Anything else, including
	// older EIGENVALS_* revisions, is rejected and recreated, never migrated.
	Magic = "EIGENVALS_V6"

	eofMarker = "EOF_MARK"

	HeaderSize = 18 // magic(12) + model(1) + dim(1) + steps(4)
	FooterSize = 17 // marker(8) + total(8) + valuesPerRecord(1)
)

// Header holds the dataset parameters stored in the fixed file header.
type Header struct {
	Model uint8
	Dim   uint8
	Steps uint32
}

func (h Header) String() string {
	return fmt.Sprintf("model=%d dim=%d steps=%d", h.Model, h.Dim, h.Steps)
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:12], Magic)
	buf[12] = h.Model
	buf[13] = h.Dim
	binary.LittleEndian.PutUint32(buf[14:18], h.Steps)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header too short (%d bytes)", ErrFormat, len(buf))
	}
	if string(buf[0:12]) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q, want %q", ErrFormat, buf[0:12], Magic)
	}
	return Header{
		Model: buf[12],
		Dim:   buf[13],
		Steps: binary.LittleEndian.Uint32(buf[14:18]),
	}, nil
}

// validateHeader decodes buf and checks it against the expected parameters.
func validateHeader(buf []byte, want Header) (Header, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return Header{}, err
	}
	if h != want {
		return h, fmt.Errorf("%w: file has %v, want %v", ErrParamMismatch, h, want)
	}
	return h, nil
}

// Footer is the trailing structure that marks a dataset as complete.
type Footer struct {
	Total           uint64
	ValuesPerRecord uint8
}

func encodeFooter(f Footer) []byte {
	buf := make([]byte, FooterSize)
	copy(buf[0:8], eofMarker)
	binary.LittleEndian.PutUint64(buf[8:16], f.Total)
	buf[16] = f.ValuesPerRecord
	return buf
}

func decodeFooter(buf []byte) (Footer, error) {
	if len(buf) < FooterSize {
		return Footer{}, fmt.Errorf("%w: footer too short (%d bytes)", ErrFormat, len(buf))
	}
	if string(buf[0:8]) != eofMarker {
		return Footer{}, fmt.Errorf("%w: no end marker", ErrFormat)
	}
	f := Footer{
		Total:           binary.LittleEndian.Uint64(buf[8:16]),
		ValuesPerRecord: buf[16],
	}
	if f.ValuesPerRecord == 0 && f.Total > 0 {
		return Footer{}, fmt.Errorf("%w: footer declares %d records with zero values each", ErrFormat, f.Total)
	}
	return f, nil
}

// minRecordSize and maxRecordSize bound the on-disk size of one record with
// the given value count (the seed varint spans 1-5 bytes).
func minRecordSize(valuesPerRecord int) int64 {
	return int64(1 + 1 + 8*valuesPerRecord)
}

func maxRecordSize(valuesPerRecord int) int64 {
	return int64(uleb128.MaxLen + 1 + 8*valuesPerRecord)
}

// ExpectedFileSize estimates the finished size of a dataset, used to
// preallocate disk space ahead of a large run. Seeds are assumed to take the
// width of the largest seed in the run; actual bytes may undershoot this.
func ExpectedFileSize(runs uint64, valuesPerRecord int) int64 {
	seedLen := uleb128.MaxLen
	if runs <= 1<<32 {
		max := uint32(0)
		if runs > 0 {
			max = uint32(runs - 1)
		}
		seedLen = uleb128.EncodedLen(max)
	}
	record := int64(seedLen+1) + int64(8*valuesPerRecord)
	return HeaderSize + record*int64(runs) + FooterSize
}
