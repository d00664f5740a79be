package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/eigensim/eigensim/internal/uleb128"
)

const (
	minReadBufferSize = 64 * 1024
	maxReadBufferSize = 16 * 1024 * 1024
)

// readBufferSize picks a read buffer for the file size: 64KB for small files,
// size/8 capped at 4MB for medium ones, 16MB for anything over 100MB.
func readBufferSize(size int64) int {
	const oneMB = 1 << 20
	switch {
	case size < oneMB:
		return minReadBufferSize
	case size < 100*oneMB:
		n := int(size / 8)
		if n < minReadBufferSize {
			return minReadBufferSize
		}
		if n > 4*oneMB {
			return 4 * oneMB
		}
		return n
	default:
		return maxReadBufferSize
	}
}

// scanner sequentially decodes records from a data section, tracking the byte
// offset of the last complete record so recovery can truncate behind it.
type scanner struct {
	r        *bufio.Reader
	vpr      int   // enforced value count, fixed by the first record
	consumed int64 // data-section bytes through the last good record
	count    uint64
	footer   bool  // stopped at the footer marker
	err      error // underlying IO failure, not torn data
}

func newScanner(r io.ReaderAt, off, size int64) *scanner {
	sec := io.NewSectionReader(r, off, size-off)
	return &scanner{
		r:   bufio.NewReaderSize(sec, readBufferSize(size)),
		vpr: -1,
	}
}

// next decodes one record. ok=false means the scan stopped: clean EOF, the
// footer marker, a torn or inconsistent trailing record, or an IO error
// (reported by sc.err).
func (sc *scanner) next() (Record, bool) {
	peek, err := sc.r.Peek(len(eofMarker))
	if len(peek) == 0 {
		if err != io.EOF && err != nil {
			sc.err = err
		}
		return Record{}, false
	}
	if len(peek) == len(eofMarker) && string(peek) == eofMarker {
		sc.footer = true
		return Record{}, false
	}

	seed, err := uleb128.Read(sc.r)
	if err != nil {
		sc.ioErr(err)
		return Record{}, false
	}
	cb, err := sc.r.ReadByte()
	if err != nil {
		sc.ioErr(err)
		return Record{}, false
	}
	count := int(cb)
	// A zero count is either a torn record or the blank preallocated tail;
	// actual records always carry at least one value.
	if count == 0 {
		return Record{}, false
	}
	if sc.vpr >= 0 && count != sc.vpr {
		return Record{}, false
	}

	valbuf := make([]byte, 8*count)
	if _, err := io.ReadFull(sc.r, valbuf); err != nil {
		sc.ioErr(err)
		return Record{}, false
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(valbuf[8*i:]))
	}

	if sc.vpr < 0 {
		sc.vpr = count
	}
	sc.consumed += int64(uleb128.EncodedLen(seed)) + 1 + int64(8*count)
	sc.count++
	return Record{Seed: seed, Values: values}, true
}

// ioErr records genuine IO failures; truncation mid-record is an expected
// stop condition, not an error.
func (sc *scanner) ioErr(err error) {
	switch {
	case err == io.EOF, err == io.ErrUnexpectedEOF:
	case errors.Is(err, uleb128.ErrIncomplete):
	case errors.Is(err, uleb128.ErrTooLong), errors.Is(err, uleb128.ErrOverflow):
		// Malformed seed: treat as the corruption boundary.
	default:
		sc.err = err
	}
}

// Iterator lazily decodes records from a dataset file. With a consistent
// footer it reads exactly the declared total (fast path); without one it
// scans until the stream ends (scan path). Callers own Close.
type Iterator struct {
	f  *os.File
	sc *scanner

	fast      bool
	remaining uint64
	vpr       int

	err error
}

// OpenIterator opens path read-only and validates its header against want.
// Unlike the write path, a mismatch here is a hard failure with both value
// sets in the message, never a recreation.
func OpenIterator(path string, want Header) (*Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()

	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: file shorter than header", ErrFormat)
	}
	if _, err := validateHeader(hdr, want); err != nil {
		f.Close()
		return nil, err
	}

	it := &Iterator{f: f, vpr: -1}
	if ft, ok := readFooterAt(f, size); ok && footerConsistent(ft, size) {
		it.fast = true
		it.remaining = ft.Total
		it.vpr = int(ft.ValuesPerRecord)
	}
	it.sc = newScanner(f, HeaderSize, size)
	it.sc.vpr = it.vpr
	return it, nil
}

// Next returns the next record, or nil when the sequence ends.
func (it *Iterator) Next() *Record {
	if it.err != nil {
		return nil
	}
	if it.fast {
		if it.remaining == 0 {
			return nil
		}
		rec, ok := it.sc.next()
		if !ok {
			// The footer promised more records than the stream holds.
			if it.sc.err != nil {
				it.err = it.sc.err
			} else {
				it.err = fmt.Errorf("%w: stream ended with %d records still declared",
					ErrFormat, it.remaining)
			}
			return nil
		}
		it.remaining--
		return &rec
	}

	rec, ok := it.sc.next()
	if !ok {
		it.err = it.sc.err
		return nil
	}
	return &rec
}

// Err reports an IO or consistency failure that ended iteration early. A
// clean EOF, the footer marker, or a torn trailing record on the scan path
// all end iteration without error.
func (it *Iterator) Err() error { return it.err }

// Close releases the underlying file handle.
func (it *Iterator) Close() error { return it.f.Close() }

// QuickCount returns the record total declared by a consistent footer at
// path, without decoding any records. ok is false for partial files.
func QuickCount(path string) (total uint64, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, false, err
	}
	ft, ok := readFooterAt(f, info.Size())
	if !ok || !footerConsistent(ft, info.Size()) {
		return 0, false, nil
	}
	return ft.Total, true, nil
}

// ReadAll decodes every record in the dataset at path, however many there
// are, using the fast path when a footer is present.
func ReadAll(path string, want Header) ([]Record, error) {
	it, err := OpenIterator(path, want)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var records []Record
	for rec := it.Next(); rec != nil; rec = it.Next() {
		records = append(records, *rec)
	}
	return records, it.Err()
}
