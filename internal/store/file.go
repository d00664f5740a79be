package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog"
)

const defaultFlushBytes = 512 * 1024

// Options configures a writable dataset file.
type Options struct {
	// ExpectedRuns and ExpectedValuesPerRun size the preallocation hint for
	// newly created files. Zero disables preallocation.
	ExpectedRuns         uint64
	ExpectedValuesPerRun int

	// FlushBytes is the write buffer threshold. Default 512KiB.
	FlushBytes int

	Logger zerolog.Logger
}

// File owns a single writable dataset file for its lifetime. It is the only
// writer; all appends go through its private buffer and a tracked logical
// offset, so a preallocated tail never mixes with record bytes.
type File struct {
	path string
	f    *os.File
	log  zerolog.Logger

	header     Header
	flushBytes int

	valuesPerRecord int   // -1 until fixed by the first record or recovery
	offset          int64 // logical end of the data section
	physical        int64 // current on-disk length (>= offset when preallocated)
	count           uint64
	seeds           *roaring.Bitmap // set by PrepareAppend's scan
	buf             []byte
	finalized       bool
}

// OpenOrCreate opens the dataset at path for appending, creating it with a
// fresh header if it does not exist. An existing file whose header fails
// validation is recreated from scratch: a magic or parameter mismatch means
// the bytes belong to a different dataset sharing the name.
func OpenOrCreate(path string, h Header, opts Options) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return create(path, h, opts)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, HeaderSize)
	_, rerr := io.ReadFull(f, hdr)
	if rerr == nil {
		_, rerr = validateHeader(hdr, h)
	} else if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
		rerr = fmt.Errorf("%w: file shorter than header", ErrFormat)
	}
	if rerr != nil {
		f.Close()
		if errors.Is(rerr, ErrFormat) || errors.Is(rerr, ErrParamMismatch) {
			// Not silently: the old bytes are a different dataset.
			opts.Logger.Warn().Str("path", path).Err(rerr).
				Msg("incompatible dataset file, recreating")
			if err := os.Remove(path); err != nil {
				return nil, err
			}
			return create(path, h, opts)
		}
		return nil, rerr
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{
		path:            path,
		f:               f,
		log:             opts.Logger,
		header:          h,
		flushBytes:      flushBytes(opts),
		valuesPerRecord: -1,
		offset:          info.Size(),
		physical:        info.Size(),
	}, nil
}

func create(path string, h Header, opts Options) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(encodeHeader(h)); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}

	physical := int64(HeaderSize)
	if opts.ExpectedRuns > 0 && opts.ExpectedValuesPerRun > 0 {
		// Performance hint only; the logical offset tracks real bytes and
		// Finalize trims any unused tail.
		size := ExpectedFileSize(opts.ExpectedRuns, opts.ExpectedValuesPerRun)
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("preallocate %s to %d bytes: %w", path, size, err)
		}
		physical = size
		opts.Logger.Debug().Str("path", path).Int64("bytes", size).Msg("preallocated dataset file")
	}

	return &File{
		path:            path,
		f:               f,
		log:             opts.Logger,
		header:          h,
		flushBytes:      flushBytes(opts),
		valuesPerRecord: -1,
		offset:          HeaderSize,
		physical:        physical,
	}, nil
}

func flushBytes(opts Options) int {
	if opts.FlushBytes > 0 {
		return opts.FlushBytes
	}
	return defaultFlushBytes
}

// Path returns the dataset file path.
func (s *File) Path() string { return s.path }

// Count returns the number of records known to be in the file, including
// recovered ones.
func (s *File) Count() uint64 { return s.count }

// ValuesPerRecord returns the fixed per-record value count, or -1 if no
// record has been seen yet.
func (s *File) ValuesPerRecord() int { return s.valuesPerRecord }

// FastReadCount returns the authoritative record total if a footer is present
// and consistent with the file's length, trusting it without rescanning.
func (s *File) FastReadCount() (uint64, bool) {
	ft, ok := readFooterAt(s.f, s.physical)
	if !ok {
		return 0, false
	}
	if !footerConsistent(ft, s.physical) {
		return 0, false
	}
	return ft.Total, true
}

// readFooterAt decodes the footer at the tail of a file of the given size.
func readFooterAt(r io.ReaderAt, size int64) (Footer, bool) {
	if size < HeaderSize+FooterSize {
		return Footer{}, false
	}
	buf := make([]byte, FooterSize)
	if _, err := r.ReadAt(buf, size-FooterSize); err != nil {
		return Footer{}, false
	}
	ft, err := decodeFooter(buf)
	if err != nil {
		return Footer{}, false
	}
	return ft, true
}

// footerConsistent checks that the footer's declared count is compatible with
// the data-section length given the per-record value width.
func footerConsistent(ft Footer, size int64) bool {
	dataLen := size - HeaderSize - FooterSize
	if ft.ValuesPerRecord == 0 {
		return ft.Total == 0 && dataLen == 0
	}
	vpr := int(ft.ValuesPerRecord)
	total := int64(ft.Total)
	return dataLen >= total*minRecordSize(vpr) && dataLen <= total*maxRecordSize(vpr)
}

// Append encodes and buffers records, flushing to disk once the buffer
// crosses the flush threshold. The per-record value count is fixed by the
// first record ever written and enforced thereafter.
func (s *File) Append(records []Record) error {
	if s.finalized {
		return fmt.Errorf("append to %s: %w", s.path, ErrFinalized)
	}
	for _, r := range records {
		if s.valuesPerRecord < 0 {
			s.valuesPerRecord = len(r.Values)
		} else if len(r.Values) != s.valuesPerRecord {
			return fmt.Errorf("%w: record seed %d has %d values, file %s has %d per record",
				ErrFormat, r.Seed, len(r.Values), s.path, s.valuesPerRecord)
		}
		var err error
		s.buf, err = AppendRecord(s.buf, r)
		if err != nil {
			return err
		}
		s.count++
	}
	if len(s.buf) >= s.flushBytes {
		return s.Flush()
	}
	return nil
}

// Flush writes buffered records to disk. A failed flush is fatal to the run;
// it is never retried.
func (s *File) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.f.WriteAt(s.buf, s.offset)
	s.offset += int64(n)
	if s.offset > s.physical {
		s.physical = s.offset
	}
	if err != nil {
		return fmt.Errorf("flush %d bytes to %s: %w", len(s.buf), s.path, err)
	}
	s.buf = s.buf[:0]
	return nil
}

// Finalize flushes all pending records, trims any preallocated tail, and
// appends the footer. It fails if the file already has one; the footer is
// written exactly once per completed dataset.
func (s *File) Finalize(total uint64) error {
	if s.finalized {
		return fmt.Errorf("finalize %s: %w", s.path, ErrFinalized)
	}
	if err := s.Flush(); err != nil {
		return err
	}
	if _, ok := s.FastReadCount(); ok {
		return fmt.Errorf("finalize %s: footer present: %w", s.path, ErrFinalized)
	}

	vpr := s.valuesPerRecord
	if vpr < 0 {
		vpr = 0
	}
	if vpr == 0 && total > 0 {
		return fmt.Errorf("%w: finalize with %d records but no value width", ErrFormat, total)
	}

	if s.physical > s.offset {
		if err := s.f.Truncate(s.offset); err != nil {
			return fmt.Errorf("trim preallocation of %s: %w", s.path, err)
		}
		s.physical = s.offset
	}
	// Data must be durable before the footer claims completeness.
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}

	ft := encodeFooter(Footer{Total: total, ValuesPerRecord: uint8(vpr)})
	if _, err := s.f.WriteAt(ft, s.offset); err != nil {
		return fmt.Errorf("write footer to %s: %w", s.path, err)
	}
	s.offset += FooterSize
	s.physical = s.offset
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	s.finalized = true

	s.log.Info().Str("path", s.path).Uint64("records", total).Msg("dataset finalized")
	return nil
}

// Close flushes pending records and releases the file handle. A file closed
// without Finalize stays in the resumable header+records state.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	ferr := s.Flush()
	serr := s.f.Sync()
	cerr := s.f.Close()
	s.f = nil
	if ferr != nil {
		return ferr
	}
	if serr != nil {
		return serr
	}
	return cerr
}
