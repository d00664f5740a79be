package store

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// PrepareAppend readies the file for appending toward target records and
// returns the number already present (the resume point).
//
// A consistent footer is authoritative: if it already covers the target the
// file is left untouched and done=true is returned; otherwise the footer is
// stripped so appending can continue behind it. Without a footer the file is
// an interrupted run: the data section is scanned record by record, any torn
// trailing record is truncated away, and — for the rare crash between the
// last record and the footer write — a scan that already reaches the target
// finalizes immediately instead of regenerating.
//
// Every resume path scans the surviving records and collects their seeds
// (RecoveredSeeds): records land on disk in arrival order from concurrent
// producers, so the seeds present are an arbitrary subset of the seed space,
// not a prefix of it. Callers must generate the complement, never
// [recovered, target).
func (s *File) PrepareAppend(target uint64) (recovered uint64, done bool, err error) {
	if ft, ok := readFooterAt(s.f, s.physical); ok && footerConsistent(ft, s.physical) {
		if ft.Total >= target {
			s.finalized = true
			s.count = ft.Total
			s.valuesPerRecord = int(ft.ValuesPerRecord)
			return ft.Total, true, nil
		}
		// Shorter than the new target: strip the end marker and rescan the
		// (all-valid) data section to learn which seeds are present.
		s.offset = s.physical - FooterSize
		if err := s.f.Truncate(s.offset); err != nil {
			return 0, false, fmt.Errorf("strip footer of %s: %w", s.path, err)
		}
		s.physical = s.offset
		s.log.Info().Str("path", s.path).Uint64("records", ft.Total).
			Msg("removed end marker to resume appending")
		recovered, err = s.recoverScan()
		return recovered, false, err
	}

	recovered, err = s.recoverScan()
	if err != nil {
		return 0, false, err
	}
	if recovered > 0 {
		s.log.Info().Str("path", s.path).Uint64("records", recovered).
			Uint64("target", target).Msg("resuming interrupted run")
	}
	if recovered >= target {
		// Crash landed exactly after the last record but before the footer.
		if err := s.Finalize(recovered); err != nil {
			return recovered, false, err
		}
		return recovered, true, nil
	}
	return recovered, false, nil
}

// RecoveredSeeds returns the seeds of the records PrepareAppend found on
// disk, or nil before PrepareAppend ran or when it reported done.
func (s *File) RecoveredSeeds() *roaring.Bitmap { return s.seeds }

// recoverScan sequentially decodes the data section, keeps every complete
// record and its seed, and truncates the file at the first torn or
// inconsistent one. The truncation is an expected resume event, not an error.
func (s *File) recoverScan() (uint64, error) {
	sc := newScanner(s.f, HeaderSize, s.physical)
	seeds := roaring.New()
	for {
		rec, ok := sc.next()
		if !ok {
			break
		}
		seeds.Add(rec.Seed)
	}
	if sc.err != nil {
		return 0, fmt.Errorf("scan %s: %w", s.path, sc.err)
	}

	end := HeaderSize + sc.consumed
	if end < s.physical {
		if err := s.f.Truncate(end); err != nil {
			return 0, fmt.Errorf("truncate %s to %d: %w", s.path, end, err)
		}
		s.log.Info().Str("path", s.path).
			Int64("dropped_bytes", s.physical-end).Uint64("records", sc.count).
			Msg("truncated incomplete trailing data")
	}
	s.offset = end
	s.physical = end
	s.count = sc.count
	s.valuesPerRecord = sc.vpr
	s.seeds = seeds
	return sc.count, nil
}
