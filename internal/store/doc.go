// Package store implements the append-only binary dataset files that hold
// Monte Carlo trial records.
//
// File layout (all integers and floats little-endian):
//
//	Header (18 bytes):
//	  - Magic (12): "EIGENVALS_V6"
//	  - Model (1): model selector
//	  - Dim (1): matrix dimension
//	  - Steps (4): time step count
//	Records (variable, one per trial):
//	  - Seed: ULEB128-encoded uint32 (1-5 bytes)
//	  - Count (1): number of values, identical across the whole file
//	  - Values: Count x 8-byte IEEE-754 doubles
//	Footer (17 bytes, written once on completion):
//	  - Marker (8): "EOF_MARK"
//	  - Total (8): record count
//	  - ValuesPerRecord (1)
//
// A file with a footer is complete and trusted for fast reads. A file without
// one is a resumable partial run: opening it scans the record stream, truncates
// any torn trailing record, and reports the surviving count and seed set so a
// resume generates exactly the seeds still missing. Header
// parameters that disagree with the requested configuration mean the bytes
// belong to a different dataset; the write path recreates the file, the read
// path fails hard. Older format versions are rejected the same way, never
// migrated.
package store
