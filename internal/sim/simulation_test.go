package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eigensim/eigensim/internal/store"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// countingGenerator produces one value per component derived from the seed,
// so read-back can be checked record by record.
func countingGenerator(seed uint32, model Model, dim, steps int) []float64 {
	values := make([]float64, model.ValuesPerTrial(dim))
	for i := range values {
		values[i] = float64(seed) + float64(i)/10
	}
	return values
}

func TestFilename(t *testing.T) {
	cfg := Config{Model: InterceptNoTrend, Dim: 4, Steps: 500}
	got := cfg.Filename()
	want := "eigenvalues_model2_dim4_steps500.dat"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	bad := []Config{
		{Model: Model(5), Dim: 1, Steps: 1, Runs: 1},
		{Model: NoInterceptNoTrend, Dim: 0, Steps: 1, Runs: 1},
		{Model: NoInterceptNoTrend, Dim: 256, Steps: 1, Runs: 1},
		{Model: NoInterceptNoTrend, Dim: 1, Steps: 0, Runs: 1},
		{Model: NoInterceptNoTrend, Dim: 1, Steps: 1, Runs: 1<<32 + 1},
	}
	for i, cfg := range bad {
		if _, err := New(cfg, t.TempDir(), testLogger()); err == nil {
			t.Errorf("config %d accepted: %+v", i, cfg)
		}
	}
}

func TestRunProducesCompleteDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 3, Threads: 1}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Header 18 + 3 records of 10 bytes + footer 17.
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 65 {
		t.Errorf("file size %d, want 65", info.Size())
	}

	records, err := s.ReadExact()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Seed != uint32(i) {
			t.Errorf("record %d: seed %d", i, rec.Seed)
		}
		if len(rec.Values) != 1 || rec.Values[0] != float64(i) {
			t.Errorf("record %d: values %v", i, rec.Values)
		}
	}
}

func TestRunSkipsCompleteDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: InterceptNoTrend, Dim: 2, Steps: 20, Runs: 10, Threads: 2}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("rerun changed file size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("rerun changed file contents at byte %d", i)
		}
	}
}

func TestRunResumesTruncatedDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 2, Steps: 15, Runs: 40, Threads: 3}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Chop off the footer and part of the last record to fake a crash.
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(s.Path(), info.Size()-25); err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	records, err := s.ReadExact()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 40 {
		t.Fatalf("got %d records, want 40", len(records))
	}
	seen := make(map[uint32]bool)
	for _, rec := range records {
		if seen[rec.Seed] {
			t.Fatalf("seed %d appears twice", rec.Seed)
		}
		seen[rec.Seed] = true
		want := countingGenerator(rec.Seed, cfg.Model, cfg.Dim, cfg.Steps)
		if len(rec.Values) != len(want) {
			t.Fatalf("seed %d: %d values, want %d", rec.Seed, len(rec.Values), len(want))
		}
		for i := range want {
			if rec.Values[i] != want[i] {
				t.Errorf("seed %d value %d: got %v, want %v", rec.Seed, i, rec.Values[i], want[i])
			}
		}
	}
	for seed := uint32(0); seed < 40; seed++ {
		if !seen[seed] {
			t.Errorf("seed %d missing", seed)
		}
	}
}

func TestRunResumesNonPrefixSeedSet(t *testing.T) {
	// With concurrent workers an interrupted file can hold, say, seeds
	// {0, 2} but not 1. Resuming must generate exactly the missing seeds,
	// not re-derive them from the record count.
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 3, Threads: 2}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	file, err := store.OpenOrCreate(s.Path(), store.Header{Model: 0, Dim: 1, Steps: 10}, store.Options{Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	err = file.Append([]store.Record{
		{Seed: 0, Values: countingGenerator(0, cfg.Model, cfg.Dim, cfg.Steps)},
		{Seed: 2, Values: countingGenerator(2, cfg.Model, cfg.Dim, cfg.Steps)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, err := s.ReadExact()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	counts := make(map[uint32]int)
	for _, rec := range records {
		counts[rec.Seed]++
	}
	for seed := uint32(0); seed < 3; seed++ {
		if counts[seed] != 1 {
			t.Errorf("seed %d appears %d times, want 1", seed, counts[seed])
		}
	}
}

func TestRunInterruptedThenResumed(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 30, Threads: 2}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}

	// The interrupted file must be resumable to completion.
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, err := s.ReadExact()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 30 {
		t.Errorf("got %d records, want 30", len(records))
	}
}

func TestRunRecreatesCorruptDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 5, Threads: 1}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Generator = GeneratorFunc(countingGenerator)
	s.Progress = NopProgress

	// A file from some other tool under the same name.
	if err := os.WriteFile(s.Path(), []byte("not a dataset"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, err := s.ReadExact()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Errorf("got %d records, want 5", len(records))
	}
}

func TestReadExactShortfall(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 5}
	s, err := New(cfg, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	// A partial, unfinalized dataset: two records, no footer.
	file, err := store.OpenOrCreate(s.Path(), store.Header{Model: 0, Dim: 1, Steps: 10}, store.Options{Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	err = file.Append([]store.Record{
		{Seed: 0, Values: []float64{0.5}},
		{Seed: 1, Values: []float64{1.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ReadExact(); !errors.Is(err, store.ErrShortfall) {
		t.Fatalf("got %v, want ErrShortfall", err)
	}
	records, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("ReadAll got %d records, want 2", len(records))
	}
}

func TestPathJoinsDataDir(t *testing.T) {
	cfg := Config{Model: NoInterceptNoTrend, Dim: 1, Steps: 10, Runs: 1}
	s, err := New(cfg, "/data/sims", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/data/sims", cfg.Filename())
	if s.Path() != want {
		t.Errorf("got %q, want %q", s.Path(), want)
	}
}
