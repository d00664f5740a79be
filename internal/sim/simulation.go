package sim

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/eigensim/eigensim/internal/store"
)

// Config binds one simulation: the statistical model, its parameters, and
// the target run count. Model, dim and steps determine the dataset file;
// runs and threads are runtime targets, not part of file identity.
type Config struct {
	Model Model
	Dim   int
	Steps int
	Runs  uint64

	Threads   int // generator workers, 0 = logical core count
	QueueSize int // producer->writer queue bound, 0 = 1024
}

// Filename returns the dataset file base name for this configuration.
func (c Config) Filename() string {
	return fmt.Sprintf("eigenvalues_model%d_dim%d_steps%d.dat", uint8(c.Model), c.Dim, c.Steps)
}

func (c Config) header() store.Header {
	return store.Header{Model: uint8(c.Model), Dim: uint8(c.Dim), Steps: uint32(c.Steps)}
}

func (c Config) validate() error {
	if _, ok := ModelFromNumber(uint8(c.Model)); !ok {
		return fmt.Errorf("invalid model selector %d", c.Model)
	}
	if c.Dim < 1 || c.Dim > math.MaxUint8 {
		return fmt.Errorf("dim %d out of range 1-255", c.Dim)
	}
	if c.Steps < 1 || int64(c.Steps) > math.MaxUint32 {
		return fmt.Errorf("steps %d out of range 1-%d", c.Steps, uint32(math.MaxUint32))
	}
	if c.Runs > 1<<32 {
		return fmt.Errorf("runs %d exceeds the 2^32 seed space", c.Runs)
	}
	return nil
}

// Simulation is the facade over one dataset: it resolves the filename,
// drives recovery -> pipeline -> finalize on Run, and exposes read-back of
// what is on disk. Read methods never generate as a side effect.
type Simulation struct {
	cfg     Config
	dataDir string
	log     zerolog.Logger

	// Generator produces one trial per seed. Defaults to BrownianGenerator.
	Generator Generator
	// Progress receives the writer's running total. When nil, progress is
	// logged every ProgressEvery records.
	Progress ProgressFunc
	// ProgressEvery is the default progress logging interval. 0 = 1000.
	ProgressEvery uint64
}

// New validates cfg and returns a Simulation storing its dataset under dataDir.
func New(cfg Config, dataDir string, log zerolog.Logger) (*Simulation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Simulation{
		cfg:       cfg,
		dataDir:   dataDir,
		log:       log,
		Generator: BrownianGenerator{},
	}, nil
}

// Path returns the full dataset file path.
func (s *Simulation) Path() string {
	return filepath.Join(s.dataDir, s.cfg.Filename())
}

// Config returns the bound configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Run generates or resumes the dataset to the target run count, finalizing
// it on completion. An interruption via ctx leaves the file resumable; a
// rerun picks up where it stopped with the same seed sequence.
func (s *Simulation) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir %s: %w", s.dataDir, err)
	}
	path := s.Path()

	file, err := store.OpenOrCreate(path, s.cfg.header(), store.Options{
		ExpectedRuns:         s.cfg.Runs,
		ExpectedValuesPerRun: s.cfg.Model.ValuesPerTrial(s.cfg.Dim),
		Logger:               s.log,
	})
	if err != nil {
		return err
	}

	recovered, done, err := file.PrepareAppend(s.cfg.Runs)
	if err != nil {
		file.Close()
		return err
	}
	if done {
		file.Close()
		s.log.Info().Str("path", path).Uint64("records", recovered).
			Msg("dataset already complete, skipping")
		return nil
	}

	s.log.Info().
		Str("path", path).
		Str("model", s.cfg.Model.String()).
		Int("dim", s.cfg.Dim).
		Int("steps", s.cfg.Steps).
		Uint64("target", s.cfg.Runs).
		Uint64("resume_from", recovered).
		Msg("starting simulation")

	progress := s.Progress
	if progress == nil {
		progress = NewLogProgress(s.log, recovered, s.ProgressEvery)
	}

	runErr := runPipeline(ctx, s.cfg, s.Generator, file, recovered, file.RecoveredSeeds(), progress)
	closeErr := file.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	// Post-run validation: the footer must now declare exactly the target.
	total, ok, err := store.QuickCount(path)
	if err != nil {
		return err
	}
	if !ok || total != s.cfg.Runs {
		return fmt.Errorf("%w: dataset %s finished with %d records, want %d",
			store.ErrFormat, path, total, s.cfg.Runs)
	}
	s.log.Info().Str("path", path).Uint64("records", total).Msg("simulation complete")
	return nil
}

// ReadAll returns every record that decodes from the dataset, however many
// exist, whether or not the file is complete.
func (s *Simulation) ReadAll() ([]store.Record, error) {
	return store.ReadAll(s.Path(), s.cfg.header())
}

// ReadExact returns the dataset's records, failing with ErrShortfall unless
// at least the target run count is present.
func (s *Simulation) ReadExact() ([]store.Record, error) {
	records, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	if uint64(len(records)) < s.cfg.Runs {
		return nil, fmt.Errorf("%w: %s has %d records, want %d",
			store.ErrShortfall, s.Path(), len(records), s.cfg.Runs)
	}
	return records, nil
}
