package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eigensim/eigensim/internal/logx"
	"github.com/eigensim/eigensim/internal/sim"
	"github.com/eigensim/eigensim/internal/stats"
	"github.com/rs/zerolog"
)

func main() {
	var (
		dataDir  = flag.String("data-dir", "./data", "Directory for dataset files")
		model    = flag.Int("model", -1, "Model selector 0-4 (-1 = all models)")
		dim      = flag.Int("dim", 3, "Matrix dimension")
		steps    = flag.Int("steps", 1000, "Time steps per trial")
		runs     = flag.Uint64("runs", 100000, "Target trial count per model")
		threads  = flag.Int("threads", 0, "Generator workers (0 = logical cores)")
		quiet    = flag.Bool("quiet", false, "Only log warnings and errors")
		summary  = flag.Bool("summary", true, "Log percentile summary after each model")
		progress = flag.Uint64("progress-every", 10000, "Log progress every N records")
	)
	flag.Parse()

	var logger zerolog.Logger
	if *quiet {
		logger = logx.NewQuietLogger()
	} else {
		logger = logx.NewLogger()
	}

	models := sim.AllModels()
	if *model >= 0 {
		m, ok := sim.ModelFromNumber(uint8(*model))
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid model %d (valid: 0-4)\n", *model)
			os.Exit(1)
		}
		models = []sim.Model{m}
	}

	// An interrupted run leaves resumable files; rerunning picks up where
	// it stopped.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, m := range models {
		s, err := sim.New(sim.Config{
			Model:   m,
			Dim:     *dim,
			Steps:   *steps,
			Runs:    *runs,
			Threads: *threads,
		}, *dataDir, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid configuration")
		}
		if *quiet {
			s.Progress = sim.NopProgress
		} else if *progress > 0 {
			s.ProgressEvery = *progress
		}

		if err := s.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn().Str("path", s.Path()).
					Msg("interrupted, dataset left resumable")
				os.Exit(130)
			}
			logger.Fatal().Err(err).Uint8("model", uint8(m)).Msg("simulation failed")
		}

		if *summary && !*quiet {
			logSummary(logger, s)
		}
	}
}

// logSummary reads the finished dataset back and logs the critical values of
// the eigenvalue-sum distribution.
func logSummary(logger zerolog.Logger, s *sim.Simulation) {
	records, err := s.ReadExact()
	if err != nil {
		logger.Error().Err(err).Msg("read back for summary")
		return
	}
	sums := make([]float64, len(records))
	for i, rec := range records {
		sums[i] = stats.Sum(rec.Values)
	}
	values := stats.Percentiles(sums, stats.DefaultPercentiles)
	ev := logger.Info().Uint8("model", uint8(s.Config().Model)).Int("trials", len(sums))
	for i, p := range stats.DefaultPercentiles {
		ev = ev.Float64(fmt.Sprintf("p%g", p*100), values[i])
	}
	ev.Msg("eigenvalue sum percentiles")
}
