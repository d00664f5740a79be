package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ProgressFunc receives monotonically increasing completed-record counts,
// driven by the writer's running total so reported progress never runs ahead
// of what is durably appended.
type ProgressFunc func(done, total uint64)

// NopProgress discards progress updates.
func NopProgress(done, total uint64) {}

// NewLogProgress returns a ProgressFunc that logs every `every` completed
// records and at completion, with percentage and a remaining-time estimate
// based on throughput since the run (or resume) started at `start`.
func NewLogProgress(log zerolog.Logger, start, every uint64) ProgressFunc {
	if every == 0 {
		every = 1000
	}
	startedAt := time.Now()
	return func(done, total uint64) {
		if done != total && (done-start)%every != 0 {
			return
		}
		ev := log.Info().
			Uint64("done", done).
			Uint64("total", total).
			Str("percent", fmt.Sprintf("%.2f%%", float64(done)/float64(total)*100))
		if done > start && done < total {
			elapsed := time.Since(startedAt)
			perRecord := elapsed / time.Duration(done-start)
			ev = ev.Dur("eta", perRecord*time.Duration(total-done))
		}
		ev.Msg("simulation progress")
	}
}
