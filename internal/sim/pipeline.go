package sim

import (
	"context"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/eigensim/eigensim/internal/store"
)

const (
	defaultQueueSize = 1024
	writeBatchSize   = 1000
)

// runPipeline produces records for every seed in [0, cfg.Runs) not already in
// have, with a fixed pool of generator workers feeding one writer goroutine.
// The writer is the sole owner of the file's append/finalize operations;
// workers never touch the file and block only on the bounded queues, which
// throttle generation to disk throughput.
//
// A feeder walks the seed space in ascending order and skips seeds already on
// disk, so a resumed run generates exactly the missing seeds: the records of
// an interrupted run land in arrival order from concurrent producers, and the
// surviving seed set is an arbitrary subset of [0, done), never assumed to be
// a prefix.
func runPipeline(ctx context.Context, cfg Config, gen Generator, file *store.File, done uint64, have *roaring.Bitmap, progress ProgressFunc) error {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	seeds := make(chan uint32, queueSize)
	records := make(chan store.Record, queueSize)

	// The writer cancels this context on a write failure so blocked
	// producers unwind instead of deadlocking on a full queue.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(wctx)
	g.Go(func() error {
		defer close(seeds)
		for seed := uint64(0); seed < cfg.Runs; seed++ {
			if have != nil && have.Contains(uint32(seed)) {
				continue
			}
			select {
			case seeds <- uint32(seed):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for seed := range seeds {
				rec := store.Record{
					Seed:   seed,
					Values: gen.Generate(seed, cfg.Model, cfg.Dim, cfg.Steps),
				}
				select {
				case records <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- writeLoop(cfg, file, records, done, progress, cancel)
	}()

	genErr := g.Wait()
	close(records)
	if err := <-writeErr; err != nil {
		return err
	}
	if genErr != nil && genErr != context.Canceled {
		return genErr
	}
	// Interrupted by the caller: the file stays resumable.
	return ctx.Err()
}

// writeLoop drains the queue, appending in batches and finalizing once the
// running total reaches the target. An append or flush failure is fatal to
// the run; it is reported, never retried.
func writeLoop(cfg Config, file *store.File, records <-chan store.Record, from uint64, progress ProgressFunc, cancel context.CancelFunc) error {
	done := from
	batch := make([]store.Record, 0, writeBatchSize)

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := file.Append(batch); err != nil {
			cancel()
			return err
		}
		done += uint64(len(batch))
		batch = batch[:0]
		progress(done, cfg.Runs)
		return nil
	}

	for rec := range records {
		batch = append(batch, rec)
		if len(batch) == writeBatchSize {
			if err := flushBatch(); err != nil {
				return err
			}
		}
	}
	if err := flushBatch(); err != nil {
		return err
	}

	if done >= cfg.Runs {
		return file.Finalize(cfg.Runs)
	}
	// Interrupted mid-run: make what we have durable and leave the file in
	// the resumable header+records state.
	return file.Flush()
}
