package advisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// WarmupJob pre-fetches snapshots for the default universes so user
// requests hit a warm cache instead of waiting on provider quotas.
type WarmupJob struct {
	engine  *Engine
	timeout time.Duration
	log     zerolog.Logger
}

// NewWarmupJob creates the cache warm-up job.
func NewWarmupJob(engine *Engine, log zerolog.Logger) *WarmupJob {
	return &WarmupJob{
		engine:  engine,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "snapshot_warmup").Logger(),
	}
}

// Run refreshes every universe snapshot. Per-symbol failures are
// absorbed; the job only fails when the whole run is cut short.
func (j *WarmupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	warmed, failed := j.engine.WarmCache(ctx)

	j.log.Info().
		Int("warmed", warmed).
		Int("failed", failed).
		Msg("Snapshot warm-up completed")

	return ctx.Err()
}

// Name returns the job name for scheduling and logging.
func (j *WarmupJob) Name() string {
	return "snapshot_warmup"
}

// WarmCache refreshes the stock and forex snapshots for the default
// universes and reports how many symbols were warmed and how many
// failed.
func (e *Engine) WarmCache(ctx context.Context) (warmed, failed int) {
	var okCount, failCount int64
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	fetch := func(run func() error) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		if ctx.Err() != nil {
			return
		}
		if err := run(); err != nil {
			atomic.AddInt64(&failCount, 1)
			return
		}
		atomic.AddInt64(&okCount, 1)
	}

	for _, symbol := range TrendingStocks {
		symbol := symbol
		wg.Add(1)
		go fetch(func() error {
			_, err := e.stockSnapshot(ctx, symbol)
			return err
		})
	}
	for _, pair := range ForexPairs {
		pair := pair
		wg.Add(1)
		go fetch(func() error {
			_, err := e.forexSnapshot(ctx, pair.Symbol)
			return err
		})
	}
	wg.Wait()

	return int(okCount), int(failCount)
}
