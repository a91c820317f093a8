package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/fintrack/internal/observability"
)

// SessionSweeper deletes up to limit sessions that expired at or before now.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// Observer receives one call per sweep.
type Observer interface {
	ObserveSweep(deleted int64, d time.Duration, err error)
}

type Config struct {
	Interval  time.Duration
	BatchSize int
	WorkerID  string

	// MaxBatches bounds one sweep so a large backlog cannot hold the loop.
	MaxBatches int
}

type Worker struct {
	cfg   Config
	repo  SessionSweeper
	obs   Observer
	stats *observability.SweepStats
	log   *slog.Logger
	now   func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo SessionSweeper, obs Observer, stats *observability.SweepStats, log *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 20
	}
	if stats == nil {
		stats = observability.NewSweepStats()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:   cfg,
		repo:  repo,
		obs:   obs,
		stats: stats,
		log:   log.With("worker_id", cfg.WorkerID),
		now:   time.Now,
	}
}

func (w *Worker) Stats() observability.SweepSnapshot {
	return w.stats.Snapshot()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run sweeps once right away and then on every tick until ctx is cancelled.
// Consecutive failures stretch the wait with ExponentialBackoff.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("sweeper started", "interval", w.cfg.Interval.String(), "batch_size", w.cfg.BatchSize)

	failures := 0

	for {
		_, err := w.SweepOnce(ctx)

		wait := w.cfg.Interval
		if err != nil && ctx.Err() == nil {
			wait = ExponentialBackoff(failures)
			failures++
			w.log.Warn("sweep failed, backing off", "err", err, "attempt", failures, "backoff", wait.String())
		} else {
			failures = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("sweeper received shutdown signal")
			return nil
		case <-timer.C:
		}
	}
}

// SweepOnce deletes expired sessions batch by batch until a batch comes back
// short. It returns the total removed.
func (w *Worker) SweepOnce(ctx context.Context) (int64, error) {
	start := w.now()
	now := start.UTC()

	var total int64
	var err error

	for i := 0; i < w.cfg.MaxBatches; i++ {
		var n int64
		n, err = w.deleteBatch(ctx, now)
		total += n

		if err != nil || n < int64(w.cfg.BatchSize) {
			break
		}
	}

	d := w.now().Sub(start)
	w.stats.Record(total, d, err, now)
	if w.obs != nil {
		w.obs.ObserveSweep(total, d, err)
	}

	if err != nil {
		return total, err
	}

	if total > 0 {
		w.log.Info("expired sessions swept", "deleted", total, "duration_ms", d.Milliseconds())
	}
	return total, nil
}

func (w *Worker) deleteBatch(ctx context.Context, now time.Time) (int64, error) {
	batchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return w.repo.DeleteExpired(batchCtx, now, w.cfg.BatchSize)
}
