// Package poolmgr implements the worker pool manager
// (component C10): a supervisor that starts/stops a fixed number of
// workers, each independently claiming and crawling targets, sharded
// round-robin by US state; a worker whose shard is empty may claim
// targets in any state.
package poolmgr

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/coldtrail/ypcrawl/internal/crawl"
	"github.com/coldtrail/ypcrawl/internal/fetch"
	"github.com/coldtrail/ypcrawl/internal/filter"
	"github.com/coldtrail/ypcrawl/internal/health"
	"github.com/coldtrail/ypcrawl/internal/store"
)

const (
	coolDownBase = 30 * time.Second
	coolDownMax  = 5 * time.Minute
)

// WorkerConfig carries the per-worker slice of the global configuration.
type WorkerConfig struct {
	ID            string
	ShardStates   []string
	MaxPerState   int
	FilterConfig  filter.Config
	OrphanTimeout time.Duration
	MaxAttempts   int
	WALDir        string
}

// Worker owns one Fetcher, one health.Monitor, and one WAL file, and
// repeatedly claims and crawls targets until Stop is signaled.
type Worker struct {
	cfg       WorkerConfig
	targets   *store.Targets
	companies *store.Companies
	rejects   *store.Rejects
	fetcher   fetch.Fetcher
	monitor   *health.Monitor
	wal       *WAL
	log       *zap.Logger

	stop chan struct{}
}

// NewWorker assembles a Worker. The worker takes ownership of fetcher:
// Run closes it when its loop exits.
func NewWorker(cfg WorkerConfig, targets *store.Targets, companies *store.Companies, rejects *store.Rejects, fetcher fetch.Fetcher, monitor *health.Monitor, log *zap.Logger) (*Worker, error) {
	wal, err := OpenWAL(cfg.WALDir, cfg.ID)
	if err != nil {
		return nil, err
	}
	return &Worker{
		cfg:       cfg,
		targets:   targets,
		companies: companies,
		rejects:   rejects,
		fetcher:   fetcher,
		monitor:   monitor,
		wal:       wal,
		log:       log.With(zap.String("worker_id", cfg.ID)),
		stop:      make(chan struct{}),
	}, nil
}

// Stop signals the worker's loop to exit; a target in progress is left at
// the next page boundary, still IN_PROGRESS.
func (w *Worker) Stop() { close(w.stop) }

// Run is the worker's main loop: recover any orphaned
// targets from a prior crash, then repeatedly claim, crawl, and log a
// target until Stop is called or ctx is canceled. It closes the WAL and
// the fetcher itself when the loop exits.
func (w *Worker) Run(ctx context.Context) {
	defer w.wal.Close()
	defer w.fetcher.Close()

	if n, err := w.targets.RecoverOrphans(ctx, w.cfg.OrphanTimeout); err != nil {
		w.log.Warn("orphan recovery failed", zap.Error(err))
	} else if n > 0 {
		w.log.Info("recovered orphaned targets", zap.Int("count", n))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		target, err := w.targets.Claim(ctx, w.cfg.ID, w.cfg.ShardStates, w.cfg.MaxPerState)
		if errors.Is(err, store.ErrNoTargetAvailable) {
			w.idle(ctx)
			continue
		}
		if err != nil {
			w.log.Error("claim failed", zap.Error(err))
			w.idle(ctx)
			continue
		}

		_ = w.wal.Append(WALEntry{Time: walNow(), WorkerID: w.cfg.ID, Event: "claimed", TargetID: target.ID, Page: target.PageCurrent})

		deps := crawl.Deps{
			Fetcher:      w.fetcher,
			Targets:      w.targets,
			Companies:    w.companies,
			Rejects:      w.rejects,
			Monitor:      w.monitor,
			FilterConfig: w.cfg.FilterConfig,
			MaxAttempts:  w.cfg.MaxAttempts,
		}
		outcome, err := crawl.Crawl(ctx, deps, *target, w.stop)

		_ = w.wal.Append(WALEntry{Time: walNow(), WorkerID: w.cfg.ID, Event: "finished", TargetID: target.ID, Outcome: string(outcome), Detail: errString(err)})

		switch outcome {
		case crawl.OutcomeRequeued:
			w.log.Info("target requeued after block/captcha", zap.String("target_id", target.ID))
			w.sleepCoolDown(ctx, target.Attempts)
		case crawl.OutcomeFailed:
			w.log.Warn("target failed", zap.String("target_id", target.ID), zap.Error(err))
		default:
			w.log.Info("target finished", zap.String("target_id", target.ID), zap.String("outcome", string(outcome)))
		}
	}
}

// idle waits out one adaptive delay interval when no target is
// claimable, rather than busy-polling the queue.
func (w *Worker) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-time.After(w.monitor.CurrentDelay()):
	}
}

// sleepCoolDown implements C10's exponential cool-down formula: delay =
// min(30s * 2^attempts, 300s), jittered by up to +/-25%.
func (w *Worker) sleepCoolDown(ctx context.Context, attempts int) {
	delay := coolDownBase << uint(attempts)
	if delay > coolDownMax || delay <= 0 {
		delay = coolDownMax
	}
	jitterFrac := (rand.Float64()*2 - 1) * 0.25
	delay = time.Duration(float64(delay) * (1 + jitterFrac))

	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-time.After(delay):
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// walNow is the WAL's only timestamp source: the current time in UTC.
func walNow() time.Time { return time.Now().UTC() }
