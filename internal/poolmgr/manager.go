package poolmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coldtrail/ypcrawl/internal/fetch"
	"github.com/coldtrail/ypcrawl/internal/filter"
	"github.com/coldtrail/ypcrawl/internal/health"
	"github.com/coldtrail/ypcrawl/internal/store"
)

const staggerStart = 2 * time.Second

// FetcherFactory builds one Fetcher + health.Monitor pair per worker.
// Supplying a factory (rather than sharing one Fetcher) lets each worker
// own an independent browser context / HTTP session.
type FetcherFactory func(workerID string) (fetch.Fetcher, *health.Monitor, error)

// Config is the pool-wide configuration the supervisor shards across
// workers.
type Config struct {
	Workers       int
	States        []string // empty means "no shard restriction" for every worker
	MaxPerState   int
	FilterConfig  filter.Config
	OrphanTimeout time.Duration
	MaxAttempts   int
	WALDir        string
}

// Manager is the supervisor: it partitions States round-robin across
// Workers workers, starts them staggered, and tracks per-worker status
// for a bounded-timeout graceful stop.
type Manager struct {
	cfg       Config
	targets   *store.Targets
	companies *store.Companies
	rejects   *store.Rejects
	newFetch  FetcherFactory
	log       *zap.Logger

	mu      sync.Mutex
	workers []*Worker
	done    chan struct{}
}

// NewManager builds a Manager ready to Start.
func NewManager(cfg Config, targets *store.Targets, companies *store.Companies, rejects *store.Rejects, newFetch FetcherFactory, log *zap.Logger) *Manager {
	return &Manager{cfg: cfg, targets: targets, companies: companies, rejects: rejects, newFetch: newFetch, log: log}
}

// shardStates partitions states round-robin into workerCount buckets. A
// nil/empty states list yields workerCount empty buckets, meaning every
// worker is unrestricted.
func shardStates(states []string, workerCount int) [][]string {
	buckets := make([][]string, workerCount)
	for i, s := range states {
		w := i % workerCount
		buckets[w] = append(buckets[w], s)
	}
	return buckets
}

// Start launches cfg.Workers workers, each with its own fetcher and
// monitor, staggered by staggerStart so they don't all open a network
// session in the same instant.
func (m *Manager) Start(ctx context.Context) error {
	buckets := shardStates(m.cfg.States, m.cfg.Workers)
	m.done = make(chan struct{})

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.Workers; i++ {
		workerID := fmt.Sprintf("worker-%02d", i)
		fetcher, monitor, err := m.newFetch(workerID)
		if err != nil {
			m.StopAll(5 * time.Second)
			return fmt.Errorf("build fetcher for %s: %w", workerID, err)
		}

		worker, err := NewWorker(WorkerConfig{
			ID:            workerID,
			ShardStates:   buckets[i],
			MaxPerState:   m.cfg.MaxPerState,
			FilterConfig:  m.cfg.FilterConfig,
			OrphanTimeout: m.cfg.OrphanTimeout,
			MaxAttempts:   m.cfg.MaxAttempts,
			WALDir:        m.cfg.WALDir,
		}, m.targets, m.companies, m.rejects, fetcher, monitor, m.log)
		if err != nil {
			m.StopAll(5 * time.Second)
			return fmt.Errorf("build worker %s: %w", workerID, err)
		}

		m.mu.Lock()
		m.workers = append(m.workers, worker)
		m.mu.Unlock()

		startDelay := time.Duration(i) * staggerStart
		group.Go(func() error {
			select {
			case <-groupCtx.Done():
				return nil
			case <-time.After(startDelay):
			}
			worker.Run(groupCtx)
			return nil
		})
	}

	go func() {
		group.Wait()
		close(m.done)
	}()

	m.log.Info("worker pool started", zap.Int("workers", m.cfg.Workers))
	return nil
}

// StopAll signals every worker to stop (a worker mid-target stops at the
// next page boundary, leaving the target IN_PROGRESS) and waits up to timeout for them to drain. It returns whether every worker drained in time.
func (m *Manager) StopAll(timeout time.Duration) bool {
	m.mu.Lock()
	workers := append([]*Worker(nil), m.workers...)
	done := m.done
	m.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
	if done == nil {
		return true
	}

	select {
	case <-done:
		m.log.Info("worker pool stopped cleanly")
		return true
	case <-time.After(timeout):
		m.log.Warn("worker pool stop timed out", zap.Duration("timeout", timeout))
		return false
	}
}

// StatusCounts returns a snapshot of each worker's health counters keyed
// by worker ID, used by the run summary written at shutdown.
func (m *Manager) StatusCounts() map[string]health.Counters {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]health.Counters, len(m.workers))
	for _, w := range m.workers {
		out[w.cfg.ID] = w.monitor.Counters()
	}
	return out
}
