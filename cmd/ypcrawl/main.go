// Package main provides the ypcrawl CLI entrypoint: a "seed" subcommand
// that populates the target queue and a "run" subcommand that starts the
// worker pool against it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/coldtrail/ypcrawl/internal/config"
	"github.com/coldtrail/ypcrawl/internal/fetch"
	"github.com/coldtrail/ypcrawl/internal/filter"
	"github.com/coldtrail/ypcrawl/internal/health"
	"github.com/coldtrail/ypcrawl/internal/poolmgr"
	"github.com/coldtrail/ypcrawl/internal/proxypool"
	"github.com/coldtrail/ypcrawl/internal/seed"
	"github.com/coldtrail/ypcrawl/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var cmdErr error
	switch os.Args[1] {
	case "seed":
		cmdErr = runSeed(os.Args[2:], log)
	case "run":
		cmdErr = runWorkers(os.Args[2:], log)
	default:
		usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		log.Fatal("command failed", zap.Error(cmdErr))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ypcrawl <seed|run> [flags]")
}

func runSeed(args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, store.Config{DSN: cfg.DatabaseDSN, MaxConns: 5, ConnectTimeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	targets := store.NewTargets(db)
	n, err := seed.Seed(ctx, targets, nil, nil)
	log.Info("seed complete", zap.Int("targets_attempted", n))
	return err
}

func runWorkers(args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	startedAt := time.Now().UTC()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, store.Config{DSN: cfg.DatabaseDSN, MaxConns: int32(cfg.Workers * 2), ConnectTimeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	filterCfg, err := filter.LoadConfig(filter.FilePaths{
		AllowlistPath:     cfg.AllowlistPath,
		BlocklistPath:     cfg.BlocklistPath,
		AntiKeywordsPath:  cfg.AntiKeywordsPath,
		PositiveHintsPath: cfg.PositiveHintsPath,
		DenyDomainsPath:   cfg.DenyDomainsPath,
	}, cfg.MinScore, cfg.IncludeSponsored)
	if err != nil {
		return fmt.Errorf("load filter config: %w", err)
	}

	proxies, err := loadProxyEndpoints(cfg.ProxyFile)
	if err != nil {
		return fmt.Errorf("load proxy file: %w", err)
	}
	proxyPool := proxypool.New(proxies, "http", proxypool.Policy(cfg.ProxyStrategy))

	newFetch := func(workerID string) (fetch.Fetcher, *health.Monitor, error) {
		monitor := health.NewMonitor()
		if cfg.UseBrowser {
			f, err := fetch.NewBrowserFetcher(monitor, proxyPool, fetch.BrowserConfig{
				SessionBreakEvery:    cfg.SessionBreakEvery,
				ContextRotationEvery: cfg.ContextRotationEvery,
				RespectRobots:        true,
			})
			return f, monitor, err
		}
		f := fetch.NewHTTPFetcher(monitor, proxyPool, fetch.HTTPConfig{
			SessionBreakEvery: cfg.SessionBreakEvery,
			RespectRobots:     true,
		})
		return f, monitor, nil
	}

	targets := store.NewTargets(db)
	companies := store.NewCompanies(db)
	rejects := store.NewRejects(db)

	mgr := poolmgr.NewManager(poolmgr.Config{
		Workers:       cfg.Workers,
		States:        cfg.States,
		MaxPerState:   cfg.MaxPerState,
		FilterConfig:  filterCfg,
		OrphanTimeout: time.Duration(cfg.OrphanTimeoutMinutes) * time.Minute,
		MaxAttempts:   cfg.MaxAttempts,
		WALDir:        cfg.WALDir,
	}, targets, companies, rejects, newFetch, log)

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, draining workers")
	if !mgr.StopAll(60 * time.Second) {
		log.Warn("worker pool did not drain within the shutdown timeout")
	}

	summaryCtx, cancelSummary := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSummary()
	summary := buildRunSummary(summaryCtx, startedAt, targets, companies, mgr, log)
	if err := store.WriteSummary(cfg.SummaryPath, summary); err != nil {
		log.Warn("failed to write run summary", zap.Error(err))
	}
	return nil
}

// buildRunSummary aggregates the operator-visible "last run" checkpoint:
// per-status target counts from the durable queue, plus cumulative
// listing counters folded across every worker's health monitor.
func buildRunSummary(ctx context.Context, startedAt time.Time, targets *store.Targets, companies *store.Companies, mgr *poolmgr.Manager, log *zap.Logger) store.RunSummary {
	summary := store.RunSummary{StartedAt: startedAt, FinishedAt: time.Now().UTC()}

	byStatus, err := targets.CountByStatus(ctx)
	if err != nil {
		log.Warn("failed to count targets by status for run summary", zap.Error(err))
	} else {
		summary.TargetsCompleted = byStatus["DONE"]
		summary.TargetsFailed = byStatus["FAILED"]
		summary.TargetsParked = byStatus["PARKED"]
	}

	if total, err := targets.TotalAttempts(ctx); err != nil {
		log.Warn("failed to sum target attempts for run summary", zap.Error(err))
	} else {
		summary.TargetsClaimed = total
	}

	for _, c := range mgr.StatusCounts() {
		summary.ListingsFound += int(c.ResultsFound)
		summary.ListingsAccepted += int(c.ResultsAccepted)
	}

	if created, updated, err := companies.CountSince(ctx, startedAt); err != nil {
		log.Warn("failed to count companies for run summary", zap.Error(err))
	} else {
		summary.CompaniesCreated = created
		summary.CompaniesUpdated = updated
	}

	return summary
}

// loadProxyEndpoints reads one proxy endpoint per line from path. An
// empty path is valid and yields no proxies, meaning every fetch goes
// direct.
func loadProxyEndpoints(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var endpoints []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		endpoints = append(endpoints, line)
	}
	return endpoints, scanner.Err()
}
