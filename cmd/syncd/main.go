package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storesync/internal/catalog"
	"storesync/internal/config"
	"storesync/internal/local"
	"storesync/internal/logger"
	"storesync/internal/metrics"
	"storesync/internal/store"
	"storesync/internal/syncer"
)

type flags struct {
	configPath string
	tenantID   string
	direction  string
	once       bool
	initSchema bool
}

func main() {
	f := readFlags()
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "syncd: %v\n", err)
		os.Exit(1)
	}
}

func readFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "config file path (optional)")
	flag.StringVar(&f.tenantID, "tenant", "", "tenant to sync")
	flag.StringVar(&f.direction, "direction", "", "catalog direction: push|pull (default from config)")
	flag.BoolVar(&f.once, "once", false, "run a single pass and exit")
	flag.BoolVar(&f.initSchema, "init-schema", false, "create remote tables if missing (dev only)")
	flag.Parse()
	return f
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if f.tenantID == "" {
		return store.ErrNotAuthenticated
	}
	dirSpelling := cfg.Sync.Direction
	if f.direction != "" {
		dirSpelling = f.direction
	}
	dir, err := catalog.ParseDirection(dirSpelling)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Remote.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	remote := store.NewPostgres(pool)
	if f.initSchema {
		if err := remote.InitSchema(ctx); err != nil {
			return err
		}
		log.Info("remote schema ready")
	}

	collections, err := local.NewPebble(cfg.Local.Dir, log)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer collections.Close()
	localStore := local.NewStore(collections)
	archiver := local.NewArchiver(cfg.Local.ArchiveDir)

	mreg := metrics.NewRegistry()
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mreg.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	var events syncer.EventWriter
	if cfg.Kafka.Bootstrap != "" {
		events = syncer.NewKafkaEventWriter(cfg.Kafka.Bootstrap, cfg.Kafka.Topic)
	}

	guard := syncer.NewTenantGuard()
	syncOpts := []syncer.Option{
		syncer.WithArchiver(archiver),
		syncer.WithMetrics(mreg),
		syncer.WithLogger(log),
		syncer.WithGuard(guard),
	}
	recOpts := []catalog.Option{
		catalog.WithMetrics(mreg),
		catalog.WithLogger(log),
		catalog.WithGuard(guard),
	}
	if events != nil {
		syncOpts = append(syncOpts, syncer.WithEvents(events))
		recOpts = append(recOpts, catalog.WithEvents(events))
	}
	engine := syncer.New(remote, localStore, syncOpts...)
	reconciler := catalog.New(remote.Products(), localStore, recOpts...)

	pass := func() {
		res, err := engine.SyncLocal(ctx, f.tenantID)
		if err != nil {
			log.Error("sync failed", zap.String("tenant", f.tenantID), zap.Error(err))
		} else if res.AlreadySynced {
			log.Info("local orders already synchronized", zap.String("tenant", f.tenantID))
		}
		if _, err := reconciler.Reconcile(ctx, f.tenantID, dir); err != nil {
			log.Error("catalog reconcile failed", zap.String("tenant", f.tenantID), zap.Error(err))
		}
	}

	pass()
	if f.once {
		return nil
	}

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-ticker.C:
			pass()
		}
	}
}
