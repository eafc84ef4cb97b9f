package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkorobovv/trade-mirror/internal/bus"
	"github.com/mkorobovv/trade-mirror/internal/common/clients/marketdata"
	"github.com/mkorobovv/trade-mirror/internal/common/config"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/internal/common/repositories/memory"
	"github.com/mkorobovv/trade-mirror/internal/common/repositories/postgres"
	"github.com/mkorobovv/trade-mirror/internal/ledger"
	"github.com/mkorobovv/trade-mirror/internal/scheduler"
	"github.com/mkorobovv/trade-mirror/internal/universe"
	"github.com/mkorobovv/trade-mirror/pkg/cache"
	"github.com/mkorobovv/trade-mirror/pkg/goosemigrate"
	"github.com/mkorobovv/trade-mirror/pkg/log"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "prod.yaml", "server config path")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.GetConfig(configPath)
	log.Init(cfg.Log.Level, cfg.Log.Encoding)

	log.Info("server starting...")

	var (
		usersRepository domain.UsersRepository
		pool            *pgxpool.Pool
	)

	if cfg.Postgres.Disabled {
		log.Info("postgres disabled, using in-memory storage")
		usersRepository = memory.NewUsersRepository()
	} else {
		log.Info("init postgres...")
		var err error
		pool, err = pgxpool.New(ctx, cfg.GetPostgresURL())
		if err != nil {
			log.Fatal("postgres init failed", zap.Error(err))
		}

		if err := goosemigrate.NewMigrator(cfg.GetPostgresURL(), "migrations", cfg.Postgres.Schema).Up(); err != nil {
			log.Fatal("migrations up failed", zap.Error(err))
		}

		usersRepository = postgres.NewUsersRepository(pool)
	}

	log.Info("init ledger...")
	userLedger := ledger.New(usersRepository)
	if err := userLedger.Load(ctx); err != nil {
		log.Fatal("ledger load failed", zap.Error(err))
	}

	quoteCache := cache.New[domain.Quote](cfg.Cache.MaxSize, cfg.Cache.DefaultTTL, cfg.Cache.SweepInterval)
	snapshots := bus.NewQueue(16)

	log.Info("init scheduler...")
	provider := marketdata.NewClient(&cfg.Market)
	quoteScheduler := scheduler.New(provider, quoteCache, snapshots, userLedger, cfg.Scheduler)
	userLedger.SetQuoteSource(quoteScheduler)

	instruments, err := universe.List(universe.ListNifty50, 0)
	if err != nil {
		log.Fatal("universe init failed", zap.Error(err))
	}

	quoteScheduler.Init(instruments)
	quoteScheduler.Start()

	// The WebSocket layer consumes this queue in the full deployment; here
	// the snapshots are drained so a headless run never backs it up.
	go snapshots.Run(ctx, func(s bus.Snapshot) {
		log.Debug("snapshot broadcast", zap.Int("quotes", len(s.Quotes)))
	})

	retention := cron.New()
	if _, err := retention.AddFunc("30 0 * * *", func() {
		quoteScheduler.SweepInactive(cfg.Scheduler.RetentionWindow)
	}); err != nil {
		log.Fatal("retention job init failed", zap.Error(err))
	}
	retention.Start()

	log.Info("server starting complete",
		zap.Int("instruments", quoteScheduler.ActiveInstrumentCount()),
	)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	log.Info("server shutting down...")

	retention.Stop()
	quoteScheduler.Stop()
	snapshots.Close()
	quoteCache.Stop()

	if pool != nil {
		pool.Close()
	}

	if err := log.Sync(); err != nil {
		log.Error("log sync failed", zap.Error(err))
	}

	cancel()

	log.Info("server shut down complete")
}
