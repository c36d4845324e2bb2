package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"uniraid-battle-service/internal/app"
	"uniraid-battle-service/internal/battle"
	"uniraid-battle-service/internal/config"
	"uniraid-battle-service/internal/infra/memory"
	pgstore "uniraid-battle-service/internal/infra/postgres"
	redisstore "uniraid-battle-service/internal/infra/redis"
	"uniraid-battle-service/internal/logger"
	"uniraid-battle-service/internal/metrics"
	transport "uniraid-battle-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// battleOptions maps the battle section onto engine rules.
func battleOptions(cfg config.Config) (battle.Config, time.Duration, time.Duration) {
	rules := battle.DefaultConfig()
	rules.SettleDelay = config.TTLDuration(cfg.Battle.SettleDelay, rules.SettleDelay)
	rules.RevivalWindow = config.TTLDuration(cfg.Battle.RevivalWindow, rules.RevivalWindow)
	if cfg.Battle.MaxLives > 0 {
		rules.MaxLives = cfg.Battle.MaxLives
	}
	tick := config.TTLDuration(cfg.Battle.TickInterval, 100*time.Millisecond)
	refresh := config.TTLDuration(cfg.Battle.RefreshInterval, time.Second)
	return rules, tick, refresh
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.BossLoader = memory.NewStaticBossLoader(sampleBosses())
	var recorder app.ResultRecorder = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewBossLoader(pool)

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		recorder = pgstore.NewResultRecorder(db)
	}

	bossTTL := config.TTLDuration(cfg.Boss.TTL, 10*time.Minute)
	var bossRepo app.BossRepository
	var store app.SessionRepository
	var snapshots app.SnapshotStore
	var snapshotLoader transport.SnapshotLoader
	var sessionStore *redisstore.SessionStore
	if redisClient != nil {
		bossRepo = redisstore.NewBossRepository(redisClient, loader, bossTTL)
		sessionStore = redisstore.NewSessionStore(redisClient, redisTTL)
		store = sessionStore
		snapshotStore := redisstore.NewSnapshotStore(redisClient, redisTTL)
		snapshots = snapshotStore
		snapshotLoader = snapshotStore
	} else {
		bossRepo = memory.NewBossRepository(loader, bossTTL)
		store = memory.NewSessionStore()
	}

	rules, tick, refresh := battleOptions(cfg)
	m := metrics.New()
	service := app.NewBattleService(store, bossRepo, app.Options{
		Battle:          rules,
		TickInterval:    tick,
		RefreshInterval: refresh,
		Results:         recorder,
		Snapshots:       snapshots,
		Metrics:         m,
		Logger:          log,
	})
	defer service.Close()

	wsHandler := transport.NewWSHandler(service, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, wsHandler, m.Handler(), snapshotLoader, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting battle service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sessionStore != nil && redisTTL > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(redisTTL / 2)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := sessionStore.Touch(gctx); err != nil {
						log.Warn("refresh session markers failed", zap.Error(err))
					}
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
