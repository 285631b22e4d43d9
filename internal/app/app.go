// Package app wires configuration, storage, sinks and transports into the
// running engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartographer-notify/internal/config"
	"cartographer-notify/internal/entity"
	"cartographer-notify/internal/repository"
	"cartographer-notify/internal/service"
	amqpt "cartographer-notify/internal/transport/amqp"
	httpt "cartographer-notify/internal/transport/http"
	"cartographer-notify/internal/transport/sender"
	"cartographer-notify/migrations"
	"cartographer-notify/pkg/postgres"
	"cartographer-notify/pkg/redis"
	"cartographer-notify/pkg/retry"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	_strategyAttempts = 3
	_strategyDelay    = 3 * time.Second
	_strategyBackoff  = 2
)

func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	pg, err := initDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	rdb, err := initCache(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	prefRepo := repository.NewPreferenceRepository(pg)
	broadcastRepo := repository.NewBroadcastRepository(pg)
	deliveryRepo := repository.NewDeliveryRepository(pg)
	networkRepo := repository.NewNetworkRepository(pg)
	stateRepo := repository.NewStateRepository(pg)
	cacheRepo := repository.NewCacheRepository(rdb, cfg.Redis.CacheTTL)
	limiter := repository.NewRateLimitRepository(rdb)

	strategy := retry.Strategy{
		Attempts: _strategyAttempts,
		Delay:    _strategyDelay,
		Backoff:  _strategyBackoff,
	}
	emailSender := sender.NewEmailSender(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From,
		strategy, log.With(zap.String("component", "email sender")),
	)
	discordSender := sender.NewDiscordSender(
		cfg.Discord.BotToken, cfg.Discord.APIBase,
		strategy, log.With(zap.String("component", "discord sender")),
	)

	dispatcher := service.NewDispatcher(deliveryRepo, map[entity.Channel]service.ChannelSink{
		entity.ChannelEmail:   emailSender,
		entity.ChannelDiscord: discordSender,
	}, log.With(zap.String("component", "dispatcher")))

	prefService := service.NewPreferenceService(prefRepo, cacheRepo,
		log.With(zap.String("component", "preference service")))
	eventService := service.NewEventService(prefService, networkRepo, limiter, dispatcher,
		log.With(zap.String("component", "event service")))
	broadcastService := service.NewBroadcastService(broadcastRepo, networkRepo, deliveryRepo, eventService,
		log.With(zap.String("component", "broadcast service")),
		service.MinLeadTime(cfg.Scheduler.MinLeadTime),
		service.ClaimBatch(cfg.Scheduler.ClaimBatch),
	)
	systemService := service.NewSystemService(stateRepo, eventService,
		log.With(zap.String("component", "system service")))

	sweeper, err := initSweeper(ctx, &cfg.Scheduler, broadcastService, log)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	if cfg.Rabbit.Enabled {
		consumer := amqpt.NewConsumer(amqpt.Config{
			URL:            cfg.Rabbit.URL,
			Queue:          cfg.Rabbit.Queue,
			ConnectionName: cfg.Rabbit.ConnectionName,
			ReconnectDelay: cfg.Rabbit.ReconnectDelay,
		}, eventService, log.With(zap.String("component", "amqp consumer")))
		eg.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	handler := httpt.NewHandler(prefService, broadcastService, eventService,
		[]sender.StatusReporter{emailSender, discordSender},
		log.With(zap.String("component", "http")),
	)
	server := httpt.NewServer(handler, &cfg.HTTP, log.With(zap.String("component", "http server")))
	eg.Go(func() error {
		return server.Start(ctx)
	})

	if err := systemService.NotifyStartup(ctx); err != nil {
		log.Error("startup notification failed", zap.Error(err))
	}

	runErr := eg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := systemService.NotifyShutdown(shutdownCtx); err != nil {
		log.Error("shutdown mark failed", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("app.Run: %w", runErr)
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*postgres.Postgres, error) {
	pg, err := postgres.New(ctx, cfg.Database.DSN,
		postgres.MaxPoolSize(cfg.Database.PoolMax),
		postgres.ConnAttempts(cfg.Database.ConnAttempts),
		postgres.ConnDelay(cfg.Database.ConnDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initDatabase: %w", err)
	}

	if cfg.Database.MigrateOnUp {
		if err := migrateUp(cfg.Database.DSN); err != nil {
			pg.Close()
			return nil, fmt.Errorf("app.initDatabase: %w", err)
		}
		log.Info("database migrations applied")
	}
	return pg, nil
}

// migrateUp applies the embedded migrations. The pool speaks pgx natively;
// migrate wants its own URL scheme for the same driver.
func migrateUp(dsn string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	url := strings.Replace(dsn, "postgres://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func initCache(ctx context.Context, cfg *config.Redis) (*goredis.Client, error) {
	rdb, err := redis.New(ctx, cfg.Addr, cfg.Password,
		redis.PoolSize(cfg.PoolSize),
		redis.MinIdleCons(cfg.MinIdleCons),
		redis.PoolTimeout(cfg.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initCache: %w", err)
	}
	return rdb, nil
}

func initSweeper(ctx context.Context, cfg *config.Scheduler, svc *service.BroadcastService, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
		if err := svc.Sweep(ctx); err != nil {
			log.Error("broadcast sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("app.initSweeper: %w", err)
	}
	c.Start()
	return c, nil
}
