// Package app wires configuration, storage, services and background workers
// into a runnable process. Both binaries under cmd/ build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simaogato/shiftescrow-backend/internal/adapter/auth"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/events"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/lock"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/shiftescrow-backend/internal/config"
	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dashboard"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dispute"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/sweeper"
)

// App holds every long-lived component of the engine
type App struct {
	Config config.Config
	Logger *slog.Logger

	TxManager    domain.TxManager
	Transactions domain.TransactionRepository
	Disputes     domain.DisputeRepository
	Timeline     domain.TimelineRepository
	Outbox       domain.OutboxRepository

	Ledger    *escrow.Ledger
	Dispute   *dispute.DisputeService
	Dashboard *dashboard.DashboardService
	Tokens    *auth.TokenService

	db      *postgres.DB
	redis   *redis.Client
	closers []func() error
	now     func() time.Time
}

// NewLogger builds the JSON logger used by every binary
func NewLogger(serviceID string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", serviceID)
	slog.SetDefault(logger)
	return logger
}

// New connects storage and constructs the services
// Logic:
//  1. Open Postgres and apply migrations when a DSN is configured, otherwise use the in-memory store
//  2. Build the ledger and dispute service around the shared dispute link
//  3. Build the dashboard and token services
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, now: time.Now}

	if cfg.DatabaseURL != "" {
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, postgres.Options{
			Driver:          cfg.DatabaseDriver,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.db = db
		a.TxManager = db
		a.Transactions = postgres.NewTransactionRepository(db)
		a.Disputes = postgres.NewDisputeRepository(db)
		a.Timeline = postgres.NewTimelineRepository(db)
		a.Outbox = postgres.NewOutboxRepository(db)
		logger.InfoContext(ctx, "storage ready", "module", "app", "operation", "storage_init", "outcome", "success", "backend", "postgres", "driver", cfg.DatabaseDriver)
	} else {
		store := memory.NewStore()
		a.TxManager = store
		a.Transactions = store.Transactions()
		a.Disputes = store.Disputes()
		a.Timeline = store.Timeline()
		a.Outbox = store.Outbox()
		logger.WarnContext(ctx, "no database configured; state is kept in memory", "module", "app", "operation", "storage_init", "outcome", "success", "backend", "memory")
	}

	var link *escrow.DisputeLink
	a.Ledger, link = escrow.NewLedger(a.TxManager, a.Transactions, a.Disputes, a.Outbox, a.now)
	a.Dispute = dispute.NewDisputeService(a.TxManager, a.Disputes, a.Transactions, a.Timeline, a.Outbox, link, cfg.DisputePolicy(), a.now)
	a.Dashboard = dashboard.NewDashboardService(a.Disputes, a.Transactions)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, a.now)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Tokens = tokens

	return a, nil
}

// Ready reports whether the backing store is reachable
func (a *App) Ready(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.PingContext(ctx)
}

// Locker returns the Redis lease lock when configured, else a process-local one
func (a *App) Locker(ctx context.Context) (sweeper.Locker, error) {
	if a.Config.RedisURL == "" {
		return lock.NewLocalLocker(a.now), nil
	}
	if a.redis == nil {
		client, err := lock.Connect(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
	}
	return lock.NewRedisLocker(a.redis), nil
}

// Publisher returns the Kafka publisher when brokers are configured, else a logging one
func (a *App) Publisher() (events.Publisher, error) {
	if len(a.Config.KafkaBrokers) == 0 {
		return events.NewLoggingPublisher(a.Logger), nil
	}
	publisher, err := events.NewKafkaPublisher(a.Config.KafkaBrokers, a.Config.KafkaTopic, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// Sweeper builds the deadline sweeper around the given lease lock
func (a *App) Sweeper(locker sweeper.Locker) *sweeper.Sweeper {
	return sweeper.NewSweeper(a.Logger, a.Dispute, a.Ledger, a.Transactions, locker, a.Config.MaxHold, a.Config.SweepInterval, a.Config.SweepLeaseTTL, a.now)
}

// OutboxWorker builds the relay that drains the event outbox into publisher
func (a *App) OutboxWorker(publisher events.Publisher) *events.OutboxWorker {
	return events.NewOutboxWorker(a.Logger, a.TxManager, a.Outbox, publisher, a.Config.RelayInterval, a.Config.RelayBatchSize)
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
