// Package main is the entry point for the Moyeo Study Hub sync engine.
//
// The hub keeps one merged, date-indexed view of the whole study group:
// every member's attendance, study durations, goals, and shared schedule
// notes, streamed from the remote record store and folded together by the
// subscription merger.
//
// Architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: command/query orchestration
// - Infrastructure: Redis record store, Postgres roster, event bus
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/moyeostudy/moyeo-hub/config"
	"github.com/moyeostudy/moyeo-hub/internal/application/command"
	"github.com/moyeostudy/moyeo-hub/internal/application/query"
	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/timeslot"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/messaging"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/persistence/postgres"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/redisstore"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/internal/stats"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})

	log.Info("starting moyeo hub",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ── Postgres: durable roster ────────────────────────────────────────

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rosterRepo := postgres.NewRosterRepository(conn)

	// ── Redis: remote record store ──────────────────────────────────────

	store, err := newRecordStore(cfg, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer store.Close()

	// ── Sync engine ─────────────────────────────────────────────────────

	bus := messaging.NewBus(slog.Default())
	defer bus.Close()

	merger := merge.NewMerger(store, bus, log)
	defer merger.Close()

	schedules := merge.NewScheduleStore(store, bus, log)
	if err := schedules.Start(ctx); err != nil {
		return fmt.Errorf("start schedule store: %w", err)
	}
	defer schedules.Close()

	notifier := notify.NewLogNotifier(log)
	engine := timeslot.NewEngine(log)
	aggregator := stats.NewAggregator(merger, engine)

	writePolicy := command.WritePolicy{
		MaxAttempts: cfg.Sync.WriteMaxRetries,
		BaseDelay:   cfg.Sync.WriteRetryBase,
		MaxDelay:    cfg.Sync.WriteRetryMax,
		Timeout:     cfg.Sync.WriteTimeout,
	}

	h := &hub{
		Roster: command.NewRosterHandler(rosterRepo, store, merger, notifier, writePolicy, log),
		Participation: command.NewParticipationHandler(store, merger, engine, notifier, writePolicy, log,
			cfg.Features.IsEnabled(config.FeatureStudyHoursBackfill)),
		Goals:    command.NewGoalHandler(store, merger, notifier, writePolicy, log),
		Schedule: command.NewScheduleHandler(store, schedules, notifier, writePolicy, log),
		Statistics: query.NewGetStatisticsHandler(rosterRepo, merger, aggregator,
			cfg.Features.IsEnabled(config.FeatureGroupStatistics)),
		Calendar: query.NewGetCalendarHandler(rosterRepo, merger, schedules, aggregator,
			cfg.Features.IsEnabled(config.FeatureCalendarHeatMap)),
	}

	// Rebuild merged state from the durable roster.
	if err := h.Roster.TrackAll(ctx); err != nil {
		return fmt.Errorf("track roster: %w", err)
	}
	log.Info("tracking roster", logger.Int("participants", len(merger.Tracked())))

	// Debug visibility: log a per-member rollup whenever attendance merges.
	err = bus.Subscribe(messaging.EventParticipationMerged, func(e messaging.Event) {
		if !cfg.App.Debug {
			return
		}
		dto, err := h.Statistics.Handle(ctx, query.GetStatisticsQuery{UserID: e.UserID})
		if err != nil {
			return
		}
		log.Debug("participation merged",
			logger.ParticipantID(e.UserID),
			logger.DateKey(e.Date),
			logger.Minutes(dto.Today.Minutes),
		)
	})
	if err != nil {
		return fmt.Errorf("subscribe merge events: %w", err)
	}

	// ── Run until signalled ─────────────────────────────────────────────

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("moyeo hub stopped")
	return nil
}

// hub bundles the command and query surface the embedding client drives.
// Nothing in this process mutates records on its own; every write enters
// through one of these handlers.
type hub struct {
	Roster        *command.RosterHandler
	Participation *command.ParticipationHandler
	Goals         *command.GoalHandler
	Schedule      *command.ScheduleHandler
	Statistics    *query.GetStatisticsHandler
	Calendar      *query.GetCalendarHandler
}

// recordStore is the closable store variant main manages.
type recordStore interface {
	record.Store
	Close() error
}

// newRecordStore builds the Redis store from either REDIS_URL or the
// individual host settings. REDIS_DISABLED swaps in the in-memory store
// for development runs.
func newRecordStore(cfg *config.Config, log *logger.Logger) (recordStore, error) {
	if cfg.Redis.Disabled {
		log.Warn("redis disabled, using in-memory record store")
		return memstore.New(), nil
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.NewWithClient(client, log), nil
	}

	return redisstore.New(redisstore.Config{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, log)
}
