package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/config"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/metrics"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/orchestrator"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/recipients"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/resolver"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/chat"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/sms"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/strategy"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/webhook"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/trigger"
	pkgmetrics "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/shared"
)

// app holds the connections every subcommand shares.
type app struct {
	cfg       *config.Config
	db        *database.DB
	redis     *redis.Client
	collector *pkgmetrics.Collector
	recorder  metrics.Recorder
	closers   []func()
}

// newApp connects to PostgreSQL and, when reachable, Redis. Without Redis the
// process runs with metrics disabled.
func newApp(ctx context.Context, cfg *config.Config, serviceName string) (*app, error) {
	slog.Info("Connecting to PostgreSQL database", "postgres_dsn", shared.MaskDSN(cfg.PostgresDSN))
	db, err := database.NewDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		slog.Info("Tip: Start Postgres with 'docker compose up -d postgres' or ensure Postgres is running")
		return nil, err
	}

	a := &app{cfg: cfg, db: db, recorder: metrics.NewNoOp()}
	a.closers = append(a.closers, func() { db.Close() })

	slog.Info("Connecting to Redis", "addr", cfg.RedisAddr)
	redisClient, err := shared.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		slog.Warn("Redis unavailable, metrics disabled", "error", err)
		return a, nil
	}
	a.redis = redisClient
	a.closers = append(a.closers, func() { redisClient.Close() })

	a.collector = pkgmetrics.NewCollector(serviceName, redisClient)
	a.collector.SetReportInterval(cfg.MetricsInterval)
	a.collector.Start(ctx)
	a.closers = append(a.closers, a.collector.Stop)
	a.recorder = metrics.NewCollectorAdapter(a.collector)

	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newSender builds the channel registry and the job executor.
func (a *app) newSender() *sender.Sender {
	client := &http.Client{Timeout: a.cfg.HTTPTimeout}
	registry := strategy.NewRegistry()

	if a.cfg.ChatEndpoint != "" {
		var tokens chat.TokenSource = chat.StaticToken(a.cfg.ChatAccessToken)
		if a.cfg.ChatAccessToken == "" && a.redis != nil {
			tokens = chat.NewRedisTokenSource(a.redis, a.cfg.ChatTokenKey)
		}
		registry.Register(chat.NewSender(a.cfg.ChatEndpoint, tokens, client))
	}
	if a.cfg.SMSEndpoint != "" {
		creds := sms.Credentials{Username: a.cfg.SMSUsername, Password: a.cfg.SMSPassword}
		registry.Register(sms.NewSender(sms.NewHTTPClient(a.cfg.SMSEndpoint, client), creds))
	}
	registry.Register(webhook.NewSender(client))

	slog.Info("Registered delivery channels", "channels", registry.List())
	return sender.NewSender(registry, a.db, a.db, a.recorder)
}

// newQueue returns the job queue the configured mode selects. In memory mode
// jobs run on a local worker pool that drains on close.
func (a *app) newQueue(ctx context.Context) (jobs.Queue, error) {
	if a.cfg.QueueMode == config.QueueKafka {
		q, err := jobs.NewKafkaQueue(a.cfg.KafkaBrokers, a.cfg.JobsTopic)
		if err != nil {
			slog.Error("Failed to create Kafka job producer", "error", err)
			slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
			return nil, err
		}
		a.closers = append(a.closers, func() { q.Close() })
		return q, nil
	}

	pool := jobs.NewWorkerPool(a.newSender(), a.cfg.Workers)
	pool.Start(context.WithoutCancel(ctx))
	a.closers = append(a.closers, pool.Stop)
	return pool, nil
}

// newOrchestrator wires the dispatch pipeline onto queue.
func (a *app) newOrchestrator(queue jobs.Queue) *orchestrator.Orchestrator {
	var rules trigger.Store = a.db
	if a.redis != nil && a.cfg.TemplateCacheTTL > 0 {
		rules = trigger.NewCachedStore(a.db, a.redis, a.cfg.TemplateCacheTTL)
	}
	return orchestrator.New(
		trigger.NewResolver(rules),
		resolver.NewResolver(a.db),
		recipients.NewResolver(a.db, a.cfg.PhoneRegion),
		queue,
		a.db,
		a.recorder,
	)
}
