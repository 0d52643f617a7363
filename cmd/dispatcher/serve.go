package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/handlers"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/intake"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/router"
	pkgmetrics "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, optionally, the Kafka event intake",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("http-port", "8080", "HTTP server port")
	serveCmd.Flags().Bool("intake", false, "Consume the events topic and accept async emits")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	withIntake, _ := cmd.Flags().GetBool("intake")

	slog.Info("Starting trigger dispatcher API",
		"http_port", cfg.HTTPPort,
		"queue_mode", cfg.QueueMode,
		"workers", cfg.Workers,
		"intake", withIntake,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, pkgmetrics.ServiceAPI)
	if err != nil {
		return err
	}
	defer a.close()

	queue, err := a.newQueue(ctx)
	if err != nil {
		return err
	}
	orch := a.newOrchestrator(queue)

	var opts []handlers.Option
	if a.redis != nil {
		opts = append(opts, handlers.WithMetricsReader(pkgmetrics.NewReader(a.redis)))
	}

	intakeErr := make(chan error, 1)
	if withIntake {
		if err := cfg.ValidateIntake(); err != nil {
			slog.Error("Invalid intake configuration", "error", err)
			return err
		}
		publisher, err := intake.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, handlers.WithPublisher(publisher))

		consumer, err := intake.NewConsumer(cfg.KafkaBrokers, cfg.EventsTopic, cfg.ConsumerGroupID)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() { intakeErr <- consumer.Run(ctx, orch) }()
	}

	server := router.NewServer(cfg.HTTPPort, handlers.NewHandlers(orch, a.db, opts...), a.collector)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		return err
	case err := <-intakeErr:
		if err != nil {
			slog.Error("Event intake failed", "error", err)
			return err
		}
	}

	slog.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down server", "error", err)
	}
	slog.Info("Trigger dispatcher API stopped")
	return nil
}
