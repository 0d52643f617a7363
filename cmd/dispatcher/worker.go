package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	pkgmetrics "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume dispatch jobs from Kafka and deliver them",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().String("worker-group-id", "trigger-dispatcher-worker", "Kafka consumer group for dispatch jobs")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("Starting dispatch worker",
		"kafka_brokers", cfg.KafkaBrokers,
		"jobs_topic", cfg.JobsTopic,
		"worker_group_id", cfg.WorkerGroupID,
		"workers", cfg.Workers,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, pkgmetrics.ServiceWorker)
	if err != nil {
		return err
	}
	defer a.close()

	consumer, err := jobs.NewConsumer(cfg.KafkaBrokers, cfg.JobsTopic, cfg.WorkerGroupID)
	if err != nil {
		slog.Error("Failed to create Kafka job consumer", "error", err)
		slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
		return err
	}
	defer consumer.Close()

	pool := jobs.NewWorkerPool(a.newSender(), cfg.Workers)
	pool.Start(context.WithoutCancel(ctx))

	err = consumer.Run(ctx, pool)
	pool.Stop()
	if err != nil {
		slog.Error("Job consumption failed", "error", err)
		return err
	}

	slog.Info("Dispatch worker stopped")
	return nil
}
