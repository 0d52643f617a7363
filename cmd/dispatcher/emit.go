package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	pkgmetrics "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

var emitCmd = &cobra.Command{
	Use:   "emit <event-name>",
	Short: "Emit one event and wait for its in-process deliveries",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmit,
}

func init() {
	f := emitCmd.Flags()
	f.String("payload", "", "Event payload as JSON")
	f.String("payload-file", "", "Read the event payload from a JSON file")
	f.String("actor-chat", "", "Triggering actor's chat user id")
	f.String("actor-phone", "", "Triggering actor's phone number")
}

func runEmit(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	raw, _ := f.GetString("payload")
	if file, _ := f.GetString("payload-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read payload file: %w", err)
		}
		raw = string(data)
	}
	if raw != "" && !json.Valid([]byte(raw)) {
		return fmt.Errorf("payload is not valid JSON")
	}

	var actor domain.Actor
	actor.Chat, _ = f.GetString("actor-chat")
	actor.Phone, _ = f.GetString("actor-phone")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, pkgmetrics.ServiceAPI)
	if err != nil {
		return err
	}

	queue, err := a.newQueue(ctx)
	if err != nil {
		a.close()
		return err
	}

	var payload any
	if raw != "" {
		payload = json.RawMessage(raw)
	}
	n := a.newOrchestrator(queue).EmitEvent(ctx, args[0], actor, payload)

	// Drains the in-process worker pool before the database closes.
	a.close()

	slog.Info("Event emitted", "event_name", args[0], "dispatched", n)
	fmt.Fprintf(cmd.OutOrStdout(), "dispatched %d rule(s)\n", n)
	return nil
}
