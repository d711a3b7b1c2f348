package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/internal/broker"
	"github.com/casualjim/tickertape/internal/config"
	"github.com/casualjim/tickertape/internal/executor"
	"github.com/casualjim/tickertape/pkg/natsx"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/tprl"
)

func runWorker(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.Default().With(slogx.LoggerName("tickertape.worker"))

	var sink broker.Sink = broker.SinkFuncs{
		OnPublish: func(ctx context.Context, e events.LogEvent) {
			logger.InfoContext(ctx, e.Message, slog.String("type", e.Kind.String()))
		},
	}
	if cfg.NATS.URL != "" {
		nc, err := natsx.NewClient(cfg.NATS.URL, natsx.DefaultOptions("tickertape-worker")...)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Drain()
		sink = broker.NewNATS(nc, cfg.NATS.Subject)
	} else {
		logger.Warn("nats is not configured, progress is only logged locally")
	}

	c, err := tprl.NewClient(cfg.Temporal.Address, cfg.Temporal.Namespace)
	if err != nil {
		return err
	}
	defer c.Close()

	p, err := newPipeline(cfg, sink)
	if err != nil {
		return err
	}

	w := executor.NewWorker(c, cfg.Temporal.TaskQueue, p)
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start temporal worker: %w", err)
	}
	logger.Info("worker started", slog.String("task_queue", cfg.Temporal.TaskQueue))

	<-ctx.Done()
	w.Stop()
	return nil
}
