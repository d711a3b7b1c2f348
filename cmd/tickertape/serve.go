package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/casualjim/tickertape/internal/broker"
	"github.com/casualjim/tickertape/internal/config"
	"github.com/casualjim/tickertape/internal/executor"
	"github.com/casualjim/tickertape/internal/server"
	"github.com/casualjim/tickertape/pkg/natsx"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/tprl"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.Default().With(slogx.LoggerName("tickertape.serve"))

	h := newHub(cfg)
	var sink broker.Sink = h

	if cfg.NATS.URL != "" {
		nc, err := natsx.NewClient(cfg.NATS.URL, natsx.DefaultOptions("tickertape-serve")...)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Drain()

		b := broker.NewNATS(nc, cfg.NATS.Subject)
		sub, err := b.Bridge(ctx, h)
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()

		sink = b
		logger.Info("relaying logs through nats", slog.String("subject", b.Subject()))
	}

	var (
		runner executor.Runner
		wrk    worker.Worker
	)
	if cfg.Temporal.Enabled {
		c, err := tprl.NewClient(cfg.Temporal.Address, cfg.Temporal.Namespace)
		if err != nil {
			return err
		}
		defer c.Close()

		runner = executor.NewTemporalProxy(c, cfg.Temporal.TaskQueue, cfg.Pipeline.StageTimeout)
		if cfg.Temporal.EmbeddedWorker {
			p, err := newPipeline(cfg, sink)
			if err != nil {
				return err
			}
			wrk = executor.NewWorker(c, cfg.Temporal.TaskQueue, p)
		} else if cfg.NATS.URL == "" {
			logger.Warn("remote workers can't reach this hub without nats, their progress won't be streamed")
		}
	} else {
		p, err := newPipeline(cfg, sink)
		if err != nil {
			return err
		}
		runner = executor.NewLocal(p)
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), max(cfg.Server.RateBurst, 1))
	}

	api, err := server.New(server.Deps{
		Hub:       h,
		Sink:      sink,
		Runner:    executor.Traced(runner, sink),
		Limiter:   limiter,
		KeepAlive: cfg.Server.KeepAlive,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Live streams end when the process shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	if wrk != nil {
		if err := wrk.Start(); err != nil {
			return fmt.Errorf("failed to start temporal worker: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			wrk.Stop()
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
