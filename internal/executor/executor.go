package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pipeline"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/uuidx"
)

// Runner answers one question with an analysis.
type Runner interface {
	Run(ctx context.Context, question string) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(context.Context, string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// Local runs the pipeline in process.
type Local struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewLocal(p *pipeline.Pipeline) *Local {
	return &Local{
		pipeline: p,
		logger:   slog.Default().With(slogx.LoggerName("tickertape.executor.local")),
	}
}

func (l *Local) Run(ctx context.Context, question string) (string, error) {
	runID := uuidx.New()
	start := time.Now()

	out, err := l.pipeline.Run(pipeline.WithRunID(ctx, runID), question)
	if err != nil {
		l.logger.ErrorContext(ctx, "analysis failed", slog.String("run_id", runID.String()), slogx.Error(err), slogx.Elapsed(start))
		return "", err
	}
	l.logger.InfoContext(ctx, "analysis completed", slog.String("run_id", runID.String()), slogx.Elapsed(start))
	return out, nil
}

// Traced publishes the received question before delegating to r and a failure
// summary when r fails.
func Traced(r Runner, pub pipeline.Publisher) Runner {
	return RunnerFunc(func(ctx context.Context, question string) (string, error) {
		pub.Publish(ctx, events.Info("Received question: "+question))

		out, err := r.Run(ctx, question)
		if err != nil {
			pub.Publish(ctx, events.Step("Analysis failed: "+err.Error()))
			return "", err
		}
		return out, nil
	})
}
