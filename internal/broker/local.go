package broker

import (
	"context"

	"github.com/casualjim/tickertape/events"
)

// Tee returns a Sink that forwards everything to each of sinks in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Publish(ctx context.Context, e events.LogEvent) {
	for _, s := range t {
		s.Publish(ctx, e)
	}
}

func (t tee) Reset(ctx context.Context) {
	for _, s := range t {
		s.Reset(ctx)
	}
}

// SinkFuncs adapts a pair of functions to Sink. A nil function is a no-op.
type SinkFuncs struct {
	OnPublish func(context.Context, events.LogEvent)
	OnReset   func(context.Context)
}

func (s SinkFuncs) Publish(ctx context.Context, e events.LogEvent) {
	if s.OnPublish != nil {
		s.OnPublish(ctx, e)
	}
}

func (s SinkFuncs) Reset(ctx context.Context) {
	if s.OnReset != nil {
		s.OnReset(ctx)
	}
}
