package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	"github.com/nats-io/nats.go"
)

// DefaultSubject carries the log traffic of every tickertape process.
const DefaultSubject = "tickertape.logs"

// NATS publishes log traffic on a subject so that every process bridging the
// subject into its hub sees every run.
type NATS struct {
	client  *nats.Conn
	subject string
	logger  *slog.Logger
}

var _ Sink = (*NATS)(nil)

func NewNATS(client *nats.Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{
		client:  client,
		subject: subject,
		logger:  slog.Default().With(slogx.LoggerName("tickertape.broker.nats"), slog.String("subject", subject)),
	}
}

func (b *NATS) Subject() string {
	return b.subject
}

// Publish stamps the event at the origin and sends it. Failures are logged and
// otherwise ignored.
func (b *NATS) Publish(ctx context.Context, e events.LogEvent) {
	b.send(ctx, e.Stamped(time.Now()))
}

// Reset asks every bridged hub to reset.
func (b *NATS) Reset(ctx context.Context) {
	b.send(ctx, events.Reset{Timestamp: strfmt.DateTime(time.Now().UTC())})
}

func (b *NATS) send(ctx context.Context, e events.Event) {
	data, err := events.ToJSON(e)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to encode event", slogx.Error(err))
		return
	}
	if err := b.client.Publish(b.subject, data); err != nil {
		b.logger.ErrorContext(ctx, "failed to publish event", slogx.Error(err))
	}
}

// Bridge subscribes to the subject and replays everything it receives into
// sink until ctx is done or the subscription is dropped.
func (b *NATS) Bridge(ctx context.Context, sink Sink) (Subscription, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	nsub, err := b.client.Subscribe(b.subject, func(msg *nats.Msg) {
		event, err := events.FromJSON(msg.Data)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to unmarshal event", slogx.Error(err))
			return
		}

		switch e := event.(type) {
		case events.LogEvent:
			sink.Publish(ctx, e)
		case events.Reset:
			sink.Reset(ctx)
		}
	})
	if err != nil {
		return nil, err
	}

	sub := &natsSubscription{
		id:     uuidx.Prefixed("bridge"),
		sub:    nsub,
		logger: b.logger,
	}
	sub.stop = context.AfterFunc(ctx, sub.unsubscribe)
	return sub, nil
}

type natsSubscription struct {
	id     string
	sub    *nats.Subscription
	stop   func() bool
	once   sync.Once
	logger *slog.Logger
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	n.stop()
	n.unsubscribe()
}

func (n *natsSubscription) unsubscribe() {
	n.once.Do(func() {
		if !n.sub.IsValid() {
			return
		}
		if err := n.sub.Unsubscribe(); err != nil {
			n.logger.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
		}
	})
}
