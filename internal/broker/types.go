package broker

import (
	"context"

	"github.com/casualjim/tickertape/events"
)

// Sink receives log traffic. *hub.Hub is the usual destination.
type Sink interface {
	Publish(context.Context, events.LogEvent)
	Reset(context.Context)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}
