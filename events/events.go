package events

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// Kind classifies a LogEvent.
type Kind string

const (
	KindInfo   Kind = "info"
	KindStep   Kind = "step"
	KindResult Kind = "result"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindStep, KindResult:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts s to a Kind, rejecting anything that isn't info, step or result.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown event kind %q", s)
	}
	return k, nil
}

// Event is anything that can be delivered to an observer.
type Event interface {
	event()
}

// LogEvent is a single progress entry.
type LogEvent struct {
	Timestamp strfmt.DateTime
	Kind      Kind
	Message   string
}

func (LogEvent) event() {}

// Reset instructs observers to discard their local state.
type Reset struct {
	Timestamp strfmt.DateTime
}

func (Reset) event() {}

// Stamped returns a copy of e with its timestamp set to now when it was empty.
func (e LogEvent) Stamped(now time.Time) LogEvent {
	if e.Timestamp.IsZero() {
		e.Timestamp = strfmt.DateTime(now.UTC())
	}
	return e
}

// New creates a LogEvent of the given kind without a timestamp.
func New(kind Kind, message string) LogEvent {
	return LogEvent{Kind: kind, Message: message}
}

func Info(message string) LogEvent {
	return New(KindInfo, message)
}

func Infof(format string, args ...any) LogEvent {
	return New(KindInfo, fmt.Sprintf(format, args...))
}

func Step(message string) LogEvent {
	return New(KindStep, message)
}

func Stepf(format string, args ...any) LogEvent {
	return New(KindStep, fmt.Sprintf(format, args...))
}

func Result(message string) LogEvent {
	return New(KindResult, message)
}
