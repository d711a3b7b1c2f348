package events

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	logEnvelopeJSON   = []byte(`{"event":"log"}`)
	resetEnvelopeJSON = []byte(`{"event":"reset"}`)
)

// MarshalJSON renders the event in the log panel shape.
func (e LogEvent) MarshalJSON() ([]byte, error) {
	return e.appendFields([]byte(`{}`))
}

func (e LogEvent) appendFields(result []byte) ([]byte, error) {
	var err error
	if !e.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	result, err = sjson.SetBytes(result, "type", string(e.Kind))
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(result, "message", e.Message)
}

// UnmarshalJSON implements custom JSON unmarshaling for LogEvent
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	kind := gjson.GetBytes(data, "type")
	if !kind.Exists() {
		return errors.New("missing required field 'type'")
	}
	k, err := ParseKind(kind.String())
	if err != nil {
		return err
	}
	e.Kind = k

	msg := gjson.GetBytes(data, "message")
	if !msg.Exists() {
		return errors.New("missing required field 'message'")
	}
	e.Message = msg.String()

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := e.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}

// ToJSON encodes an event with its envelope discriminator.
func ToJSON(event Event) ([]byte, error) {
	switch e := event.(type) {
	case LogEvent:
		return e.appendFields(slices.Clone(logEnvelopeJSON))
	case Reset:
		result := slices.Clone(resetEnvelopeJSON)
		if e.Timestamp.IsZero() {
			return result, nil
		}
		return sjson.SetBytes(result, "timestamp", e.Timestamp.String())
	default:
		return nil, fmt.Errorf("unknown event type: %T", event)
	}
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	switch kind := gjson.GetBytes(data, "event").String(); kind {
	case "log":
		var e LogEvent
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return e, nil
	case "reset":
		var r Reset
		if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
			if err := r.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
				return nil, fmt.Errorf("invalid timestamp: %w", err)
			}
		}
		return r, nil
	case "":
		return nil, errors.New("missing required field 'event'")
	default:
		return nil, fmt.Errorf("unknown event %q", kind)
	}
}
