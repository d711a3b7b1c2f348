package uuidx

import "github.com/google/uuid"

// New returns a version 7 UUID. It panics when the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns New as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a new identifier of the form prefix_uuid, used to make run and
// observer ids recognizable in logs.
func Prefixed(prefix string) string {
	if prefix == "" {
		return NewString()
	}
	return prefix + "_" + NewString()
}
