// Package slogx holds the attribute helpers shared by every tickertape logger.
package slogx

import (
	"log/slog"
	"time"
)

// KeyLoggerName is the attribute key naming the component that logs.
const KeyLoggerName = "logger"

// LoggerName returns the attribute identifying a component logger.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Error returns the error attribute. A nil error renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stage names the pipeline stage a record belongs to.
func Stage(name string) slog.Attr {
	return slog.String("stage", name)
}

// Elapsed reports the time spent since start, in milliseconds.
func Elapsed(start time.Time) slog.Attr {
	return slog.Int64("elapsed_ms", time.Since(start).Milliseconds())
}

// ByteString logs a byte slice as a string.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}
