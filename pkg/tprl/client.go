// Package tprl creates Temporal clients that log through slog.
package tprl

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/tickertape/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// NewClient creates a lazy Temporal client for hostPort and namespace. Empty
// values fall back to the SDK defaults. No connection is made until first use.
func NewClient(hostPort, namespace string) (client.Client, error) {
	if hostPort == "" {
		hostPort = client.DefaultHostPort
	}
	if namespace == "" {
		namespace = client.DefaultNamespace
	}
	lg := slog.Default().With(slogx.LoggerName("tickertape.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
