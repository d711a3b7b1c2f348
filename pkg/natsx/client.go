// Package natsx connects to NATS with the options tickertape processes share.
package natsx

import (
	"log/slog"

	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/nats-io/nats.go"
)

// DefaultOptions names the connection, enables compression and logs
// connection state changes.
func DefaultOptions(name string) []nats.Option {
	lg := slog.Default().With(slogx.LoggerName("tickertape.nats"))
	return []nats.Option{
		nats.Name(name),
		nats.Compression(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				lg.Warn("nats disconnected", slogx.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}
}

// NewClient connects to url. Without explicit options the DefaultOptions for a
// connection named "tickertape" are used.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = DefaultOptions("tickertape")
	}
	if url == "" {
		url = nats.DefaultURL
	}
	return nats.Connect(url, opts...)
}
