package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pkg/slogx"
)

// handleStream relays hub traffic as server-sent events until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the client can see the stream open, so anything published
	// after that point is delivered.
	ctx := r.Context()
	obs := s.deps.Hub.Subscribe(ctx)
	defer obs.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.deps.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-obs.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				s.logger.DebugContext(ctx, "sse write failed", slog.String("observer", obs.ID()), slogx.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) error {
	switch e := event.(type) {
	case events.LogEvent:
		data, err := e.MarshalJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "data: %s\n\n", data)
		return err
	case events.Reset:
		_, err := fmt.Fprint(w, "event: reset\ndata: {}\n\n")
		return err
	default:
		return fmt.Errorf("unsupported event %T", event)
	}
}
