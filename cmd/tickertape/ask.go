package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/internal/broker"
	"github.com/casualjim/tickertape/internal/config"
	"github.com/casualjim/tickertape/internal/executor"
	"github.com/casualjim/tickertape/pkg/natsx"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

func ask(ctx context.Context, cfg config.Config, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("ask needs a question")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sink := consoleTrace(os.Stderr)
	if cfg.NATS.URL != "" {
		nc, err := natsx.NewClient(cfg.NATS.URL, natsx.DefaultOptions("tickertape-ask")...)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Drain()
		sink = broker.Tee(sink, broker.NewNATS(nc, cfg.NATS.Subject))
	}

	p, err := newPipeline(cfg, sink)
	if err != nil {
		return err
	}

	answer, err := executor.Traced(executor.NewLocal(p), sink).Run(ctx, question)
	if err != nil {
		return err
	}
	return render(os.Stdout, answer)
}

// consoleTrace prints progress events as colored lines.
func consoleTrace(w io.Writer) broker.Sink {
	return broker.SinkFuncs{
		OnPublish: func(_ context.Context, e events.LogEvent) {
			var prefix string
			switch e.Kind {
			case events.KindStep:
				prefix = color.CyanString("▸")
			case events.KindResult:
				prefix = color.GreenString("✔")
			default:
				prefix = color.New(color.Faint).Sprint("·")
			}
			fmt.Fprintf(w, "%s %s\n", prefix, e.Message)
		},
		OnReset: func(context.Context) {
			fmt.Fprintln(w, color.YellowString("reset"))
		},
	}
}

func render(w io.Writer, markdown string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_, err = fmt.Fprintln(w, markdown)
		return err
	}
	out, err := r.Render(markdown)
	if err != nil {
		_, err = fmt.Fprintln(w, markdown)
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}
