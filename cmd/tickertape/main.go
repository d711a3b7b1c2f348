// Command tickertape answers questions about public companies with a
// researched financial analysis while streaming its progress to observers.
//
// Usage:
//
//	tickertape serve  [-config file]         run the HTTP API
//	tickertape worker [-config file]         run a Temporal analysis worker
//	tickertape ask    [-config file] question  answer one question in the terminal
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Load API keys from .env
	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/tickertape/internal/config"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

var errUsage = errors.New("usage: tickertape <serve|worker|ask> [-config file] [question]")

func init() {
	setupLogging(slog.LevelInfo)
}

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mainE(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		slog.Error("tickertape failed", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file (defaults to $TICKERTAPE_CONFIG)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())

	switch args[0] {
	case "serve":
		return serve(ctx, cfg)
	case "worker":
		return runWorker(ctx, cfg)
	case "ask":
		return ask(ctx, cfg, fs.Args())
	default:
		return errUsage
	}
}
