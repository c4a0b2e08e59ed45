package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/elks-go/internal/cli"
	"github.com/example/elks-go/internal/config"
	"github.com/example/elks-go/internal/logger"
	"github.com/example/elks-go/internal/tracing"
	"github.com/example/elks-go/pkg/elks"
)

const serviceName = "elks"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, cli.Usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fail("config load", err)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return fail("logger init", err)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return fail("tracing init", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	client, err := elks.New(cfg.Elks.Client(), log.With().Str("component", "elks-client").Logger())
	if err != nil {
		log.Error().Err(err).Msg("failed to create elks client")
		return 1
	}

	runner := &cli.Runner{API: client, Out: os.Stdout, Err: os.Stderr}
	if err := runner.Run(ctx, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n\n%s\n", err, cli.Usage)
			return 2
		}
		log.Debug().Err(err).Str("command", args[0]).Msg("command failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func fail(stage string, err error) int {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	l.Error().Err(err).Str("stage", stage).Msg("elks init failed")
	return 1
}
