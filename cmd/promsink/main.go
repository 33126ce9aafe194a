package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sbilibin2017/promsink/internal/agent"
	"github.com/sbilibin2017/promsink/internal/configs"
	"github.com/sbilibin2017/promsink/internal/models"
	"github.com/sbilibin2017/promsink/internal/registry"
	"github.com/sbilibin2017/promsink/internal/runner"
	"github.com/sbilibin2017/promsink/internal/sink"
)

// Build information variables.
// These are set during build time via ldflags.
var (
	buildVersion string = "N/A"
	buildDate    string = "N/A"
	buildCommit  string = "N/A"
)

// printBuildInfo prints the build version, date, and commit hash to stdout.
func printBuildInfo() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

// Application entry point.
func main() {
	printBuildInfo()

	cfg, pollInterval, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(context.Background(), cfg, pollInterval); err != nil {
		log.Fatal(err)
	}
}

// run wires the pipeline: the agent source feeds the update channel, the
// sink merges updates and serves the exposition endpoint.
func run(ctx context.Context, cfg *configs.SinkConfig, pollInterval time.Duration) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	updates := make(chan models.Metric, 100)

	reg := registry.New(cfg.FlushPeriod)
	s := sink.New(cfg, reg, logger)
	a := agent.New(pollInterval, updates, logger)

	r := runner.NewRunner()
	r.AddWorker(a)
	r.AddWorker(runner.WorkerFunc(func(ctx context.Context) error {
		return s.Run(ctx, updates, sink.NopAcker{})
	}))

	go func() {
		// wait for the listener to come up before checking it
		select {
		case <-ctx.Done():
			return
		case <-s.Started():
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Healthcheck(checkCtx); err != nil {
			logger.Warn("healthcheck failed", zap.Error(err))
			return
		}
		logger.Info("healthcheck passed", zap.String("address", cfg.Address))
	}()

	return r.Run(ctx)
}
