package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/dashboard"
	"github.com/speedwagon-io/wastemon/internal/health"
	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/monitor"
	"github.com/speedwagon-io/wastemon/internal/server"
	"github.com/speedwagon-io/wastemon/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "poll once, print the bin table and exit")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	bins := config.MustLoadBins()

	fetcher := telemetry.NewThingSpeakClient(
		log,
		cfg.Telemetry.BaseURL,
		cfg.Telemetry.ChannelID,
		cfg.Telemetry.ReadAPIKey,
		cfg.Telemetry.Timeout,
	)

	if *once {
		os.Exit(runOnce(log, cfg, fetcher, bins))
	}

	log.Info("starting waste bin monitor",
		slog.String("env", cfg.Env),
		slog.String("channel_id", cfg.Telemetry.ChannelID),
		slog.Int("bins", len(bins)),
	)

	mon := monitor.New(log, fetcher, bins, monitor.OptionsFromConfig(cfg.Polling))

	healthHandler := health.NewHandler(log)
	healthHandler.AddChecker(health.NewPollerHealthChecker(mon.Status))

	srv := server.New(log, cfg.HTTP.Address,
		healthHandler,
		dashboard.NewHandler(log, mon, bins, cfg.HTTP.Refresh),
	)

	if err := srv.Start(); err != nil {
		log.Error("failed to start http server", sl.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon.Start(ctx)

	<-ctx.Done()
	log.Info("received signal, shutting down")

	mon.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	log.Info("monitor stopped")
}

func runOnce(log *slog.Logger, cfg *config.Config, fetcher telemetry.Fetcher, bins []config.BinConfig) int {
	defer fetcher.Close()

	snap, err := monitor.PollOnce(context.Background(), fetcher, bins, cfg.Polling.Timeout)
	if err != nil {
		log.Error("failed to fetch telemetry", sl.Err(err))
		return 1
	}

	fmt.Print(dashboard.RenderText(dashboard.Render(snap, bins)))
	return 0
}
