package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/api"
	"github.com/udayhese96/Gemscap-Assignment/internal/config"
	"github.com/udayhese96/Gemscap-Assignment/internal/ingest"
	"github.com/udayhese96/Gemscap-Assignment/internal/notify"
	"github.com/udayhese96/Gemscap-Assignment/internal/pipeline"
	"github.com/udayhese96/Gemscap-Assignment/internal/store"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

const shutdownTimeout = 2 * time.Second

func main() {
	replayPath := flag.String("replay", "", "replay ticks from an NDJSON file instead of the live stream")
	pace := flag.Bool("pace", false, "reproduce original inter-tick gaps during replay")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting pair scanner",
		logger.String("environment", cfg.Environment),
		logger.Any("symbols", cfg.Symbols),
		logger.Int("rolling_window", cfg.RollingWindow),
	)

	var source ingest.Source
	if *replayPath != "" {
		source = ingest.NewReplaySource(*replayPath, *pace)
	} else {
		bc := ingest.DefaultBinanceConfig()
		bc.BaseURL = cfg.WSBaseURL
		bc.ReconnectDelay = cfg.ReconnectDelay
		bc.MaxReconnectDelay = cfg.MaxReconnectDelay
		bc.ReconnectMultiplier = cfg.ReconnectMultiplier
		source = ingest.NewBinanceSource(bc)
	}

	st := store.NewMemoryStore(cfg.MaxTicks, cfg.MaxBars)
	engine := alert.NewEngine(
		alert.DefaultZScoreRules(cfg.ZScoreUpper, cfg.ZScoreLower, cfg.AlertCooldown),
		cfg.MaxAlertHistory,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks := []notify.Sink{notify.NewLogSink()}
	if cfg.Redis.Enabled {
		redisSink, err := notify.NewRedisSink(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Redis sink unavailable, continuing without it", logger.ErrorField(err))
		} else {
			sinks = append(sinks, redisSink)
			logger.Info("Redis alert sink enabled",
				logger.String("channel", cfg.Redis.Channel),
			)
		}
	}
	engine.Subscribe(func(a alert.Alert) {
		for _, sink := range sinks {
			if err := sink.Publish(ctx, a); err != nil {
				logger.ErrorsTotal.WithLabelValues("notify", "publish").Inc()
				logger.Error("Alert delivery failed", logger.ErrorField(err))
			}
		}
	})

	pipe := pipeline.New(cfg, source, st, engine)
	server := api.NewServer(cfg.HealthPort, pipe, source, engine)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		errCh <- pipe.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Fatal error", logger.ErrorField(err))
			exitCode = 1
		} else {
			// Replay sources end the pipeline at EOF; keep serving until
			// interrupted so results stay queryable.
			if *replayPath != "" {
				logger.Info("Replay complete, serving results")
				sig := <-sigCh
				logger.Info("Shutting down", logger.String("signal", sig.String()))
			}
		}
	}

	cancel()
	if err := source.Close(); err != nil {
		logger.Error("Source close failed", logger.ErrorField(err))
	}
	pipe.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", logger.ErrorField(err))
	}
	for _, sink := range sinks {
		sink.Close()
	}

	logger.Info("Stopped",
		logger.Int64("ticks_processed", st.TickCount()),
	)
	os.Exit(exitCode)
}
