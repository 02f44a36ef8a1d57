// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command weather-agent serves the demo weather agent over A2A.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"

	"github.com/go-a2a/taskbridge/auth"
	"github.com/go-a2a/taskbridge/internal/config"
	"github.com/go-a2a/taskbridge/internal/weather"
	"github.com/go-a2a/taskbridge/server"
	"github.com/go-a2a/taskbridge/server/agent_execution"
	"github.com/go-a2a/taskbridge/server/event"
	"github.com/go-a2a/taskbridge/server/handler"
	"github.com/go-a2a/taskbridge/server/task"
	"github.com/go-a2a/taskbridge/telemetry"
)

var version = "dev"

var (
	app = kingpin.New("weather-agent", "A2A weather agent")

	serveCmd    = app.Command("serve", "Serve the agent").Default()
	serveConfig = serveCmd.Flag("config", "Path to a config file; watched for log level changes").Short('c').ExistingFile()
	serveHost   = serveCmd.Flag("host", "Override server.host").String()
	servePort   = serveCmd.Flag("port", "Override server.port").Int()

	versionCmd = app.Command("version", "Print the version")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case serveCmd.FullCommand():
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "weather-agent: %v\n", err)
			os.Exit(1)
		}
	case versionCmd.FullCommand():
		fmt.Println(version)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *serveConfig != "" {
		cfg, err = config.LoadFromFile(*serveConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if *serveHost != "" {
		cfg.Server.Host = *serveHost
	}
	if *servePort != 0 {
		cfg.Server.Port = *servePort
	}
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	logger := newLogger(cfg.Log, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	tel := telemetry.New(otel.GetTracerProvider(), otel.GetMeterProvider())

	var (
		signer     *auth.Signer
		serverOpts []server.Option
	)
	if cfg.Push.SignJWT {
		signer, err = auth.NewSigner(auth.WithIssuer(cfg.Server.PublicURL()))
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, server.WithJWKS(signer.JWKSHandler()))
	}

	senderConfig := task.PushSenderConfig{
		Store:     st.pushConfigs,
		Timeout:   cfg.Push.Timeout,
		Logger:    logger,
		Telemetry: tel,
	}
	if signer != nil {
		senderConfig.Signer = signer
	}
	sender, err := task.NewPushSender(senderConfig)
	if err != nil {
		return err
	}

	forecaster, err := newForecaster(cfg.Weather)
	if err != nil {
		return err
	}
	agent := weather.NewAgent(forecaster,
		weather.WithHistory(st.history),
		weather.WithHistoryLimit(cfg.Weather.HistoryLimit),
		weather.WithLogger(logger),
	)

	card := weather.Card(cfg.Server.PublicURL(), true)
	h := handler.NewDefaultRequestHandler(
		agent_execution.NewStreamExecutor(agent, weather.ArtifactName),
		st.tasks,
		handler.WithPushConfigStore(st.pushConfigs),
		handler.WithNotifier(sender),
		handler.WithQueueManager(event.NewQueueManager(
			event.WithMaxQueueSize(cfg.Push.SubscriberBuffer),
			event.WithLogger(logger),
		)),
		handler.WithRequestContextBuilder(agent_execution.NewSimpleRequestContextBuilder(st.tasks)),
		handler.WithLogger(logger),
		handler.WithTelemetry(tel),
	)
	rpc := handler.NewJSONRPCHandler(h, card,
		handler.WithJSONRPCLogger(logger),
		handler.WithJSONRPCTelemetry(tel),
	)

	serverOpts = append(serverOpts,
		server.WithAddr(cfg.Server.Addr()),
		server.WithAllowedOrigins(cfg.Server.CORSOrigins...),
		server.WithH2C(cfg.Server.H2C),
		server.WithLogger(logger),
	)
	srv, err := server.New(card, rpc, serverOpts...)
	if err != nil {
		return err
	}

	var wg conc.WaitGroup
	if *serveConfig != "" {
		wg.Go(func() {
			err := config.Watch(ctx, *serveConfig, logger, func(next *config.Config) {
				level.Set(next.Log.SlogLevel())
			})
			if err != nil {
				logger.WarnContext(ctx, "config watcher stopped", slog.Any("error", err))
			}
		})
	}

	serveErr := make(chan error, 1)
	wg.Go(func() { serveErr <- srv.ListenAndServe(ctx) })

	logger.InfoContext(ctx, "weather agent started",
		slog.String("url", card.URL),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("provider", cfg.Weather.Provider),
		slog.Bool("signed_push", signer != nil),
	)

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	errs := []error{err}
	errs = append(errs, srv.Shutdown(shutdownCtx))
	errs = append(errs, h.Shutdown(shutdownCtx))
	errs = append(errs, sender.Close(shutdownCtx))
	wg.Wait()

	logger.Info("weather agent stopped")
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newForecaster(cfg config.WeatherConfig) (weather.Forecaster, error) {
	switch cfg.Provider {
	case config.ProviderOpenWeather:
		return weather.NewOpenWeather(weather.OpenWeatherConfig{
			APIKey:   cfg.APIKey,
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
		})
	default:
		return weather.NewStaticForecaster(), nil
	}
}
