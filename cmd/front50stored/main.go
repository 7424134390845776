package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"front50store/internal/app"
	"front50store/internal/logging"
	"front50store/internal/objects"
	"front50store/internal/server"
	"front50store/internal/state"
)

func main() {
	var configPath, envFile string
	defaultConfigPath, err := state.ConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "state path error: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfigPath, "path to config file")
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before config")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath, envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := app.OpenService(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open object service")
	}
	defer svc.Close()

	if err := svc.EnsureBucketExists(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure bucket exists")
	}

	srv, err := server.New(svc, objects.DefaultRegistry(), server.Options{
		Address:     cfg.Server.Address,
		AuthToken:   cfg.Server.AuthToken,
		AllowRemote: cfg.Server.AllowRemote,
		Logger:      logger,
		Gatherer:    reg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid server configuration")
	}
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shut down")
}
