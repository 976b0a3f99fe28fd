package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/internal/config"
	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
	"github.com/robalobadob/bullscows/apps/go-server/internal/httpserver"
	"github.com/robalobadob/bullscows/apps/go-server/internal/oracle"
	"github.com/robalobadob/bullscows/apps/go-server/internal/store"
	"github.com/robalobadob/bullscows/apps/go-server/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{Stdout: cfg.TraceStdout})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer func() { _ = shutdown(context.Background()) }()

	runs := store.NewMemoryStore()
	if cfg.StoreDSN != "" {
		if runs, err = store.OpenSQLite(cfg.StoreDSN); err != nil {
			log.Fatal().Err(err).Str("dsn", cfg.StoreDSN).Msg("failed to open run store")
		}
	}
	defer runs.Close()

	client, err := oracle.New(cfg.Oracle())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build oracle client")
	}
	solver, _ := cfg.Solver() // validated by config.Load
	driver, err := game.NewDriver(client, solver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build solver")
	}

	srv := httpserver.New(httpserver.Options{
		Driver:       driver,
		Store:        runs,
		RunTimeout:   cfg.RunTimeout,
		JWTSecret:    cfg.JWTSecret,
		ClientOrigin: cfg.ClientOrigin,
	})
	log.Info().
		Str("port", cfg.Port).
		Str("oracle", cfg.OracleURL).
		Bool("persistent", cfg.StoreDSN != "").
		Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
