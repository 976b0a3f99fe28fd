// internal/config/config.go
//
// Environment configuration for the solver service.
// Every field has a default, so the service runs with an empty environment.
// main loads a local .env (godotenv) before calling Load.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
	"github.com/robalobadob/bullscows/apps/go-server/internal/oracle"
)

// Config is the full service configuration.
type Config struct {
	Port         string `env:"PORT" envDefault:"5175"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	OracleURL         string        `env:"ORACLE_URL" envDefault:"https://bulls-n-cows.fermyon.app/api"`
	OracleTimeout     time.Duration `env:"ORACLE_TIMEOUT" envDefault:"5s"`
	OracleMaxAttempts uint          `env:"ORACLE_MAX_ATTEMPTS" envDefault:"1"`
	OracleRate        float64       `env:"ORACLE_RATE" envDefault:"0"`

	RunTimeout time.Duration `env:"RUN_TIMEOUT" envDefault:"60s"`

	DigitBound int    `env:"SOLVER_DIGIT_BOUND" envDefault:"4"`
	Seed       string `env:"SOLVER_SEED" envDefault:"012"`
	SeedNote   string `env:"SOLVER_SEED_NOTE" envDefault:"bootstrap"`
	MaxSteps   int    `env:"SOLVER_MAX_STEPS" envDefault:"64"`

	StoreDSN    string `env:"STORE_DSN"`
	JWTSecret   string `env:"JWT_SECRET"`
	TraceStdout bool   `env:"TRACE_STDOUT" envDefault:"false"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.RunTimeout <= 0 {
		return Config{}, fmt.Errorf("RUN_TIMEOUT must be positive, got %s", c.RunTimeout)
	}
	if _, err := c.Solver(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Solver derives and validates the search constants.
func (c Config) Solver() (game.Config, error) {
	seed, err := game.ParseTriple(c.Seed)
	if err != nil {
		return game.Config{}, fmt.Errorf("SOLVER_SEED: %w", err)
	}
	sc := game.Config{
		DigitBound: c.DigitBound,
		Seed:       seed,
		SeedNote:   c.SeedNote,
		MaxSteps:   c.MaxSteps,
	}
	if err := sc.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("solver config: %w", err)
	}
	return sc, nil
}

// Oracle derives the oracle client settings.
func (c Config) Oracle() oracle.Config {
	return oracle.Config{
		Endpoint:    c.OracleURL,
		Timeout:     c.OracleTimeout,
		MaxAttempts: c.OracleMaxAttempts,
		Rate:        c.OracleRate,
	}
}
