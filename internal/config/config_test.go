package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, "https://bulls-n-cows.fermyon.app/api", c.OracleURL)
	assert.Equal(t, 5*time.Second, c.OracleTimeout)
	assert.EqualValues(t, 1, c.OracleMaxAttempts)
	assert.Empty(t, c.StoreDSN)

	sc, err := c.Solver()
	require.NoError(t, err)
	assert.Equal(t, game.DefaultConfig(), sc)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SOLVER_SEED", "123")
	t.Setenv("SOLVER_MAX_STEPS", "10")
	t.Setenv("ORACLE_MAX_ATTEMPTS", "3")
	t.Setenv("ORACLE_TIMEOUT", "250ms")
	t.Setenv("ORACLE_RATE", "2.5")
	t.Setenv("STORE_DSN", "./data/runs.db")

	c, err := Load()
	require.NoError(t, err)

	sc, err := c.Solver()
	require.NoError(t, err)
	assert.Equal(t, game.Triple{1, 2, 3}, sc.Seed)
	assert.Equal(t, 10, sc.MaxSteps)

	oc := c.Oracle()
	assert.EqualValues(t, 3, oc.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, oc.Timeout)
	assert.InDelta(t, 2.5, oc.Rate, 1e-9)
	assert.Equal(t, "./data/runs.db", c.StoreDSN)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"seed not digits":   {"SOLVER_SEED", "0x2"},
		"seed repeats":      {"SOLVER_SEED", "001"},
		"seed over bound":   {"SOLVER_SEED", "019"},
		"bad duration":      {"ORACLE_TIMEOUT", "soon"},
		"zero run timeout":  {"RUN_TIMEOUT", "0s"},
		"negative attempts": {"ORACLE_MAX_ATTEMPTS", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
