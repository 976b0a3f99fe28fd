// internal/store/store.go
//
// Persistence of finished solver runs.
// A Run is the durable summary of one game.State plus the oracle failure,
// if the run was aborted. Two implementations:
//   - memory (this package): process-local, lost on restart.
//   - sqlite (sqlite.go):    file-backed, migrations embedded in assets.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit bounds List when the caller passes limit <= 0.
const DefaultListLimit = 20

// Run is one persisted solver run.
type Run struct {
	ID         string       `json:"id"`
	GameID     string       `json:"gameId"`
	Status     game.Status  `json:"status"`
	Reason     game.Reason  `json:"reason,omitempty"`
	Answer     *int         `json:"answer"`
	Guesses    int          `json:"guesses"`
	Error      string       `json:"error,omitempty"`
	History    game.History `json:"history"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// NewRun summarises a finished (or aborted) state under a fresh id.
func NewRun(st game.State, runErr error, started time.Time) *Run {
	r := &Run{
		ID:         uuid.NewString(),
		GameID:     st.GameID,
		Status:     st.Status,
		Reason:     st.Reason,
		Guesses:    st.GuessCount,
		History:    st.History,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if st.Answer != nil {
		ans := *st.Answer
		r.Answer = &ans
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// Store defines the persistence interface for runs.
type Store interface {
	// Save inserts or replaces a run.
	Save(ctx context.Context, r *Run) error

	// Get retrieves a run by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns the most recently started runs, newest first.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Close releases resources held by the store.
	Close() error
}
