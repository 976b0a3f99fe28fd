// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Persisting runs and their probe history.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/assets"
	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// sqliteStore persists runs in a SQLite database.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at dsn and migrates it.
func OpenSQLite(dsn string) (Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// openDB ensures the parent directory exists, then opens with busy timeout
// and WAL journaling.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// A single connection keeps PRAGMA state and avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies the embedded migrations in lexical order, each in its own
// transaction, skipping those already recorded in _migrations.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlText, err := assets.Migration(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// Save replaces the run row and its history in one transaction.
func (s *sqliteStore) Save(ctx context.Context, r *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var answer sql.NullInt64
	if r.Answer != nil {
		answer = sql.NullInt64{Int64: int64(*r.Answer), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT OR REPLACE INTO runs
            (id, game_id, status, reason, answer, guesses, error, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GameID, string(r.Status), string(r.Reason), answer, r.Guesses, r.Error,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_history WHERE run_id=?`, r.ID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, h := range r.History {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO run_history (run_id, step, guess, cows, bulls, op, note)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, h.Step, h.Guess, h.WrongPosition, h.RightPosition, string(h.Op), h.Note,
		); err != nil {
			return fmt.Errorf("insert history step %d: %w", h.Step, err)
		}
	}
	return tx.Commit()
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `id, game_id, status, reason, answer, guesses, error, started_at, finished_at`

// Get loads one run and its history.
func (s *sqliteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.History, err = s.history(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the newest runs by start time.
func (s *sqliteStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+runColumns+`
        FROM runs
        ORDER BY started_at DESC, id ASC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Run, 0, limit)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, r := range out {
		if r.History, err = s.history(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// history loads the ordered probe records of a run.
func (s *sqliteStore) history(ctx context.Context, runID string) (game.History, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT step, guess, cows, bulls, op, note
        FROM run_history
        WHERE run_id=?
        ORDER BY step ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h := game.History{}
	for rows.Next() {
		var rec game.HistoryRecord
		var op string
		if err := rows.Scan(&rec.Step, &rec.Guess, &rec.WrongPosition, &rec.RightPosition, &op, &rec.Note); err != nil {
			return nil, err
		}
		rec.Op = game.Op(op)
		h = append(h, rec)
	}
	return h, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r                 Run
		status, reason    string
		answer            sql.NullInt64
		started, finished string
	)
	if err := sc.Scan(&r.ID, &r.GameID, &status, &reason, &answer, &r.Guesses, &r.Error, &started, &finished); err != nil {
		return nil, err
	}
	r.Status = game.Status(status)
	r.Reason = game.Reason(reason)
	if answer.Valid {
		ans := int(answer.Int64)
		r.Answer = &ans
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

// parseTime parses a stored timestamp. Unreadable values load as zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		log.Warn().Err(err).Str("value", s).Msg("bad stored timestamp")
	}
	return t
}
