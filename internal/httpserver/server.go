// internal/httpserver/server.go
//
// HTTP server wiring for the solver service.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Trigger: GET /api plays one full game against the oracle.
//   - Run inspection: GET /runs, GET /runs/{id} (bearer auth when a secret is set).
//
// Notes:
//   - Oracle failures answer 502 (504 on deadline); failed searches are normal 200 results.
//   - Runs are persisted best effort; a store failure never fails the trigger.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
	"github.com/robalobadob/bullscows/apps/go-server/internal/oracle"
	"github.com/robalobadob/bullscows/apps/go-server/internal/store"
)

const defaultRunTimeout = 60 * time.Second

// Options configures a Server.
type Options struct {
	Driver       *game.Driver
	Store        store.Store
	RunTimeout   time.Duration // deadline of one triggered run
	JWTSecret    string        // empty disables auth on /runs
	ClientOrigin string        // CORS origin
}

// Server bundles router, solver driver and run store.
type Server struct {
	r          *chi.Mux
	driver     *game.Driver
	store      store.Store
	runTimeout time.Duration
	jwtSecret  []byte
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	s := &Server{
		r:          chi.NewRouter(),
		driver:     opts.Driver,
		store:      st,
		runTimeout: runTimeout,
		jwtSecret:  []byte(opts.JWTSecret),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                           // add X-Request-ID
	s.r.Use(chimw.RealIP)                              // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                           // recover from panics
	s.r.Use(chimw.Timeout(runTimeout + 5*time.Second)) // bound handler time
	s.r.Use(jsonContentType)                           // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))                   // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"bullscows-solver","endpoints":["/health","/metrics","GET /api","GET /runs","GET /runs/{id}"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Handle("/metrics", promhttp.Handler())

	// Trigger
	s.r.Get("/api", s.handleSolve)

	// Run inspection (gated when a secret is configured)
	s.r.Group(func(r chi.Router) {
		if len(s.jwtSecret) > 0 {
			r.Use(s.requireAuth())
		}
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ TRIGGER ------------------------------------

// solveRes is the trigger's response body. Slot values and status stay internal.
type solveRes struct {
	Ans                   *int         `json:"ans"`
	TotalBacktrackGuesses int          `json:"total_backtrack_guesses"`
	GameID                string       `json:"game_id"`
	History               game.History `json:"history"`
}

// handleSolve plays one game to a terminal state and reports it.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	started := time.Now()
	st, err := s.driver.Solve(ctx)
	run := store.NewRun(st, err, started)

	// Aborted runs are stored too, with the history up to the failure.
	if serr := s.store.Save(context.WithoutCancel(r.Context()), run); serr != nil {
		log.Warn().Err(serr).Str("runId", run.ID).Msg("save run")
	}
	w.Header().Set("X-Run-ID", run.ID)

	if err != nil {
		code, status := classify(err)
		log.Error().Err(err).Str("runId", run.ID).Int("probes", st.History.Probes()).Msg("solve aborted")
		http.Error(w, `{"error":"`+code+`"}`, status)
		return
	}

	log.Info().
		Str("runId", run.ID).
		Str("gameId", st.GameID).
		Str("status", string(st.Status)).
		Int("guesses", st.GuessCount).
		Dur("elapsed", time.Since(started)).
		Msg("solve finished")

	_ = json.NewEncoder(w).Encode(solveRes{
		Ans:                   st.Answer,
		TotalBacktrackGuesses: st.GuessCount,
		GameID:                st.GameID,
		History:               st.History,
	})
}

// classify maps a run error to an error code and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", http.StatusGatewayTimeout
	case errors.Is(err, oracle.ErrMalformedFeedback):
		return "malformed_feedback", http.StatusBadGateway
	case errors.Is(err, oracle.ErrUnavailable):
		return "oracle_unavailable", http.StatusBadGateway
	default:
		return "solve_failed", http.StatusInternalServerError
	}
}

// ------------------------------- RUNS --------------------------------------

// handleListRuns returns the newest runs; ?limit= caps the count (max 100).
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, 100)
	}
	log.Debug().Str("sub", subjectFrom(r.Context())).Int("limit", limit).Msg("list runs")
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list runs")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(runs)
}

// handleGetRun returns one run by id.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get run")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(run)
}
