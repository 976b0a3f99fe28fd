package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// fakeOracle serves a fixed handler and counts requests.
func fakeOracle(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newClient(t *testing.T, endpoint string, mut ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{Endpoint: endpoint, Timeout: time.Second}
	for _, f := range mut {
		f(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestProbe_BootstrapOmitsGameID(t *testing.T) {
	srv, _ := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "012", r.URL.Query().Get("guess"))
		assert.False(t, r.URL.Query().Has("id"))
		_, _ = w.Write([]byte(`{"cows":1,"bulls":0,"gameId":"abc","guesses":1,"solved":false}`))
	})
	c := newClient(t, srv.URL+"/api")

	fb, err := c.Probe(context.Background(), "", game.Triple{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, game.Feedback{WrongPosition: 1, RightPosition: 0, GameID: "abc", GuessCount: 1}, fb)
}

func TestProbe_SendsGameID(t *testing.T) {
	srv, _ := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "135", r.URL.Query().Get("guess"))
		assert.Equal(t, "abc", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"cows":0,"bulls":3,"gameId":"abc","guesses":4,"solved":true}`))
	})
	c := newClient(t, srv.URL+"/api")

	fb, err := c.Probe(context.Background(), "abc", game.Triple{1, 3, 5})
	require.NoError(t, err)
	assert.True(t, fb.IsSolution())
	assert.Equal(t, 4, fb.GuessCount)
}

func TestProbe_MalformedFeedback(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>oops</html>`,
		"missing bulls": `{"cows":1,"gameId":"abc","guesses":1,"solved":false}`,
		"negative":      `{"cows":-1,"bulls":0,"gameId":"abc","guesses":1,"solved":false}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			c := newClient(t, srv.URL, func(cfg *Config) { cfg.MaxAttempts = 3 })

			_, err := c.Probe(context.Background(), "abc", game.Triple{0, 1, 2})
			require.ErrorIs(t, err, ErrMalformedFeedback)
			assert.EqualValues(t, 1, hits.Load(), "malformed feedback is not retried")
		})
	}
}

func TestProbe_BootstrapRequiresGameID(t *testing.T) {
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cows":1,"bulls":0,"guesses":1,"solved":false}`))
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.MaxAttempts = 3 })

	_, err := c.Probe(context.Background(), "", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrMalformedFeedback)
	assert.EqualValues(t, 1, hits.Load())

	// Later probes already carry the id; the echo is optional there.
	fb, err := c.Probe(context.Background(), "abc", game.Triple{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, fb.WrongPosition)
	assert.Empty(t, fb.GameID)
}

func TestProbe_ServerErrorIsUnavailable(t *testing.T) {
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	c := newClient(t, srv.URL)

	_, err := c.Probe(context.Background(), "abc", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, hits.Load(), "no retry by default")
}

func TestProbe_RetriesTransientFailures(t *testing.T) {
	var served atomic.Int32
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		if served.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"cows":2,"bulls":1,"gameId":"abc","guesses":7,"solved":false}`))
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.MaxAttempts = 3 })

	fb, err := c.Probe(context.Background(), "abc", game.Triple{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, fb.WrongPosition)
	assert.Equal(t, 1, fb.RightPosition)
	assert.EqualValues(t, 3, hits.Load())
}

func TestProbe_ClientErrorNotRetried(t *testing.T) {
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad guess", http.StatusBadRequest)
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.MaxAttempts = 3 })

	_, err := c.Probe(context.Background(), "abc", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, hits.Load())
}

func TestProbe_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url)
	_, err := c.Probe(context.Background(), "", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestProbe_Timeout(t *testing.T) {
	srv, _ := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })

	_, err := c.Probe(context.Background(), "", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestProbe_CanceledContext(t *testing.T) {
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cows":0,"bulls":0,"gameId":"abc","guesses":1,"solved":false}`))
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Rate = 1 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Probe(ctx, "", game.Triple{0, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, hits.Load())
}

func TestProbe_RateWaitPastDeadlineIsTimeout(t *testing.T) {
	srv, hits := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cows":0,"bulls":0,"gameId":"abc","guesses":1,"solved":false}`))
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Rate = 0.5 })

	_, err := c.Probe(context.Background(), "", game.Triple{0, 1, 2})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Probe(ctx, "abc", game.Triple{3, 1, 2})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, hits.Load())
}

func TestNew_RejectsBadEndpoint(t *testing.T) {
	for _, ep := range []string{"ftp://example.com/api", "://nope", "example.com/api"} {
		_, err := New(Config{Endpoint: ep})
		assert.Error(t, err, "endpoint %q", ep)
	}

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint.String())
	assert.EqualValues(t, 1, c.maxAttempts)
}

func TestProbe_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	srv, _ := fakeOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cows":1,"bulls":1,"gameId":"abc","guesses":2,"solved":false}`))
	})
	c := newClient(t, srv.URL)

	_, err := c.Probe(context.Background(), "abc", game.Triple{0, 1, 2})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "oracle.probe", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "012", attrs["oracle.guess"])
	assert.Equal(t, "abc", attrs["game.id"])
	assert.Equal(t, "1", attrs["oracle.bulls"])
}
