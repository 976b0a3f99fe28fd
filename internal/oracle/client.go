// internal/oracle/client.go
//
// HTTP client for the bulls-and-cows oracle.
// Responsibilities:
//   - Turn a triple into `GET <endpoint>?guess=<digits>&id=<gameId>`.
//   - Decode the JSON verdict into game.Feedback.
//   - Classify failures as ErrUnavailable or ErrMalformedFeedback.
//   - Optional bounded retry (exponential backoff) and outbound pacing.
//
// Notes:
//   - The id parameter is omitted on the bootstrap probe; the oracle allocates a game
//     and its verdict must name it.
//   - Malformed bodies and 4xx answers are never retried.

package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// DefaultEndpoint is the public oracle.
const DefaultEndpoint = "https://bulls-n-cows.fermyon.app/api"

const maxBodyBytes = 1 << 16

var (
	// ErrUnavailable wraps transport failures and non-2xx answers.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrMalformedFeedback wraps bodies that do not decode to a verdict.
	ErrMalformedFeedback = errors.New("malformed oracle feedback")
)

var tracer = otel.Tracer("github.com/robalobadob/bullscows/apps/go-server/internal/oracle")

// Config tunes a Client. Zero values fall back to the defaults noted per field.
type Config struct {
	Endpoint    string        // default DefaultEndpoint
	Timeout     time.Duration // per attempt; default 5s
	MaxAttempts uint          // attempts per probe; default 1 (no retry)
	Rate        float64       // probes per second; 0 = unlimited
	HTTPClient  *http.Client  // optional; Timeout is ignored when set
}

// verdict is the oracle's JSON body.
type verdict struct {
	Cows    *int   `json:"cows"`
	Bulls   *int   `json:"bulls"`
	GameID  string `json:"gameId"`
	Guesses int    `json:"guesses"`
	Solved  bool   `json:"solved"`
}

// Client talks to one oracle endpoint. Safe for concurrent use.
type Client struct {
	endpoint    *url.URL
	http        *http.Client
	maxAttempts uint
	limiter     *rate.Limiter
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.Endpoint
	if raw == "" {
		raw = DefaultEndpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("oracle endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("oracle endpoint %q: scheme must be http or https", raw)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Client{
		endpoint:    u,
		http:        hc,
		maxAttempts: attempts,
		limiter:     rate.NewLimiter(limit, 1),
	}, nil
}

// Probe submits t for gameID and returns the oracle's verdict.
func (c *Client) Probe(ctx context.Context, gameID string, t game.Triple) (game.Feedback, error) {
	guess := t.Digits()
	ctx, span := tracer.Start(ctx, "oracle.probe")
	defer span.End()
	span.SetAttributes(attribute.String("oracle.guess", guess), attribute.String("game.id", gameID))

	start := time.Now()
	attempt := 0
	fb, err := backoff.Retry(ctx, func() (game.Feedback, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
				// The next token lies beyond the deadline.
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
			return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
		fb, err := c.do(ctx, gameID, guess)
		if err != nil && attempt < int(c.maxAttempts) {
			log.Debug().Err(err).Int("attempt", attempt).Str("guess", guess).Msg("oracle probe failed")
		}
		return fb, err
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
	)
	if err != nil && !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrMalformedFeedback) {
		// Context expiry while waiting between attempts.
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	observe(err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return game.Feedback{}, err
	}
	span.SetAttributes(
		attribute.Int("oracle.cows", fb.WrongPosition),
		attribute.Int("oracle.bulls", fb.RightPosition),
		attribute.Bool("oracle.solved", fb.Solved),
	)
	return fb, nil
}

// do performs a single HTTP round trip.
func (c *Client) do(ctx context.Context, gameID, guess string) (game.Feedback, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("guess", guess)
	if gameID != "" {
		q.Set("id", gameID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: build request: %w", ErrUnavailable, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return game.Feedback{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return game.Feedback{}, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return game.Feedback{}, backoff.Permanent(err)
		}
		return game.Feedback{}, err
	}
	fb, err := decode(body)
	if err == nil && gameID == "" && fb.GameID == "" {
		return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: bootstrap verdict without gameId", ErrMalformedFeedback))
	}
	return fb, err
}

// decode maps a verdict body onto game.Feedback. cows and bulls are required.
func decode(body []byte) (game.Feedback, error) {
	var v verdict
	if err := json.Unmarshal(body, &v); err != nil {
		return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: %w", ErrMalformedFeedback, err))
	}
	if v.Cows == nil || v.Bulls == nil {
		return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: missing cows or bulls", ErrMalformedFeedback))
	}
	if *v.Cows < 0 || *v.Bulls < 0 || v.Guesses < 0 {
		return game.Feedback{}, backoff.Permanent(fmt.Errorf("%w: negative count", ErrMalformedFeedback))
	}
	return game.Feedback{
		WrongPosition: *v.Cows,
		RightPosition: *v.Bulls,
		Solved:        v.Solved,
		GuessCount:    v.Guesses,
		GameID:        v.GameID,
	}, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
