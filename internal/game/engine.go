// internal/game/engine.go
//
// Decision driver for one bulls-and-cows run.
// Responsibilities:
//   - Bootstrap a run by probing the seed triple (Solve).
//   - Route each feedback pair to shift / increment / swap, or terminate (Run).
//   - Enforce the digit bound on every iteration and the step ceiling on probing steps.
//
// Notes:
//   - The oracle is consulted strictly sequentially; nothing here spawns goroutines.
//   - Every iteration consumes one (Feedback, State) pair and produces a new one.
package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/robalobadob/bullscows/apps/go-server/internal/game")

// Oracle scores a single guess. gameID is empty on the bootstrap probe; the
// returned Feedback carries the id to use afterwards.
type Oracle interface {
	Probe(ctx context.Context, gameID string, t Triple) (Feedback, error)
}

// Driver runs the search against an Oracle.
type Driver struct {
	oracle Oracle
	cfg    Config
}

// NewDriver constructs a Driver. The config is validated; use DefaultConfig
// for the standard 012 seed with digit bound 4.
func NewDriver(o Oracle, cfg Config) (*Driver, error) {
	if o == nil {
		return nil, fmt.Errorf("game: nil oracle")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	return &Driver{oracle: o, cfg: cfg}, nil
}

// Config returns the driver's search constants.
func (d *Driver) Config() Config { return d.cfg }

// Solve plays one full game: it probes the seed triple without a game id,
// seeds the state from the response and runs the search to a terminal status.
//
// A non-nil error means an oracle call failed; the returned state then holds
// everything recorded up to the failure and is still running.
func (d *Driver) Solve(ctx context.Context) (State, error) {
	ctx, span := tracer.Start(ctx, "game.solve")
	defer span.End()

	st := NewState(d.cfg.Seed, d.cfg.SeedNote)
	fb, err := d.oracle.Probe(ctx, "", st.Triple)
	if err != nil {
		err = fmt.Errorf("bootstrap probe %s: %w", st.Triple.Digits(), err)
		recordRun(st, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bootstrap failed")
		return st, err
	}
	st = st.observe(st.Triple, fb, OpSeed)
	log.Debug().Str("gameId", st.GameID).Str("guess", st.Triple.Digits()).
		Int("cows", fb.WrongPosition).Int("bulls", fb.RightPosition).Msg("bootstrap")

	final, err := d.Run(ctx, fb, st)
	recordRun(final, err)

	span.SetAttributes(
		attribute.String("game.id", final.GameID),
		attribute.String("game.status", string(final.Status)),
		attribute.Int("game.probes", final.History.Probes()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "oracle failure")
	}
	return final, err
}

// action is what the decision table asks for next.
type action int

const (
	actFail action = iota
	actStop
	actShift
	actIncrement
	actSwap
)

// feedbackKey is the (cows, bulls) pair the table dispatches on.
type feedbackKey struct{ cows, bulls int }

var decisionTable = map[feedbackKey]action{
	{0, 0}: actShift,
	{0, 1}: actIncrement,
	{0, 2}: actIncrement,
	{0, 3}: actStop,
	{1, 0}: actIncrement,
	{1, 1}: actIncrement,
	{2, 0}: actIncrement,
	{2, 1}: actSwap,
	{3, 0}: actSwap,
}

// decide looks up fb in the decision table; unknown pairs fail the run.
func decide(fb Feedback) action {
	if a, ok := decisionTable[feedbackKey{fb.WrongPosition, fb.RightPosition}]; ok {
		return a
	}
	return actFail
}

// Run drives the search from (fb, st) until the state is stopped or failed.
func (d *Driver) Run(ctx context.Context, fb Feedback, st State) (State, error) {
	for steps := 0; ; steps++ {
		// The bound check wins over everything, including a solved state.
		if st.Triple.Exceeds(d.cfg.DigitBound) {
			return finish(st.fail(ReasonPositionOverflow)), nil
		}
		if st.Status.Terminal() {
			return finish(st), nil
		}
		if fb.Solved {
			return finish(st.stop()), nil
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		act := decide(fb)
		switch act {
		case actShift, actIncrement, actSwap:
			// Only steps that call the oracle count against the ceiling.
			if steps >= d.cfg.MaxSteps {
				return finish(st.fail(ReasonStepLimit)), nil
			}
		}

		var err error
		switch act {
		case actStop:
			return finish(st.stop()), nil
		case actShift:
			next := st.Triple.Shift(shiftOffsets)
			var got Feedback
			got, err = d.oracle.Probe(ctx, st.GameID, next)
			if err != nil {
				return st, fmt.Errorf("%s probe %s: %w", OpShift, next.Digits(), err)
			}
			fb, st = got, st.observe(next, got, OpShift).withTriple(next)
			log.Debug().Str("gameId", st.GameID).Str("op", string(OpShift)).Str("guess", next.Digits()).
				Int("cows", got.WrongPosition).Int("bulls", got.RightPosition).Msg("probe")
		case actIncrement:
			fb, st, err = d.probeCandidates(ctx, fb, st, OpInc, incrementCandidates)
		case actSwap:
			fb, st, err = d.probeCandidates(ctx, fb, st, OpSwap, swapCandidates)
		default:
			return finish(st.fail(ReasonUnrecognizedFeedback)), nil
		}
		if err != nil {
			return st, err
		}
	}
}

// finish logs a terminal state and hands it back.
func finish(st State) State {
	ev := log.Info().
		Str("gameId", st.GameID).
		Str("status", string(st.Status)).
		Str("guess", st.Triple.Digits()).
		Int("probes", st.History.Probes()).
		Int("guesses", st.GuessCount)
	if st.Reason != ReasonNone {
		ev = ev.Str("reason", string(st.Reason))
	}
	ev.Msg("search finished")
	return st
}
