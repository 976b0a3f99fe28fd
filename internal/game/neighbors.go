// internal/game/neighbors.go
//
// Neighbor generators. Both strategies build three candidates from the
// current triple and share one probing path (probeCandidates):
//   - probe candidates in order, one at a time,
//   - record every probe in the history,
//   - stop at the first full solve,
//   - otherwise keep the best candidate under the dominance rule.

package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// candidateFunc builds the candidates probed by one generator step.
type candidateFunc func(Triple) [3]Triple

// incrementCandidates replaces slot 0, then 1, then 2 with max+1.
func incrementCandidates(t Triple) [3]Triple {
	m := t.Max() + 1
	return [3]Triple{
		{m, t[1], t[2]},
		{t[0], m, t[2]},
		{t[0], t[1], m},
	}
}

// swapCandidates returns the three non-identity rearrangements probed by swap.
func swapCandidates(t Triple) [3]Triple {
	return [3]Triple{
		{t[1], t[0], t[2]},
		{t[1], t[2], t[0]},
		{t[2], t[0], t[1]},
	}
}

// probeCandidates runs the shared generator protocol against the baseline
// (fb, st). An oracle failure aborts the step; the state returned alongside
// the error still holds every probe recorded before the failure.
func (d *Driver) probeCandidates(ctx context.Context, fb Feedback, st State, op Op, build candidateFunc) (Feedback, State, error) {
	best, bestTriple := fb, st.Triple
	cur := st

	for _, cand := range build(st.Triple) {
		got, err := d.oracle.Probe(ctx, st.GameID, cand)
		if err != nil {
			return fb, cur, fmt.Errorf("%s probe %s: %w", op, cand.Digits(), err)
		}
		cur = cur.observe(cand, got, op)
		log.Debug().
			Str("gameId", cur.GameID).
			Str("op", string(op)).
			Str("guess", cand.Digits()).
			Int("cows", got.WrongPosition).
			Int("bulls", got.RightPosition).
			Msg("probe")

		if got.IsSolution() {
			return got, cur.withTriple(cand).stop(), nil
		}
		if got.Dominates(best) {
			best, bestTriple = got, cand
		}
	}
	return best, cur.withTriple(bestTriple), nil
}
