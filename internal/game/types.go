// internal/game/types.go
//
// Core type definitions for the bulls-and-cows search engine.
// Defines:
//   - Triple:   the three-slot candidate guess.
//   - Feedback: the oracle's verdict on one submitted triple.
//   - Status:   running / stopped / failed.
//   - State:    one immutable step of a search run.

package game

import "fmt"

// Triple holds the symbol placed in each of the three slots.
type Triple [3]int

// Digits concatenates the slots as decimal digits with no separators.
// This is the literal guess submitted to the oracle.
func (t Triple) Digits() string {
	return fmt.Sprintf("%d%d%d", t[0], t[1], t[2])
}

// Fold returns 100·p0 + 10·p1 + p2.
func (t Triple) Fold() int {
	return 100*t[0] + 10*t[1] + t[2]
}

// Max returns the largest slot value.
func (t Triple) Max() int {
	return max(t[0], t[1], t[2])
}

// Exceeds reports whether any slot is greater than bound.
func (t Triple) Exceeds(bound int) bool {
	return t[0] > bound || t[1] > bound || t[2] > bound
}

// Distinct reports whether the three slots hold pairwise different symbols.
func (t Triple) Distinct() bool {
	return t[0] != t[1] && t[0] != t[2] && t[1] != t[2]
}

// Shift adds offsets to the slots positionally.
func (t Triple) Shift(offsets [3]int) Triple {
	return Triple{t[0] + offsets[0], t[1] + offsets[1], t[2] + offsets[2]}
}

// String implements fmt.Stringer.
func (t Triple) String() string { return t.Digits() }

// Feedback is the oracle's score for one guess. Never mutated after creation.
type Feedback struct {
	WrongPosition int    // cows
	RightPosition int    // bulls
	Solved        bool   // oracle says the secret was found
	GuessCount    int    // oracle's per-game guess counter
	GameID        string // game the guess was scored against
}

// IsSolution reports the full-solve pattern: three bulls, no cows, solved flag set.
func (f Feedback) IsSolution() bool {
	return f.RightPosition == 3 && f.WrongPosition == 0 && f.Solved
}

// Dominates reports whether f may replace best under the conjunctive rule:
// neither count may regress. Equality counts as dominating.
func (f Feedback) Dominates(best Feedback) bool {
	return f.RightPosition >= best.RightPosition && f.WrongPosition >= best.WrongPosition
}

// Status is the lifecycle of a search run.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further states follow s.
func (s Status) Terminal() bool { return s == StatusStopped || s == StatusFailed }

// Reason explains a failed run. Empty for running and stopped states.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonPositionOverflow     Reason = "position_overflow"
	ReasonUnrecognizedFeedback Reason = "unrecognized_feedback"
	ReasonStepLimit            Reason = "step_limit"
)

// State is a single immutable step of a run. Transition methods return a new
// value and never share the History backing array with the receiver.
type State struct {
	Triple     Triple
	Status     Status
	GuessCount int
	Answer     *int
	GameID     string
	History    History
	Reason     Reason
}

// NewState builds the initial running state for a run seeded at seed.
func NewState(seed Triple, note string) State {
	return State{
		Triple:  seed,
		Status:  StatusRunning,
		History: History{}.Append(HistoryRecord{Op: OpSeed, Note: note}),
	}
}

// withTriple moves the state to t.
func (s State) withTriple(t Triple) State {
	s.Triple = t
	return s
}

// observe records one probe of t and folds the oracle counters into the state.
func (s State) observe(t Triple, fb Feedback, op Op) State {
	s.History = s.History.Append(HistoryRecord{
		Guess:         t.Digits(),
		WrongPosition: fb.WrongPosition,
		RightPosition: fb.RightPosition,
		Op:            op,
	})
	s.GuessCount = fb.GuessCount
	if fb.GameID != "" {
		s.GameID = fb.GameID
	}
	return s
}

// stop marks the state solved at its current triple.
func (s State) stop() State {
	ans := s.Triple.Fold()
	s.Status = StatusStopped
	s.Answer = &ans
	s.Reason = ReasonNone
	return s
}

// fail marks the state failed for reason.
func (s State) fail(reason Reason) State {
	s.Status = StatusFailed
	s.Answer = nil
	s.Reason = reason
	return s
}
