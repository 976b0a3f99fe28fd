package game

// Op tags the operation that produced a history record.
type Op string

const (
	OpSeed  Op = "seed"
	OpInc   Op = "inc"
	OpSwap  Op = "swap"
	OpShift Op = "shift"
)

// HistoryRecord describes one probe (or the seed entry) of a run.
type HistoryRecord struct {
	Step          int    `json:"step"`
	Guess         string `json:"guess,omitempty"`
	WrongPosition int    `json:"cows"`
	RightPosition int    `json:"bulls"`
	Op            Op     `json:"op"`
	Note          string `json:"note,omitempty"`
}

// History is the ordered, append-only log of a run.
type History []HistoryRecord

// Append returns a copy of h with rec added. rec.Step is set to its index.
// The receiver is left untouched and the result never shares its backing array.
func (h History) Append(rec HistoryRecord) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	rec.Step = len(h)
	return append(out, rec)
}

// Probes returns the number of oracle calls recorded (every record but the seed).
func (h History) Probes() int {
	if len(h) == 0 {
		return 0
	}
	return len(h) - 1
}

// Last returns the most recent record, or false for an empty history.
func (h History) Last() (HistoryRecord, bool) {
	if len(h) == 0 {
		return HistoryRecord{}, false
	}
	return h[len(h)-1], true
}
