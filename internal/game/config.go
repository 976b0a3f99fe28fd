package game

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	defaultDigitBound = 4
	defaultSeedNote   = "bootstrap"
	defaultMaxSteps   = 64
)

// shiftOffsets are added positionally when the oracle reports no hits at all.
var shiftOffsets = [3]int{1, 2, 3}

// Config carries the constants of the search.
type Config struct {
	// DigitBound is the largest slot value the search may probe. Any slot
	// above it fails the run.
	DigitBound int
	// Seed is the first guess of every run.
	Seed Triple
	// SeedNote is written on the seed history record.
	SeedNote string
	// MaxSteps caps generator/shift steps per run.
	MaxSteps int
}

// DefaultConfig returns bound 4, seed 012.
func DefaultConfig() Config {
	return Config{
		DigitBound: defaultDigitBound,
		Seed:       Triple{0, 1, 2},
		SeedNote:   defaultSeedNote,
		MaxSteps:   defaultMaxSteps,
	}
}

// Validate checks that the seed is a usable first guess.
func (c Config) Validate() error {
	if c.DigitBound < 2 || c.DigitBound > 9 {
		return fmt.Errorf("digit bound %d out of range 2..9", c.DigitBound)
	}
	for _, p := range c.Seed {
		if p < 0 {
			return fmt.Errorf("seed %v: negative slot", c.Seed)
		}
	}
	if c.Seed.Exceeds(c.DigitBound) {
		return fmt.Errorf("seed %v exceeds digit bound %d", c.Seed, c.DigitBound)
	}
	if !c.Seed.Distinct() {
		return fmt.Errorf("seed %v: slots must be distinct", c.Seed)
	}
	if c.MaxSteps <= 0 {
		return errors.New("max steps must be positive")
	}
	return nil
}

// ParseTriple reads a three-digit guess such as "012".
func ParseTriple(s string) (Triple, error) {
	if len(s) != 3 {
		return Triple{}, fmt.Errorf("triple %q: want 3 digits", s)
	}
	var t Triple
	for i := range t {
		d, err := strconv.Atoi(s[i : i+1])
		if err != nil {
			return Triple{}, fmt.Errorf("triple %q: %w", s, err)
		}
		t[i] = d
	}
	return t, nil
}
