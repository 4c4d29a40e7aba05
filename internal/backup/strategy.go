package backup

import (
	"errors"
	"fmt"
)

// ErrInvalidStrategy is returned for a strategy string that is not one of
// merge, replace or skip.
var ErrInvalidStrategy = errors.New("unknown restore strategy")

// Strategy is the conflict policy applied when restored records collide
// with the user's existing data.
type Strategy string

const (
	// StrategyMerge keeps existing records and inserts only new ones.
	StrategyMerge Strategy = "merge"

	// StrategyReplace deletes the user's existing data before importing,
	// inside the same transaction as the import.
	StrategyReplace Strategy = "replace"

	// StrategySkip filters records like merge but never deletes anything.
	// It exists as a distinct policy so callers can express "add only,
	// leave everything else alone" explicitly.
	StrategySkip Strategy = "skip"
)

// ParseStrategy validates a caller-supplied strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMerge, StrategyReplace, StrategySkip:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}
