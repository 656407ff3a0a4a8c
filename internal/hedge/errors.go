package hedge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoLadder       = errors.New("no depth ladder cached")
	ErrInvalidAccount = errors.New("account snapshot out of range")
)

// StepError aborts the rest of a cycle.
type StepError struct {
	Phase Phase
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToLower(string(e.Phase)), e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
