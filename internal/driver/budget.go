package driver

import (
	"errors"
	"fmt"
)

// FailureBudget tracks consecutive failing frames and stops a run that has
// been stuck on a broken document for too long.
//
// A limit of 0 disables the budget: the live loop keeps repeating the last
// good value forever, which is what an editor wants. Batch evaluation sets a
// limit so a broken document fails fast.
type FailureBudget struct {
	limit   int
	current int
}

// NewFailureBudget creates a budget allowing limit consecutive failures.
func NewFailureBudget(limit int) *FailureBudget {
	return &FailureBudget{limit: limit}
}

// Observe records one frame's outcome. It returns BudgetExceededError once
// more than limit frames in a row have failed.
func (b *FailureBudget) Observe(run string, err error) error {
	if err == nil {
		b.current = 0
		return nil
	}
	b.current++
	if b.limit > 0 && b.current > b.limit {
		return &BudgetExceededError{Run: run, Failures: b.current, Limit: b.limit, Last: err}
	}
	return nil
}

// Current returns the number of consecutive failures.
func (b *FailureBudget) Current() int {
	return b.current
}

// Limit returns the configured limit.
func (b *FailureBudget) Limit() int {
	return b.limit
}

// BudgetExceededError is returned by Run when the failure budget is spent.
type BudgetExceededError struct {
	Run      string
	Failures int
	Limit    int
	Last     error
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("run %s: %d consecutive failing frames > %d limit: %v",
		e.Run, e.Failures, e.Limit, e.Last)
}

// Unwrap returns the last frame error.
func (e *BudgetExceededError) Unwrap() error {
	return e.Last
}

// IsBudgetExceeded reports whether err is or wraps a BudgetExceededError.
func IsBudgetExceeded(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
