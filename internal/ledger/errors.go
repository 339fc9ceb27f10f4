package ledger

import (
	"fmt"
	"time"
)

// TimeoutError reports a ledger call that exceeded the operation bound.
// It is a transient failure: the caller rolls back or restores interactive
// state, and the user must retry manually.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s, please try again", e.Op, e.Timeout)
}

// LedgerError reports a store rejection. The underlying error is surfaced
// verbatim and the rollback policy matches TimeoutError.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
