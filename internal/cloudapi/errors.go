package cloudapi

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the replacement loop.
var (
	// ErrNotReady signals that a cache or collaborator has no data yet.
	// Callers skip the current cycle and retry on the next one.
	ErrNotReady = errors.New("cloudapi: fleet state not ready")

	// ErrNoEligiblePriceData signals that none of a group's preferred
	// instance types has a cached weighted price yet. Recoverable; it is
	// expected before the first price cycle completes.
	ErrNoEligiblePriceData = errors.New("cloudapi: no eligible price data for preferred instance types")

	// ErrAlreadyExists is surfaced by Create calls when the named
	// resource exists. The existence check and the create are not atomic
	// against concurrent external mutation, so callers treat this as a
	// successful no-op.
	ErrAlreadyExists = errors.New("cloudapi: resource already exists")
)

// ExternalError wraps a failure from the compute, queue, or price-history
// boundary with the operation that failed. The operation is abandoned for
// the current cycle; the next scheduled cycle retries.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("cloudapi: %s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// External wraps err as an ExternalError, passing through nil and
// ErrAlreadyExists unchanged.
func External(op string, err error) error {
	if err == nil || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return &ExternalError{Op: op, Err: err}
}
