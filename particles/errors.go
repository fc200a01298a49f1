package particles

import "errors"

var (
	// ErrCapacityExceeded reports an admission beyond the configured arena caps.
	ErrCapacityExceeded = errors.New("particles: capacity exceeded")

	// ErrPreconditionViolated reports invalid admission input: a rigid rest
	// pose whose centroid is not at the origin, a non-positive mass, or an
	// empty particle block.
	ErrPreconditionViolated = errors.New("particles: precondition violated")

	// ErrAllocationFailed reports that backing storage could not be allocated.
	// The store is left consistent but no further operations are valid.
	ErrAllocationFailed = errors.New("particles: allocation failed")
)
