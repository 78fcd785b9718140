package transit

import "errors"

var (
	// ErrWindowNotFound means no complete entry/exit pair was sampled inside the window.
	// It is a data outcome, not a failure of the search itself.
	ErrWindowNotFound = errors.New("sign window not found")

	// ErrProviderFailure wraps any error returned by the position provider.
	ErrProviderFailure = errors.New("position provider failure")

	// ErrSearchBudget is returned when a window would need more samples than allowed.
	ErrSearchBudget = errors.New("search step budget exceeded")
)
