package store

import "errors"

var (
	// errOverflow is returned when a signed balance's magnitude would not
	// fit in 256 bits. This should never happen for legitimate ERC-20
	// transfer amounts; it exists as a guard rather than a feature.
	errOverflow = errors.New("balance magnitude exceeds uint256 range")

	// ErrNotFound is returned by repository lookups when no row matches.
	ErrNotFound = errors.New("store: not found")
)
