// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the request carries no usable GitHub identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrStatsNotReady is returned when GitHub is still computing repository statistics.
	ErrStatsNotReady = errors.New("repository statistics are not ready yet")
)

// ErrInvalidStrategy is returned when the configured aggregation strategy is unknown.
type ErrInvalidStrategy struct {
	Strategy string
}

func (e *ErrInvalidStrategy) Error() string {
	return fmt.Sprintf("invalid stats strategy: %q, expected 'commits' or 'contributors'", e.Strategy)
}

// ErrListRepositories is returned when the repository set of an identity cannot be listed.
type ErrListRepositories struct {
	Identity string
	Err      error
}

func (e *ErrListRepositories) Error() string {
	return fmt.Sprintf("failed to list repositories for %q: %v", e.Identity, e.Err)
}

func (e *ErrListRepositories) Unwrap() error {
	return e.Err
}
