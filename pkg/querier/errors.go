// Package querier pkg/querier/errors.go provides errors for the querier package.
package querier

import "errors"

var (
	ErrNoDevices     = errors.New("unit has no devices configured")
	ErrEmptyResponse = errors.New("empty query response")
	ErrRateLimit     = errors.New("rate limiter rejected query")
)

// QueryError wraps a failed store query and classifies whether the
// orchestrator should retry it.
type QueryError struct {
	Err       error
	Status    int
	Retryable bool
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a transient query failure.
// Unclassified errors are treated as retryable.
func IsRetryable(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Retryable
	}

	return true
}
