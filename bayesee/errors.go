package bayesee

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("bayesee: invalid configuration")
	// ErrNoDomains is returned when an engine is built without any domain.
	ErrNoDomains = errors.New("bayesee: no domains")
	// ErrRaggedPredictors is returned when domains disagree on the number of predictors.
	ErrRaggedPredictors = errors.New("bayesee: predictor count differs across domains")
	// ErrEmptyDomain is returned for a domain without instances or predictors.
	ErrEmptyDomain = errors.New("bayesee: domain has no instances")
	// ErrBadInput is returned for malformed input files or values.
	ErrBadInput = errors.New("bayesee: malformed input")
	// ErrDegenerateWeights is returned when every candidate of a draw has zero weight.
	ErrDegenerateWeights = errors.New("bayesee: all candidate weights are zero")
	// ErrInvariantViolation reports corrupted sufficient statistics.
	ErrInvariantViolation = errors.New("bayesee: sufficient-statistic invariant violated")
	// ErrNotRun is returned when results are requested before Run finished.
	ErrNotRun = errors.New("bayesee: engine has not been run")
	// ErrAlreadyRun is returned when Run is called twice on the same engine.
	ErrAlreadyRun = errors.New("bayesee: engine has already been run")
)

// InvariantError describes a broken bookkeeping invariant.
// The ledger panics with it; Engine.Run turns the panic into an error.
type InvariantError struct {
	Cluster int
	Detail  string
}

func (e *InvariantError) Error() string {
	if e.Cluster < 0 {
		return fmt.Sprintf("%v: %s", ErrInvariantViolation, e.Detail)
	}
	return fmt.Sprintf("%v: cluster %d: %s", ErrInvariantViolation, e.Cluster, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

func invariantf(cluster int, format string, args ...interface{}) *InvariantError {
	return &InvariantError{Cluster: cluster, Detail: fmt.Sprintf(format, args...)}
}
