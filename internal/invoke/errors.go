package invoke

import "errors"

var (
	// ErrSubjectNotFound means the subject binary could not be located.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrCheckerNotFound means memory-checked mode was requested but the
	// checker is not installed.
	ErrCheckerNotFound = errors.New("memory checker not found")

	// ErrRunnerNotFound means the runner command could not be resolved.
	ErrRunnerNotFound = errors.New("runner not found")

	// ErrTimeout means the subject did not exit before the case deadline.
	ErrTimeout = errors.New("timed out")
)
