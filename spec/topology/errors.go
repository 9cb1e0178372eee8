package topology

import "fmt"

var (
	ErrStaleConfirmation = errorDef("topology/rebalance: confirmation does not match the outstanding rebalance", false)
	ErrUnknownCache      = errorDef("topology: cache has not been initialized on this coordinator", false)

	ErrNoMembers       = errorDef("topology/ch: consistent hash requires at least one member", false)
	ErrDuplicateMember = errorDef("topology/ch: member list contains duplicate addresses", false)
	ErrSegmentMismatch = errorDef("topology/ch: consistent hashes disagree on segment or owner counts", false)

	ErrExecutorStopped = errorDef("topology: async executor is shutting down", true)
)

func ErrorIsRetryable(err error) bool {
	return retryableMap[err]
}

var retryableMap = map[error]bool{}

func errorDef(str string, retryable bool) error {
	err := fmt.Errorf(str)
	retryableMap[err] = retryable
	return err
}
