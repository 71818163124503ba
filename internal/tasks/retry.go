package tasks

// RetryMode names a [RetryPolicy].
type RetryMode string

const (
	PerQuery   RetryMode = "per_query"
	SharedFlag RetryMode = "shared_flag"
)

// RetryPolicy decides whether a failed attempt is tried again.
type RetryPolicy interface {
	// ShouldRetry is called after every failed attempt; attempt counts from 1 for each query.
	ShouldRetry(attempt int) bool
	Mode() RetryMode
}

// NewRetryPolicy returns [SharedFlagRetry] when legacy is set and [PerQueryRetry] otherwise.
func NewRetryPolicy(legacy bool) RetryPolicy {
	if legacy {
		return &SharedFlagRetry{}
	}
	return PerQueryRetry{}
}

// PerQueryRetry gives every query exactly one retry.
type PerQueryRetry struct{}

func (PerQueryRetry) ShouldRetry(attempt int) bool { return attempt < 2 }
func (PerQueryRetry) Mode() RetryMode              { return PerQuery }

// SharedFlagRetry keeps one flag for the whole run, flipped on every failure and never reset by a success.
//
// A query that fails once and then succeeds leaves the flag set, so the next failure anywhere is reported without a retry.
type SharedFlagRetry struct {
	retried bool
}

func (s *SharedFlagRetry) ShouldRetry(int) bool {
	retry := !s.retried
	s.retried = !s.retried
	return retry
}

func (s *SharedFlagRetry) Mode() RetryMode { return SharedFlag }
