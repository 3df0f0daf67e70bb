package fetch

import "time"

// Policy is the per-dataset fetch tuning: HTTP timeout, an independent hard
// parse deadline, retry behavior, and the progress-log interval.
type Policy struct {
	HTTPTimeout      time.Duration
	ParseDeadline    time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
	ProgressiveDelay bool // delay grows with the attempt number
	TimeoutCeiling   time.Duration
	ProgressInterval int
}

// DefaultPolicy applies to any dataset without an explicit entry.
var DefaultPolicy = Policy{
	HTTPTimeout:      60 * time.Second,
	ParseDeadline:    120 * time.Second,
	MaxAttempts:      2,
	RetryDelay:       5 * time.Second,
	TimeoutCeiling:   180 * time.Second,
	ProgressInterval: 5000,
}

// extendedPolicy covers the known large exports.
var extendedPolicy = Policy{
	HTTPTimeout:      300 * time.Second,
	ParseDeadline:    600 * time.Second,
	MaxAttempts:      3,
	RetryDelay:       10 * time.Second,
	ProgressiveDelay: true,
	TimeoutCeiling:   600 * time.Second,
	ProgressInterval: 10000,
}

// policies is the static per-dataset table. Unknown names fall back to
// DefaultPolicy.
var policies = map[string]Policy{
	"cases":              extendedPolicy,
	"userSessionHistory": extendedPolicy,
	"interactions": {
		HTTPTimeout:      120 * time.Second,
		ParseDeadline:    240 * time.Second,
		MaxAttempts:      3,
		RetryDelay:       5 * time.Second,
		TimeoutCeiling:   300 * time.Second,
		ProgressInterval: 5000,
	},
}

// PolicyFor returns the fetch policy for a dataset name.
func PolicyFor(dataset string) Policy {
	if p, ok := policies[dataset]; ok {
		return p
	}
	return DefaultPolicy
}
