package tree

import "strings"

// runContext is shared, tree-local (never persisted) memory between a
// phase's MonitorRun leaf and the RetryIf decorator wrapping the whole
// phase subtree: it lets MonitorRun mark a failure as non-transient so
// the decorator gives up immediately instead of spending its retry
// budget on an error that will never resolve on its own.
type runContext struct {
	nonTransient bool
	reason       string
}

func (r *runContext) markNonTransient(reason string) {
	r.nonTransient = true
	r.reason = reason
}

// shouldRetry is the classifier RetryIf consults: false once MonitorRun
// has flagged a non-transient failure for this attempt.
func (r *runContext) shouldRetry() bool {
	return !r.nonTransient
}

// classifyClientError guesses whether a client error is a permanent,
// non-retryable failure (authentication, missing repo, bad
// configuration) versus a transient one the retry budget should still be
// spent on. This mirrors the coarse predicate flagged as an open
// question in the design: callers needing finer control inject their own
// via the fortify retry policy at the client layer instead.
func classifyClientError(err error) (nonTransient bool, reason string) {
	if err == nil {
		return false, ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return true, "authentication_failed"
	case strings.Contains(msg, "403"), strings.Contains(msg, "forbidden"):
		return true, "forbidden"
	case strings.Contains(msg, "404"), strings.Contains(msg, "not found"):
		return true, "repo_not_found"
	default:
		return false, ""
	}
}
