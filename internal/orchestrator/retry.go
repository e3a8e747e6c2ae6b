package orchestrator

import (
	"errors"
	"time"
)

// ErrExhausted is returned when every bridge start attempt failed. The
// caller decides whether that is fatal or a degraded-but-functional run.
var ErrExhausted = errors.New("orchestrator: start attempts exhausted")

// ErrProcessExited marks an attempt whose child died before its liveness
// check. It is wrapped into the exhaustion error when the final attempt
// ended this way.
var ErrProcessExited = errors.New("orchestrator: process exited before becoming ready")

// Outcome classifies one start attempt. The two failure modes are kept
// apart because they point at different faults: a dead process is a launch
// problem, an unready service is a sync or config problem.
type Outcome string

const (
	OutcomeReady          Outcome = "ready"
	OutcomeProcessExited  Outcome = "process_exited"
	OutcomeServiceUnready Outcome = "service_unready"
)

// Attempt records one start attempt for status reporting and the event log.
type Attempt struct {
	Index   int           `json:"index"`
	Outcome Outcome       `json:"outcome"`
	Elapsed time.Duration `json:"elapsed"`
}

// retryAgain is the whole retry policy: retry only while attempts remain
// and the last outcome was a failure. Attempt budgets are configured
// values, never computed.
func retryAgain(outcome Outcome, attempt, maxAttempts int) bool {
	return outcome != OutcomeReady && attempt < maxAttempts
}
