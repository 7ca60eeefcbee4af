// Package gateway implements the authenticated HTTP client to the national
// health data exchange. All outbound exchange traffic goes through this
// package.
package gateway

import "fmt"

// Reason classifies a gateway failure.
type Reason string

const (
	ReasonAuth      Reason = "AUTH"
	ReasonTimeout   Reason = "TIMEOUT"
	ReasonRateLimit Reason = "RATE_LIMIT"
	ReasonUpstream  Reason = "UPSTREAM"
)

// Error is the typed error returned for all exchange call failures.
type Error struct {
	Reason     Reason
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error (%s): %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error (%s): %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Only timeouts and
// upstream 5xx responses qualify; auth and rate-limit failures do not.
func (e *Error) Retryable() bool {
	switch e.Reason {
	case ReasonTimeout:
		return true
	case ReasonUpstream:
		return e.StatusCode == 0 || e.StatusCode >= 500
	default:
		return false
	}
}
