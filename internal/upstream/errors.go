package upstream

import (
	"fmt"
	"net/http"
	"time"
)

// TimeoutError means the upstream did not answer within the per-call deadline.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout after %s: %s", e.After, e.URL)
}

// UpstreamError covers transport failures, non-2xx answers and envelopes whose
// status is not "success". StatusCode is 0 for transport failures.
type UpstreamError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.URL, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// SchemaError means the upstream answered but the body did not have the
// expected shape.
type SchemaError struct {
	Resource string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected payload: %s", e.Resource, e.Reason)
}

func schemaErr(resource, format string, args ...any) error {
	return &SchemaError{Resource: resource, Reason: fmt.Sprintf(format, args...)}
}
