package remote

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors used for simple equality-style checks.
var (
	// ErrNotFound indicates a requested path or branch does not exist. Probe
	// reads treat this as a normal outcome.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed indicates a write's SHA no longer matches the
	// current blob. The caller must re-read and decide whether to retry; this
	// layer never retries automatically.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflict indicates a server-side merge could not complete cleanly.
	ErrConflict = errors.New("merge conflict")

	// ErrRateLimited indicates the remote service refused the call due to
	// quota exhaustion.
	ErrRateLimited = errors.New("rate limited")
)

// Behavior interface used when inspecting error chains via errors.As.
type retryable interface{ Retryable() bool }

// RemoteError wraps a failure from the remote service with enough context to
// reconstruct the failing call. It exposes Retryable() for transient failures.
type RemoteError struct {
	Op         string // operation, e.g. "PutFile", "ListTree"
	Path       string // file path or ref involved, if any
	StatusCode int    // HTTP status, 0 if the call never completed
	Cause      error
	Transient  bool
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s %q: status=%d: %v", e.Op, e.Path, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("remote %s %q: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the wrapped cause.
func (e *RemoteError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient.
func (e *RemoteError) Retryable() bool { return e.Transient }

// NewRemoteError constructs a *RemoteError describing a failed remote call.
func NewRemoteError(op, path string, status int, cause error, transient bool) error {
	return &RemoteError{Op: op, Path: path, StatusCode: status, Cause: cause, Transient: transient}
}

// RateLimitError is a throttling response carrying the time quota resets.
// It is always retryable and unwraps to ErrRateLimited.
type RateLimitError struct {
	ResetAt time.Time
	Cause   error
}

func (e *RateLimitError) Error() string {
	if !e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error   { return ErrRateLimited }
func (e *RateLimitError) Retryable() bool { return true }

// IsNotFound reports whether err represents an absent path or branch.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPreconditionFailed reports whether err is a rejected optimistic write.
func IsPreconditionFailed(err error) bool { return errors.Is(err, ErrPreconditionFailed) }

// IsRetryable inspects the error chain for a Retryable() bool implementation
// and returns its result (false if none found).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
