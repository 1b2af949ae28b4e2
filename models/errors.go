package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateRequest is returned by stores when a pending role request already exists.
	ErrDuplicateRequest = errors.New("a pending request already exists")

	ErrTierRestricted  = errors.New("requires upgraded API tier")
	ErrEditUnsupported = errors.New("platform does not support editing")
	ErrPendingReview   = errors.New("post is held for review by the platform")
)

// ValidationError reports input rejected before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Invalid is a shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthError reports missing or rejected platform credentials.
type AuthError struct {
	Platform Platform
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Platform, e.Message)
}

// PlatformAPIError reports a request the remote platform rejected.
type PlatformAPIError struct {
	Platform   Platform
	StatusCode int
	Code       int
	Message    string
	// Kind classifies well-known failures (ErrTierRestricted, ErrPendingReview, ...).
	Kind error
}

func (e *PlatformAPIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Platform))
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	return b.String()
}

func (e *PlatformAPIError) Unwrap() error { return e.Kind }

// ManualFallbackError is returned when a platform gave no definitive success
// indicator; the owner may post by hand at URL.
type ManualFallbackError struct {
	Platform Platform
	URL      string
	Cause    error
}

func (e *ManualFallbackError) Error() string {
	return fmt.Sprintf("%s: publish not confirmed, manual posting available: %v", e.Platform, e.Cause)
}

func (e *ManualFallbackError) Unwrap() error { return e.Cause }

// PartialPublishError: at least one platform succeeded and at least one failed.
type PartialPublishError struct {
	Succeeded []Platform
	Failed    []PublishResult
}

func (e *PartialPublishError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		names = append(names, string(r.Platform))
	}
	return fmt.Sprintf("published partially, failed on: %s", strings.Join(names, ", "))
}

// TotalPublishError: every requested platform failed.
type TotalPublishError struct {
	Failed []PublishResult
}

func (e *TotalPublishError) Error() string {
	msgs := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		msgs = append(msgs, fmt.Sprintf("%s: %s", r.Platform, r.Error))
	}
	return "publish failed on every platform: " + strings.Join(msgs, "; ")
}

// StaleStateError reports a transition whose precondition no longer holds.
type StaleStateError struct {
	ID       string
	Expected string
	Actual   string
}

func (e *StaleStateError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("%s: stale state, expected %s", e.ID, e.Expected)
	}
	return fmt.Sprintf("%s: stale state, expected %s but found %s", e.ID, e.Expected, e.Actual)
}

// SchedulerTickError wraps a failure processing one due post.
type SchedulerTickError struct {
	PostID string
	Err    error
}

func (e *SchedulerTickError) Error() string {
	return fmt.Sprintf("scheduled post %s: %v", e.PostID, e.Err)
}

func (e *SchedulerTickError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStale reports whether err is a *StaleStateError.
func IsStale(err error) bool {
	var s *StaleStateError
	return errors.As(err, &s)
}
