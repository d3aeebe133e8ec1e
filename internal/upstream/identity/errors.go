package identity

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for identity lookups.
type ErrorCategory string

const (
	// ErrorTimeout indicates the identity source took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates an unparseable or malformed payload
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates the token handshake was rejected
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the identity source is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates required fields are missing
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the identity does not exist upstream
	ErrorNotFound ErrorCategory = "not_found"

	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorInternal    ErrorCategory = "internal"
)

// ProviderError wraps identity source failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	Upstream   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("upstream %s [%s]: %s: %v", e.Upstream, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("upstream %s [%s]: %s", e.Upstream, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a normalized error. Timeouts, outages and rate
// limits are transient; everything else is not worth retrying.
func NewProviderError(category ErrorCategory, upstream, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Upstream:   upstream,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ErrPINMismatch is returned by Verify when the identity exists but the
// supplied PIN does not match.
var ErrPINMismatch = errors.New("identity: pin mismatch")
