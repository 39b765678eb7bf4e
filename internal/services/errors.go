package services

import (
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/providers"
)

// ErrDocumentNotFound is returned when the local document does not exist for
// the caller's tenant.
var ErrDocumentNotFound = errors.New("document not found")

// AuthError means no usable platform credential exists; the tenant must
// reconnect. Never retried automatically.
type AuthError struct {
	TenantID string
	Message  string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// LockedPeriodError is an expected rejection: the document is dated inside a
// closed accounting period.
type LockedPeriodError struct {
	Message    string
	CutoffDate time.Time
}

func (e *LockedPeriodError) Error() string { return e.Message }

// ResolutionError means a referenced entity or account could not be found or
// created on the platform.
type ResolutionError struct {
	EntityType constants.EntityType
	LocalID    string
	Message    string
	Err        error
}

func (e *ResolutionError) Error() string {
	msg := e.Message
	if e.LocalID != "" {
		msg = fmt.Sprintf("%s %s: %s", e.EntityType, e.LocalID, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ExternalAPIError is any non-success call to the platform, including
// timeouts. Its message carries the HTTP status and a bounded body prefix.
type ExternalAPIError = providers.ProviderError

// ErrorCode classifies err into an API error code.
func ErrorCode(err error) string {
	var (
		authErr   *AuthError
		lockedErr *LockedPeriodError
		resErr    *ResolutionError
		extErr    *ExternalAPIError
	)
	switch {
	case errors.As(err, &authErr):
		if authErr.Err == nil {
			return constants.ErrCodeNotConnected
		}
		return constants.ErrCodeAuthFailed
	case errors.As(err, &lockedErr):
		return constants.ErrCodeLockedPeriod
	case errors.As(err, &resErr):
		return constants.ErrCodeResolution
	case errors.As(err, &extErr):
		if extErr.Code == constants.ErrCodeTimeout {
			return constants.ErrCodeTimeout
		}
		return constants.ErrCodeExternalAPI
	case errors.Is(err, ErrDocumentNotFound):
		return constants.ErrCodeDocumentNotFound
	default:
		return constants.ErrCodeInternal
	}
}
