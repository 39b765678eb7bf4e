package constants

// Error codes surfaced in API responses and audit rows
const (
	ErrCodeNotConnected     = "NOT_CONNECTED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeLockedPeriod     = "LOCKED_PERIOD"
	ErrCodeResolution       = "RESOLUTION_FAILED"
	ErrCodeExternalAPI      = "EXTERNAL_API_ERROR"
	ErrCodeTimeout          = "EXTERNAL_API_TIMEOUT"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeBadSignature     = "BAD_SIGNATURE"
)

// Fault codes returned by the accounting platform
const (
	FaultDuplicateName      = "6240"
	FaultDuplicateDocNumber = "6140"
	FaultStaleObject        = "5010"
	FaultAuthentication     = "3200"
)

var ErrorMessages = map[string]string{
	ErrCodeNotConnected:     "No accounting platform connection exists for this tenant",
	ErrCodeAuthFailed:       "The accounting platform connection must be re-authorized",
	ErrCodeLockedPeriod:     "The document falls inside a locked accounting period",
	ErrCodeResolution:       "A referenced record could not be resolved on the accounting platform",
	ErrCodeExternalAPI:      "The accounting platform rejected the request",
	ErrCodeTimeout:          "The accounting platform did not respond in time",
	ErrCodeNetworkError:     "Unable to reach the accounting platform",
	ErrCodeRateLimited:      "Rate limit exceeded. Please try again later",
	ErrCodeDocumentNotFound: "The document was not found",
	ErrCodeInvalidRequest:   "The request is invalid",
	ErrCodeInternal:         "An internal error occurred",
	ErrCodeUnauthorized:     "Authentication required",
	ErrCodeForbidden:        "Your role does not allow this action",
	ErrCodeBadSignature:     "Webhook signature verification failed",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
