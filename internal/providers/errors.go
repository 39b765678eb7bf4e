package providers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fieldops/ledgersync/internal/constants"
)

// maxErrorBody bounds how much of a failed response is kept on the error.
const maxErrorBody = 500

// ProviderError is any failed call to the accounting platform: non-2xx,
// timeout, or transport failure.
type ProviderError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Details    string
	Faults     []FaultError
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Operation != "" {
		fmt.Fprintf(&b, " during %s", e.Operation)
	}
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// HasFault reports whether the platform returned the given fault code.
func (e *ProviderError) HasFault(code string) bool {
	for _, f := range e.Faults {
		if f.Code == code {
			return true
		}
	}
	return false
}

func (e *ProviderError) faultText() string {
	parts := make([]string, 0, len(e.Faults)*2+1)
	for _, f := range e.Faults {
		parts = append(parts, f.Message, f.Detail)
	}
	parts = append(parts, e.Details)
	return strings.Join(parts, " ")
}

func asProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsDuplicateName reports a name collision on vendor, customer or item create.
func IsDuplicateName(err error) bool {
	pe, ok := asProviderError(err)
	if !ok {
		return false
	}
	if pe.HasFault(constants.FaultDuplicateName) {
		return true
	}
	return strings.Contains(strings.ToLower(pe.faultText()), "duplicate name exists")
}

// IsDuplicateDocNumber reports a document number collision on create.
func IsDuplicateDocNumber(err error) bool {
	pe, ok := asProviderError(err)
	if !ok {
		return false
	}
	if pe.HasFault(constants.FaultDuplicateDocNumber) {
		return true
	}
	return strings.Contains(strings.ToLower(pe.faultText()), "duplicate document number")
}

// IsStaleObject reports a SyncToken mismatch on update.
func IsStaleObject(err error) bool {
	pe, ok := asProviderError(err)
	return ok && pe.HasFault(constants.FaultStaleObject)
}

// IsUnauthorized reports a rejected access token.
func IsUnauthorized(err error) bool {
	pe, ok := asProviderError(err)
	return ok && (pe.StatusCode == 401 || pe.HasFault(constants.FaultAuthentication))
}

var (
	txnIDPattern = regexp.MustCompile(`TxnId\s*=\s*(\d+)`)
	idPattern    = regexp.MustCompile(`\bId\s*=\s*(\d+)`)
)

// ParseConflictingID extracts the id of the record a duplicate error points
// at. The platform embeds it in free text as "TxnId=456" for transactions
// or "Id=123" for names.
func ParseConflictingID(text string) (string, bool) {
	if m := txnIDPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := idPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// ConflictingID runs ParseConflictingID over everything a ProviderError
// carries.
func ConflictingID(err error) (string, bool) {
	pe, ok := asProviderError(err)
	if !ok {
		return "", false
	}
	return ParseConflictingID(pe.faultText())
}
