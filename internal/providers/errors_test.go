package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseConflictingID(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		wantID string
		wantOK bool
	}{
		{
			name:   "duplicate name",
			text:   "The name supplied already exists. : Id=123",
			wantID: "123",
			wantOK: true,
		},
		{
			name:   "duplicate doc number",
			text:   "Duplicate Document Number Error : You must specify a different number. This number has already been used. DocNumber=1001 is assigned to TxnType=Bill with TxnId=456",
			wantID: "456",
			wantOK: true,
		},
		{
			name:   "spaces around equals",
			text:   "Another customer is already using this name. Id = 78",
			wantID: "78",
			wantOK: true,
		},
		{
			name:   "doc number only",
			text:   "DocNumber=1001 is already in use",
			wantOK: false,
		},
		{
			name:   "no id",
			text:   "Duplicate Name Exists Error",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ParseConflictingID(tc.text)
			if ok != tc.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tc.wantOK, ok)
			}
			if id != tc.wantID {
				t.Errorf("Expected id %q, got %q", tc.wantID, id)
			}
		})
	}
}

func TestDuplicateClassifiers(t *testing.T) {
	nameErr := &ProviderError{
		StatusCode: 400,
		Faults:     []FaultError{{Code: "6240", Message: "Duplicate Name Exists Error", Detail: "The name supplied already exists. : Id=123"}},
	}
	docErr := &ProviderError{
		StatusCode: 400,
		Faults:     []FaultError{{Code: "6140", Message: "Duplicate Document Number Error", Detail: "DocNumber=1001 is assigned to TxnType=Bill with TxnId=456"}},
	}
	wrapped := fmt.Errorf("create vendor: %w", nameErr)

	if !IsDuplicateName(wrapped) {
		t.Error("Expected wrapped duplicate name to be detected")
	}
	if IsDuplicateName(docErr) {
		t.Error("Expected doc number error not to be a name conflict")
	}
	if !IsDuplicateDocNumber(docErr) {
		t.Error("Expected duplicate doc number to be detected")
	}
	if IsDuplicateDocNumber(errors.New("Duplicate Document Number")) {
		t.Error("Expected plain errors to be ignored")
	}

	if id, ok := ConflictingID(wrapped); !ok || id != "123" {
		t.Errorf("Expected 123, got %q (%v)", id, ok)
	}
	if id, ok := ConflictingID(docErr); !ok || id != "456" {
		t.Errorf("Expected 456, got %q (%v)", id, ok)
	}
}

func TestIsStaleObject(t *testing.T) {
	stale := &ProviderError{StatusCode: 400, Faults: []FaultError{{Code: "5010", Message: "Stale Object Error"}}}
	if !IsStaleObject(fmt.Errorf("update bill: %w", stale)) {
		t.Error("Expected wrapped stale object error to be detected")
	}
	other := &ProviderError{StatusCode: 400, Faults: []FaultError{{Code: "6000", Message: "Business Validation Error"}}}
	if IsStaleObject(other) {
		t.Error("Expected validation error to not be stale")
	}
}

func TestProviderErrorMessageIncludesStatusAndBody(t *testing.T) {
	err := &ProviderError{Operation: "create_bill", StatusCode: 400, Message: "rejected", Details: `{"Fault":{}}`}
	want := `rejected (HTTP 400) during create_bill: {"Fault":{}}`
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
