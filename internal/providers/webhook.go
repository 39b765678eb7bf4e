package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// WebhookSignatureHeader carries base64(HMAC-SHA256(verifier token, body)).
const WebhookSignatureHeader = "intuit-signature"

// WebhookPayload is the change notification the platform posts after any
// entity changes in a connected company.
type WebhookPayload struct {
	EventNotifications []EventNotification `json:"eventNotifications"`
}

type EventNotification struct {
	RealmID         string `json:"realmId"`
	DataChangeEvent struct {
		Entities []ChangedEntity `json:"entities"`
	} `json:"dataChangeEvent"`
}

type ChangedEntity struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	LastUpdated time.Time `json:"lastUpdated"`
	DeletedID   string    `json:"deletedId,omitempty"`
}

// Webhook operations that change local mapping state.
const (
	OperationDelete = "Delete"
	OperationVoid   = "Void"
	OperationMerge  = "Merge"
)

// VerifyWebhookSignature reports whether signature matches body under the
// verifier token. An empty token or signature never verifies.
func VerifyWebhookSignature(verifierToken string, body []byte, signature string) bool {
	if verifierToken == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(verifierToken))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
