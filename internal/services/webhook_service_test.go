package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"fieldops/ledgersync/internal/constants"
	gormModels "fieldops/ledgersync/internal/models/gorm"
)

const testVerifier = "verifier-token"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testVerifier))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookBody(realmID, name, id, operation string, lastUpdated time.Time) []byte {
	return []byte(fmt.Sprintf(`{"eventNotifications":[{"realmId":%q,"dataChangeEvent":{"entities":[{"name":%q,"id":%q,"operation":%q,"lastUpdated":%q}]}}]}`,
		realmID, name, id, operation, lastUpdated.Format(time.RFC3339)))
}

func newTestWebhookService(t *testing.T) (*WebhookService, *testStores, time.Time) {
	stores := newTestStores(t)
	ctx := context.Background()

	if err := stores.creds.Save(ctx, &gormModels.AccountingCredential{
		TenantID: "t1", RealmID: "realm-1", AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour), Active: true,
	}); err != nil {
		t.Fatalf("Failed to save credential: %v", err)
	}

	synced := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	if err := stores.mappings.Upsert(ctx, constants.EntityBill, &gormModels.EntityMapping{
		TenantID: "t1", LocalID: "bill-1", ExternalID: "145", SyncStatus: constants.SyncStatusSynced, LastSyncedAt: &synced,
	}); err != nil {
		t.Fatalf("Failed to save mapping: %v", err)
	}

	return NewWebhookService(testVerifier, 2*time.Minute, stores.creds, stores.mappings, stores.logs, nil), stores, synced
}

func TestIsEcho(t *testing.T) {
	synced := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Minute

	if IsEcho(nil, synced, window) {
		t.Error("Expected never-synced record to not be an echo")
	}
	if !IsEcho(&synced, synced.Add(90*time.Second), window) {
		t.Error("Expected change inside window to be an echo")
	}
	if !IsEcho(&synced, synced.Add(window), window) {
		t.Error("Expected change at window edge to be an echo")
	}
	if IsEcho(&synced, synced.Add(window+time.Second), window) {
		t.Error("Expected change after window to be remote")
	}
}

func TestWebhookService_RejectsBadSignature(t *testing.T) {
	svc, _, synced := newTestWebhookService(t)
	body := webhookBody("realm-1", "Bill", "145", "Update", synced)

	if _, err := svc.Handle(context.Background(), body, "bm90LXRoZS1zaWduYXR1cmU="); !errors.Is(err, ErrWebhookSignature) {
		t.Errorf("Expected ErrWebhookSignature, got %v", err)
	}
	if _, err := svc.Handle(context.Background(), body, ""); !errors.Is(err, ErrWebhookSignature) {
		t.Errorf("Expected ErrWebhookSignature for missing header, got %v", err)
	}
}

func TestWebhookService_IgnoresEcho(t *testing.T) {
	svc, stores, synced := newTestWebhookService(t)
	body := webhookBody("realm-1", "Bill", "145", "Update", synced.Add(30*time.Second))

	summary, err := svc.Handle(context.Background(), body, sign(body))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.EchoIgnored != 1 || summary.RemoteChange != 0 {
		t.Errorf("Expected 1 echo, got %+v", summary)
	}

	logs, _ := stores.logs.ListForEntity(context.Background(), "t1", string(constants.EntityBill), "bill-1", 10)
	if len(logs) != 1 || logs[0].Action != string(constants.ActionWebhookEcho) || logs[0].Status != string(constants.LogStatusIgnored) {
		t.Errorf("Expected one ignored echo log, got %+v", logs)
	}
}

func TestWebhookService_RemoteChangeAndVoid(t *testing.T) {
	svc, stores, synced := newTestWebhookService(t)
	ctx := context.Background()

	body := webhookBody("realm-1", "Bill", "145", "Void", synced.Add(time.Hour))
	summary, err := svc.Handle(ctx, body, sign(body))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.RemoteChange != 1 {
		t.Errorf("Expected 1 remote change, got %+v", summary)
	}

	m, _ := stores.mappings.Get(ctx, constants.EntityBill, "t1", "bill-1")
	if m.SyncStatus != constants.SyncStatusVoided {
		t.Errorf("Expected voided, got %s", m.SyncStatus)
	}
	logs, _ := stores.logs.ListForEntity(ctx, "t1", string(constants.EntityBill), "bill-1", 10)
	if len(logs) != 1 || logs[0].Action != string(constants.ActionWebhookRemote) {
		t.Errorf("Expected remote change log, got %+v", logs)
	}
}

func TestWebhookService_LifecycleInsideEchoWindow(t *testing.T) {
	tests := []struct {
		operation string
		want      constants.SyncStatus
	}{
		{"Void", constants.SyncStatusVoided},
		{"Delete", constants.SyncStatusDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			svc, stores, synced := newTestWebhookService(t)
			ctx := context.Background()

			body := webhookBody("realm-1", "Bill", "145", tt.operation, synced.Add(30*time.Second))
			summary, err := svc.Handle(ctx, body, sign(body))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if summary.EchoIgnored != 0 || summary.RemoteChange != 1 {
				t.Errorf("Expected 1 remote change and no echo, got %+v", summary)
			}

			m, _ := stores.mappings.Get(ctx, constants.EntityBill, "t1", "bill-1")
			if m.SyncStatus != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, m.SyncStatus)
			}
		})
	}
}

func TestWebhookService_UnknownRealmAndEntity(t *testing.T) {
	svc, _, synced := newTestWebhookService(t)

	for _, body := range [][]byte{
		webhookBody("realm-404", "Bill", "145", "Update", synced),
		webhookBody("realm-1", "Bill", "999", "Update", synced),
		webhookBody("realm-1", "Payment", "7", "Create", synced),
	} {
		summary, err := svc.Handle(context.Background(), body, sign(body))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if summary.Unmapped != 1 || summary.Received != 1 {
			t.Errorf("Expected 1 unmapped of 1, got %+v", summary)
		}
	}
}

func TestWebhookService_MalformedPayload(t *testing.T) {
	svc, _, _ := newTestWebhookService(t)
	body := []byte(`{"eventNotifications":`)

	if _, err := svc.Handle(context.Background(), body, sign(body)); !errors.Is(err, ErrWebhookPayload) {
		t.Errorf("Expected ErrWebhookPayload, got %v", err)
	}
}
