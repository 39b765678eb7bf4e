package auth

import (
	"context"
	"testing"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestParseBearer_RoundTrip(t *testing.T) {
	raw, err := IssueBearer(testSecret, "user-1", "tenant-1", constants.RoleManager, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ParseBearer(testSecret, raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.UserID() != "user-1" || claims.TenantID() != "tenant-1" || claims.Role() != constants.RoleManager {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if claims.Source() != constants.RequestSourceJWT {
		t.Errorf("Expected JWT source, got %s", claims.Source())
	}
}

func TestParseBearer_Rejects(t *testing.T) {
	expired, _ := IssueBearer(testSecret, "user-1", "tenant-1", constants.RoleAdmin, -time.Minute)
	wrongKey, _ := IssueBearer("other-secret", "user-1", "tenant-1", constants.RoleAdmin, time.Hour)
	badRole, _ := IssueBearer(testSecret, "user-1", "tenant-1", constants.Role("owner"), time.Hour)
	noTenant, _ := IssueBearer(testSecret, "user-1", "", constants.RoleAdmin, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1", "tenant_id": "tenant-1", "role": "admin",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"bad role":  badRole,
		"no tenant": noTenant,
		"alg none":  none,
		"garbage":   "not.a.jwt",
	}
	for name, raw := range cases {
		if _, err := ParseBearer(testSecret, raw); err != ErrInvalidToken {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestClaimsFromAPIKey(t *testing.T) {
	c := ClaimsFromAPIKey(&entities.ApiKey{ID: "k1", TenantID: "tenant-1", UserID: "svc", Role: constants.RoleMember})
	if c.TenantID() != "tenant-1" || c.Role() != constants.RoleMember || c.Source() != constants.RequestSourceAPIKey {
		t.Errorf("Unexpected claims %+v", c)
	}
}

func TestRequestContext(t *testing.T) {
	ctx := context.Background()
	if GetUserClaims(ctx) != nil {
		t.Error("Expected no claims on empty context")
	}

	ctx = SetUserClaims(ctx, &JWTClaims{UserUUID: "u", TenantUUID: "t", RoleValue: constants.RoleAdmin})
	ctx = SetRequestID(ctx, "req-1")
	if GetUserClaims(ctx).TenantID() != "t" {
		t.Error("Expected tenant t")
	}
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("Expected req-1, got %s", GetRequestID(ctx))
	}
}
