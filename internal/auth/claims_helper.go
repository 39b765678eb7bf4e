package auth

import (
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// tokenClaims is the bearer token body issued by the field-service app.
type tokenClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseBearer validates an HS256 token and returns its claims. Tokens
// without a subject, tenant or known role are rejected.
func ParseBearer(secret, raw string) (*JWTClaims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	role := constants.Role(tc.Role)
	if tc.Subject == "" || tc.TenantID == "" || !role.AtLeast(constants.RoleMember) {
		return nil, ErrInvalidToken
	}

	return &JWTClaims{UserUUID: tc.Subject, TenantUUID: tc.TenantID, RoleValue: role}, nil
}

// IssueBearer signs a token for the given identity. Used by tooling and tests.
func IssueBearer(secret, userID, tenantID string, role constants.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	tc := tokenClaims{
		TenantID: tenantID,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}

func ClaimsFromAPIKey(key *entities.ApiKey) *APIKeyClaims {
	return &APIKeyClaims{
		KeyID:      key.ID,
		UserUUID:   key.UserID,
		TenantUUID: key.TenantID,
		RoleValue:  key.Role,
	}
}
