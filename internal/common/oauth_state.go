package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OAuthStateTTL bounds how long an admin has to finish the consent screen.
const OAuthStateTTL = 10 * time.Minute

var (
	ErrStateInvalid  = errors.New("oauth state is invalid")
	ErrStateConsumed = errors.New("oauth state already used or expired")
)

// OAuthState is what the callback learns from a verified state value.
type OAuthState struct {
	TenantID string
	UserID   string
	StateID  string
}

// OAuthStateService issues signed single-use state values for the connect
// flow. The signature proves origin; Redis enforces single use.
type OAuthStateService struct {
	secretKey []byte
	redis     *redis.Client
	now       func() time.Time
}

func NewOAuthStateService(secretKey []byte, redis *redis.Client) *OAuthStateService {
	return &OAuthStateService{
		secretKey: secretKey,
		redis:     redis,
		now:       time.Now,
	}
}

// Issue signs a state for the tenant and records it as pending.
func (s *OAuthStateService) Issue(ctx context.Context, tenantID, userID string) (string, error) {
	stateID := uuid.New().String()
	issuedAt := s.now()

	claims := jwt.MapClaims{
		"tenant_id": tenantID,
		"user_id":   userID,
		"jti":       stateID,
		"exp":       issuedAt.Add(OAuthStateTTL).Unix(),
		"iat":       issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	if err := s.redis.Set(ctx, string(constants.CachePrefixOAuthState)+stateID, tenantID, OAuthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return signed, nil
}

// Parse verifies signature and expiry without touching Redis.
func (s *OAuthStateService) Parse(state string) (*OAuthState, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrStateInvalid
	}

	tenantID, _ := claims["tenant_id"].(string)
	userID, _ := claims["user_id"].(string)
	stateID, _ := claims["jti"].(string)
	if tenantID == "" || stateID == "" {
		return nil, ErrStateInvalid
	}

	return &OAuthState{TenantID: tenantID, UserID: userID, StateID: stateID}, nil
}

// Consume verifies the state and deletes its pending marker atomically, so
// a replayed callback fails.
func (s *OAuthStateService) Consume(ctx context.Context, state string) (*OAuthState, error) {
	parsed, err := s.Parse(state)
	if err != nil {
		return nil, err
	}

	tenantID, err := s.redis.GetDel(ctx, string(constants.CachePrefixOAuthState)+parsed.StateID).Result()
	if err == redis.Nil {
		return nil, ErrStateConsumed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}
	if tenantID != parsed.TenantID {
		return nil, ErrStateInvalid
	}

	return parsed, nil
}
