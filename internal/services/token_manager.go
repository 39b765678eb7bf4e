package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"

	"golang.org/x/sync/singleflight"
)

// RefreshBuffer is how close to expiry a token may get before it is
// refreshed ahead of use.
const RefreshBuffer = 5 * time.Minute

const refreshLockTTL = 15 * time.Second

var ErrCallbackIncomplete = errors.New("callback is missing code or realmId")

type CredentialStore interface {
	GetActive(ctx context.Context, tenantID string) (*gormModels.AccountingCredential, error)
	FindByRealm(ctx context.Context, realmID string) (*gormModels.AccountingCredential, error)
	Save(ctx context.Context, cred *gormModels.AccountingCredential) error
	Deactivate(ctx context.Context, tenantID string) error
}

type TokenClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*providers.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*providers.TokenSet, error)
}

// Locker is a cross-process mutex. Implementations return common.ErrLockHeld
// when another holder has the key.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type StateIssuer interface {
	Issue(ctx context.Context, tenantID, userID string) (string, error)
	Consume(ctx context.Context, state string) (*common.OAuthState, error)
}

// TokenManager hands out valid platform sessions per tenant, refreshing
// stored tokens shortly before they expire. Concurrent refreshes for one
// tenant collapse into a single call: in-process via singleflight, and
// across replicas via an optional Redis lock.
type TokenManager struct {
	creds   CredentialStore
	client  TokenClient
	locker  Locker
	states  StateIssuer
	metrics *metrics.MetricsRegistry

	group    singleflight.Group
	now      func() time.Time
	lockWait time.Duration
	lockPoll time.Duration
}

func NewTokenManager(creds CredentialStore, client TokenClient, locker Locker, states StateIssuer, m *metrics.MetricsRegistry) *TokenManager {
	return &TokenManager{
		creds:    creds,
		client:   client,
		locker:   locker,
		states:   states,
		metrics:  m,
		now:      time.Now,
		lockWait: 3 * time.Second,
		lockPoll: 200 * time.Millisecond,
	}
}

func sessionOf(cred *gormModels.AccountingCredential) providers.Session {
	return providers.Session{RealmID: cred.RealmID, AccessToken: cred.AccessToken}
}

func (m *TokenManager) fresh(cred *gormModels.AccountingCredential) bool {
	return m.now().Add(RefreshBuffer).Before(cred.ExpiresAt)
}

func notConnected(tenantID string) *AuthError {
	return &AuthError{TenantID: tenantID, Message: "accounting platform is not connected"}
}

// GetValidCredential returns a session whose access token is good for at
// least RefreshBuffer.
func (m *TokenManager) GetValidCredential(ctx context.Context, tenantID string) (providers.Session, error) {
	cred, err := m.creds.GetActive(ctx, tenantID)
	if err != nil {
		return providers.Session{}, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return providers.Session{}, notConnected(tenantID)
	}
	if m.fresh(cred) {
		return sessionOf(cred), nil
	}

	v, err, _ := m.group.Do(tenantID, func() (interface{}, error) {
		return m.refresh(ctx, tenantID)
	})
	if err != nil {
		return providers.Session{}, err
	}
	return v.(providers.Session), nil
}

func (m *TokenManager) refresh(ctx context.Context, tenantID string) (providers.Session, error) {
	log := logging.GetLogger().With("tenant_id", tenantID)

	if m.locker != nil {
		release, err := m.locker.Obtain(ctx, string(constants.CachePrefixRefreshLock)+tenantID, refreshLockTTL)
		switch {
		case err == nil:
			defer release()
		case errors.Is(err, common.ErrLockHeld):
			if s, ok := m.waitForPeer(ctx, tenantID); ok {
				return s, nil
			}
			log.Warnw("Refresh lock still held, refreshing anyway")
		default:
			log.Warnw("Could not obtain refresh lock, refreshing without it", "error", err)
		}
	}

	// Another replica may have refreshed while we waited for the lock.
	cred, err := m.creds.GetActive(ctx, tenantID)
	if err != nil {
		return providers.Session{}, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return providers.Session{}, notConnected(tenantID)
	}
	if m.fresh(cred) {
		return sessionOf(cred), nil
	}

	set, err := m.client.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		m.metrics.TokenRefresh("failure")
		log.Warnw("Token refresh rejected", "error", err)
		return providers.Session{}, &AuthError{
			TenantID: tenantID,
			Message:  "accounting platform authorization expired; reconnect required",
			Err:      err,
		}
	}

	cred.AccessToken = set.AccessToken
	cred.RefreshToken = set.RefreshToken
	cred.ExpiresAt = set.ExpiresAt
	if set.TokenType != "" {
		cred.TokenType = set.TokenType
	}
	if set.RefreshTokenExpiresAt != nil {
		cred.RefreshTokenExpiresAt = set.RefreshTokenExpiresAt
	}

	if err := m.creds.Save(ctx, cred); err != nil {
		m.metrics.TokenRefresh("persist_failure")
		return providers.Session{}, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	m.metrics.TokenRefresh("success")
	log.Infow("Refreshed accounting platform token", "expires_at", cred.ExpiresAt)
	return sessionOf(cred), nil
}

// waitForPeer polls the store while another process holds the refresh lock.
func (m *TokenManager) waitForPeer(ctx context.Context, tenantID string) (providers.Session, bool) {
	deadline := time.NewTimer(m.lockWait)
	defer deadline.Stop()
	tick := time.NewTicker(m.lockPoll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return providers.Session{}, false
		case <-deadline.C:
			return providers.Session{}, false
		case <-tick.C:
			cred, err := m.creds.GetActive(ctx, tenantID)
			if err == nil && cred != nil && m.fresh(cred) {
				return sessionOf(cred), true
			}
		}
	}
}

// ============================================================================
// Connect / disconnect
// ============================================================================

// BeginConnect returns the platform consent URL for an admin.
func (m *TokenManager) BeginConnect(ctx context.Context, tenantID, userID string) (string, error) {
	state, err := m.states.Issue(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	return m.client.AuthCodeURL(state), nil
}

// CompleteConnect validates the callback state, exchanges the code and
// stores the resulting credential.
func (m *TokenManager) CompleteConnect(ctx context.Context, state, code, realmID string) (*gormModels.AccountingCredential, error) {
	if code == "" || realmID == "" {
		return nil, ErrCallbackIncomplete
	}

	st, err := m.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	set, err := m.client.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{TenantID: st.TenantID, Message: "authorization code exchange failed", Err: err}
	}

	cred := &gormModels.AccountingCredential{
		TenantID:              st.TenantID,
		RealmID:               realmID,
		AccessToken:           set.AccessToken,
		RefreshToken:          set.RefreshToken,
		TokenType:             set.TokenType,
		ExpiresAt:             set.ExpiresAt,
		RefreshTokenExpiresAt: set.RefreshTokenExpiresAt,
		Active:                true,
		ConnectedBy:           st.UserID,
	}
	if err := m.creds.Save(ctx, cred); err != nil {
		return nil, err
	}

	logging.Info("Accounting platform connected", "tenant_id", st.TenantID, "realm_id", realmID)
	return cred, nil
}

func (m *TokenManager) Disconnect(ctx context.Context, tenantID string) error {
	if err := m.creds.Deactivate(ctx, tenantID); err != nil {
		return err
	}
	logging.Info("Accounting platform disconnected", "tenant_id", tenantID)
	return nil
}

// Connection returns the active credential or nil, for status display.
func (m *TokenManager) Connection(ctx context.Context, tenantID string) (*gormModels.AccountingCredential, error) {
	return m.creds.GetActive(ctx, tenantID)
}
