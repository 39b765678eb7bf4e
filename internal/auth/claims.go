package auth

import "fieldops/ledgersync/internal/constants"

// UserClaims is the caller identity every authenticated handler sees,
// whichever way the caller authenticated.
type UserClaims interface {
	UserID() string
	TenantID() string
	Role() constants.Role
	Source() constants.RequestSource
}

type JWTClaims struct {
	UserUUID   string
	TenantUUID string
	RoleValue  constants.Role
}

func (c *JWTClaims) UserID() string                  { return c.UserUUID }
func (c *JWTClaims) TenantID() string                { return c.TenantUUID }
func (c *JWTClaims) Role() constants.Role            { return c.RoleValue }
func (c *JWTClaims) Source() constants.RequestSource { return constants.RequestSourceJWT }

type APIKeyClaims struct {
	KeyID      string
	UserUUID   string
	TenantUUID string
	RoleValue  constants.Role
}

func (c *APIKeyClaims) UserID() string                  { return c.UserUUID }
func (c *APIKeyClaims) TenantID() string                { return c.TenantUUID }
func (c *APIKeyClaims) Role() constants.Role            { return c.RoleValue }
func (c *APIKeyClaims) Source() constants.RequestSource { return constants.RequestSourceAPIKey }
