package services

import (
	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/providers"

	"go.uber.org/zap"
)

// AccountCache memoizes account and item lookups for one sync invocation.
// It is created per run and discarded with it; nothing is shared across
// runs or tenants.
type AccountCache struct {
	common.CacheInterface
}

func NewAccountCache() *AccountCache {
	return &AccountCache{CacheInterface: common.NewRunCache()}
}

// syncRun carries per-invocation state through the resolvers and builder.
type syncRun struct {
	tenantID string
	userID   string
	session  providers.Session
	cache    *AccountCache
	log      *zap.SugaredLogger
}
