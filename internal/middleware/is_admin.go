package middleware

import "fieldops/ledgersync/internal/constants"

// IsAdminMiddleware gates connection management.
var IsAdminMiddleware = RequireRole(constants.RoleAdmin)
