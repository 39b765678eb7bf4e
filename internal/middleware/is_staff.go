package middleware

import "fieldops/ledgersync/internal/constants"

// IsManagerMiddleware gates bill and invoice sync, which move money.
var IsManagerMiddleware = RequireRole(constants.RoleManager)
