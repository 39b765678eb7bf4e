package middleware

import "fieldops/ledgersync/internal/constants"

// IsMemberMiddleware admits any authenticated tenant user.
var IsMemberMiddleware = RequireRole(constants.RoleMember)
