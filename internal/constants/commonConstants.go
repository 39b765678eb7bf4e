package constants

type (
	RequestSource string
	APIStatus     string
	CachePrefix   string
)

const (
	RequestSourceAPIKey RequestSource = "API_KEY"
	RequestSourceJWT    RequestSource = "JWT"

	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixOAuthState   CachePrefix = "ledgersync:oauth_state:"
	CachePrefixRefreshLock  CachePrefix = "ledgersync:token_refresh:"
	CachePrefixExpenseAcct  CachePrefix = "expense_account:"
	CachePrefixIncomeAcct   CachePrefix = "income_account:"
	CachePrefixCategoryItem CachePrefix = "category_item:"
)
