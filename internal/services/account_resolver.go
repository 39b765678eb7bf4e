package services

import (
	"context"
	"slices"
	"strings"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/providers"

	"github.com/patrickmn/go-cache"
)

var (
	expenseAccountTypes = []string{providers.AccountTypeExpense, providers.AccountTypeOtherExpense, providers.AccountTypeCOGS}
	incomeAccountTypes  = []string{providers.AccountTypeIncome, providers.AccountTypeOtherIncome}
)

const fallbackKey = "\x00fallback"

// AccountResolver maps free-text categories to platform accounts. Results,
// including fallbacks, are cached on the run's AccountCache.
type AccountResolver struct {
	api AccountingAPI
}

func NewAccountResolver(api AccountingAPI) *AccountResolver {
	return &AccountResolver{api: api}
}

// ExpenseAccount resolves category to an active expense-type account by
// exact name, falling back to the first Cost of Goods Sold account, then
// the first Expense account.
func (r *AccountResolver) ExpenseAccount(ctx context.Context, run *syncRun, category string) (providers.Ref, error) {
	return r.resolve(ctx, run, constants.CachePrefixExpenseAcct, category, expenseAccountTypes,
		[]string{providers.AccountTypeCOGS, providers.AccountTypeExpense}, "no expense account available")
}

// IncomeAccount is the sales-side counterpart used when creating items.
func (r *AccountResolver) IncomeAccount(ctx context.Context, run *syncRun, category string) (providers.Ref, error) {
	return r.resolve(ctx, run, constants.CachePrefixIncomeAcct, category, incomeAccountTypes,
		[]string{providers.AccountTypeIncome, providers.AccountTypeOtherIncome}, "no income account available")
}

func (r *AccountResolver) resolve(
	ctx context.Context,
	run *syncRun,
	prefix constants.CachePrefix,
	category string,
	allowed []string,
	fallbackOrder []string,
	emptyMessage string,
) (providers.Ref, error) {
	name := common.NormalizeName(category)

	if name != "" {
		v, err := run.cache.GetOrSet(string(prefix)+strings.ToLower(name), cache.NoExpiration, func() (any, error) {
			accts, err := r.api.QueryAccounts(ctx, run.session, providers.AccountQuery{Name: name, Types: allowed})
			if err != nil {
				return nil, err
			}
			for _, a := range accts {
				// The server-side type filter is not trusted on its own.
				if a.Active && slices.Contains(allowed, a.AccountType) && strings.EqualFold(common.NormalizeName(a.Name), name) {
					return &providers.Ref{Value: a.ID, Name: a.Name}, nil
				}
			}
			// Cache the miss too, so the fallback is not re-derived per line.
			return (*providers.Ref)(nil), nil
		})
		if err != nil {
			return providers.Ref{}, err
		}
		if ref := v.(*providers.Ref); ref != nil {
			return *ref, nil
		}
		run.log.Debugw("No account matches category, using fallback", "category", name)
	}

	v, err := run.cache.GetOrSet(string(prefix)+fallbackKey, cache.NoExpiration, func() (any, error) {
		for _, t := range fallbackOrder {
			accts, err := r.api.QueryAccounts(ctx, run.session, providers.AccountQuery{Types: []string{t}})
			if err != nil {
				return nil, err
			}
			for _, a := range accts {
				if a.Active && a.AccountType == t {
					return &providers.Ref{Value: a.ID, Name: a.Name}, nil
				}
			}
		}
		return nil, &ResolutionError{EntityType: constants.EntityAccount, Message: emptyMessage}
	})
	if err != nil {
		return providers.Ref{}, err
	}
	return *v.(*providers.Ref), nil
}
