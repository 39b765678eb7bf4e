package services

import (
	"context"
	"errors"

	"fieldops/ledgersync/internal/models/entities"
	"fieldops/ledgersync/internal/providers"

	"github.com/shopspring/decimal"
)

// Unit prices are searched from this many decimal places up to
// maxUnitPricePlaces until qty * unit rounds back to the line amount.
const (
	minUnitPricePlaces = 6
	maxUnitPricePlaces = 10
)

var one = decimal.NewFromInt(1)

// BillabilityContext decides whether a bill's lines are passed through to a
// customer.
type BillabilityContext struct {
	PurchaseOrderID *string
	CustomerRef     *providers.Ref
}

// IsBillable is true when the bill is linked to a purchase order or any line
// carries a service item.
func IsBillable(bc BillabilityContext, lines []entities.LineItem) bool {
	if bc.PurchaseOrderID != nil && *bc.PurchaseOrderID != "" {
		return true
	}
	for _, l := range lines {
		if l.ServiceItemID != nil && *l.ServiceItemID != "" {
			return true
		}
	}
	return false
}

// LineAmounts derives the wire values for one line. The amount is the
// line total rounded to cents. The unit price is recomputed from that
// amount so qty * unit always rounds back to it; the stored unit price is
// never used. A non-positive quantity becomes 1.
func LineAmounts(quantity, total decimal.Decimal) (qty, unit, amount decimal.Decimal) {
	amount = total.Round(2)
	qty = quantity
	if !qty.IsPositive() {
		qty = one
	}

	for places := int32(minUnitPricePlaces); places <= maxUnitPricePlaces; places++ {
		unit = amount.DivRound(qty, places)
		if qty.Mul(unit).Round(2).Equal(amount) {
			return qty, unit, amount
		}
	}
	return qty, unit, amount
}

func lineQuantity(l entities.LineItem) decimal.Decimal {
	if l.Quantity.Valid {
		return l.Quantity.Decimal
	}
	return one
}

// lineTotal prefers the stored total and only falls back to qty * unit when
// the total is null.
func lineTotal(l entities.LineItem) decimal.Decimal {
	if l.Total.Valid {
		return l.Total.Decimal
	}
	if l.UnitPrice.Valid {
		return lineQuantity(l).Mul(l.UnitPrice.Decimal)
	}
	return decimal.Zero
}

func lineDescription(l entities.LineItem) string {
	if d := l.DescriptionText(); d != "" {
		return d
	}
	return l.CategoryName()
}

// LineBuilder converts local line items into platform lines.
type LineBuilder struct {
	resolver *EntityResolver
	accounts *AccountResolver
}

func NewLineBuilder(resolver *EntityResolver, accounts *AccountResolver) *LineBuilder {
	return &LineBuilder{resolver: resolver, accounts: accounts}
}

// BuildBillLines emits expense lines. Zero-amount lines are dropped.
// Billable bills get item-based lines wherever a service item resolves;
// everything else is account-based.
func (b *LineBuilder) BuildBillLines(ctx context.Context, run *syncRun, lines []entities.LineItem, bc BillabilityContext) ([]providers.Line, error) {
	billable := IsBillable(bc, lines)
	out := make([]providers.Line, 0, len(lines))

	for _, l := range lines {
		qty, unit, amount := LineAmounts(lineQuantity(l), lineTotal(l))
		if amount.IsZero() {
			continue
		}

		if billable && l.ServiceItemID != nil && *l.ServiceItemID != "" {
			itemID, err := b.resolver.ResolveServiceItem(ctx, run, *l.ServiceItemID)
			if err == nil {
				status := providers.BillableStatusNotBillable
				if bc.CustomerRef != nil {
					status = providers.BillableStatusBillable
				}
				out = append(out, providers.Line{
					Description: lineDescription(l),
					Amount:      providers.NewMoney(amount),
					DetailType:  providers.DetailItemExpense,
					ItemBasedExpenseLineDetail: &providers.ItemExpenseDetail{
						ItemRef:        providers.Ref{Value: itemID},
						Qty:            providers.NewMoney(qty),
						UnitPrice:      providers.NewMoney(unit),
						CustomerRef:    bc.CustomerRef,
						BillableStatus: status,
					},
				})
				continue
			}

			var resErr *ResolutionError
			if !errors.As(err, &resErr) {
				return nil, err
			}
			run.log.Warnw("Service item did not resolve, using expense account", "line_id", l.ID, "error", err)
		}

		acct, err := b.accounts.ExpenseAccount(ctx, run, l.CategoryName())
		if err != nil {
			return nil, err
		}

		detail := &providers.AccountExpenseDetail{AccountRef: acct}
		if billable && bc.CustomerRef != nil {
			detail.CustomerRef = bc.CustomerRef
			detail.BillableStatus = providers.BillableStatusBillable
		}
		out = append(out, providers.Line{
			Description:                   lineDescription(l),
			Amount:                        providers.NewMoney(amount),
			DetailType:                    providers.DetailAccountExpense,
			AccountBasedExpenseLineDetail: detail,
		})
	}
	return out, nil
}

// BuildSalesLines emits sales item lines for invoices and estimates. Lines
// without a catalogue item are booked against an item named after their
// category.
func (b *LineBuilder) BuildSalesLines(ctx context.Context, run *syncRun, lines []entities.LineItem) ([]providers.Line, error) {
	out := make([]providers.Line, 0, len(lines))

	for _, l := range lines {
		qty, unit, amount := LineAmounts(lineQuantity(l), lineTotal(l))
		if amount.IsZero() {
			continue
		}

		var (
			itemID string
			err    error
		)
		if l.ServiceItemID != nil && *l.ServiceItemID != "" {
			itemID, err = b.resolver.ResolveServiceItem(ctx, run, *l.ServiceItemID)
		} else {
			itemID, err = b.resolver.CategoryItem(ctx, run, l.CategoryName())
		}
		if err != nil {
			return nil, err
		}

		out = append(out, providers.Line{
			Description: lineDescription(l),
			Amount:      providers.NewMoney(amount),
			DetailType:  providers.DetailSalesItem,
			SalesItemLineDetail: &providers.SalesItemDetail{
				ItemRef:   providers.Ref{Value: itemID},
				Qty:       providers.NewMoney(qty),
				UnitPrice: providers.NewMoney(unit),
			},
		})
	}
	return out, nil
}
