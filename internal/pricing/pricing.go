// Package pricing computes line subtotals for the order cart.
//
// Promo-eligible categories (pizza, seafood) are priced with the pairing
// rule: units in a size group are sorted by base price descending and paired
// from the top, each pair charging only its higher price. An odd leftover
// unit is charged at 60% of its base price. A group of one unit therefore
// always lands in the leftover branch and gets the 40% discount; that rule
// is inherited from the promotion as deployed and must not be "fixed" here.
package pricing

import (
	"sort"

	"github.com/marejada-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// leftoverRate is the fraction charged for an unpaired promo unit.
var leftoverRate = decimal.RequireFromString("0.6")

// Unit is a single sellable unit inside a promo group, after add-on
// separation: BasePrice excludes the surcharge, Addon marks it owed.
type Unit struct {
	BasePrice decimal.Decimal
	Addon     bool
}

// Line is the pricing view of a cart line.
type Line struct {
	Kind          enum.LineKind
	Category      string
	Size          string
	Quantity      int
	UnitPriceBase decimal.Decimal
	Units         []Unit // promo groups only
}

// Quote is the computed price for one line. UnitPriceEffective is the
// group average for display; callers must not do arithmetic with it.
type Quote struct {
	UnitPriceEffective decimal.Decimal
	Subtotal           decimal.Decimal
}

// Engine prices cart lines. It is configured once with the set of
// promo-eligible categories and the size-keyed add-on surcharge table.
type Engine struct {
	promoCategories map[string]bool
	addonBySize     map[string]decimal.Decimal
}

// NewEngine creates a pricing engine.
func NewEngine(promoCategories []string, addonBySize map[string]decimal.Decimal) *Engine {
	promo := make(map[string]bool, len(promoCategories))
	for _, c := range promoCategories {
		promo[c] = true
	}
	table := make(map[string]decimal.Decimal, len(addonBySize))
	for size, price := range addonBySize {
		table[size] = price
	}
	return &Engine{promoCategories: promo, addonBySize: table}
}

// PromoEligible reports whether a category participates in the pairing
// promotion. Unknown categories are not eligible (fail open to plain
// quantity pricing; pricing never blocks checkout).
func (e *Engine) PromoEligible(category string) bool {
	return e.promoCategories[category]
}

// AddonPrice returns the per-unit add-on surcharge for a size. Sizes
// without a table entry carry no surcharge.
func (e *Engine) AddonPrice(size string) decimal.Decimal {
	if p, ok := e.addonBySize[size]; ok {
		return p
	}
	return decimal.Zero
}

// Price computes the quote for one line. It is pure: same input, same
// quote, regardless of any other line in the cart.
func (e *Engine) Price(l Line) Quote {
	if l.Quantity <= 0 {
		return Quote{UnitPriceEffective: decimal.Zero, Subtotal: decimal.Zero}
	}

	switch l.Kind {
	case enum.KindPromoGroup:
		if e.PromoEligible(l.Category) {
			return e.pricePromoGroup(l)
		}
		// A group in a category that lost its promo flag is priced as
		// plain units.
		return e.priceUnitsFlat(l)
	case enum.KindBundle:
		// Fixed bundle price; member selection never affects it.
		return flatQuote(l.UnitPriceBase, l.Quantity)
	default:
		return flatQuote(l.UnitPriceBase, l.Quantity)
	}
}

// pricePromoGroup applies the pairing rule plus the undiscounted add-on
// surcharge.
func (e *Engine) pricePromoGroup(l Line) Quote {
	units := append([]Unit(nil), l.Units...)
	// Stable keeps equal-priced units in member order, so the subtotal is
	// invariant under reordering of same-priced members.
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].BasePrice.GreaterThan(units[j].BasePrice)
	})

	subtotal := decimal.Zero
	for i := 0; i+1 < len(units); i += 2 {
		// The pair charges only its higher price; the cheaper unit rides
		// free.
		subtotal = subtotal.Add(units[i].BasePrice)
	}
	if len(units)%2 == 1 {
		last := units[len(units)-1]
		subtotal = subtotal.Add(last.BasePrice.Mul(leftoverRate))
	}

	subtotal = subtotal.Add(e.addonSurcharge(l.Size, units))
	return averageQuote(subtotal, len(units))
}

// priceUnitsFlat charges every unit at full base price, add-ons included.
func (e *Engine) priceUnitsFlat(l Line) Quote {
	subtotal := decimal.Zero
	for _, u := range l.Units {
		subtotal = subtotal.Add(u.BasePrice)
	}
	subtotal = subtotal.Add(e.addonSurcharge(l.Size, l.Units))
	return averageQuote(subtotal, len(l.Units))
}

// addonSurcharge sums the per-unit surcharge over flagged units. It is
// never subject to pairing or the leftover reduction.
func (e *Engine) addonSurcharge(size string, units []Unit) decimal.Decimal {
	per := e.AddonPrice(size)
	if per.IsZero() {
		return decimal.Zero
	}
	count := 0
	for _, u := range units {
		if u.Addon {
			count++
		}
	}
	return per.Mul(decimal.NewFromInt(int64(count)))
}

func flatQuote(unitPrice decimal.Decimal, quantity int) Quote {
	return Quote{
		UnitPriceEffective: unitPrice,
		Subtotal:           unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func averageQuote(subtotal decimal.Decimal, count int) Quote {
	if count == 0 {
		return Quote{UnitPriceEffective: decimal.Zero, Subtotal: decimal.Zero}
	}
	return Quote{
		UnitPriceEffective: subtotal.Div(decimal.NewFromInt(int64(count))),
		Subtotal:           subtotal,
	}
}
