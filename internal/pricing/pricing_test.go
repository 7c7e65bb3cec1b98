package pricing

import (
	"testing"

	"github.com/marejada-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine() *Engine {
	return NewEngine(
		[]string{enum.CategoryPizza, enum.CategorySeafood},
		map[string]decimal.Decimal{
			enum.SizeMedium: dec("15"),
			enum.SizeLarge:  dec("20"),
		},
	)
}

func promoLine(size string, units ...Unit) Line {
	return Line{
		Kind:     enum.KindPromoGroup,
		Category: enum.CategoryPizza,
		Size:     size,
		Quantity: len(units),
		Units:    units,
	}
}

func units(prices ...string) []Unit {
	out := make([]Unit, len(prices))
	for i, p := range prices {
		out[i] = Unit{BasePrice: dec(p)}
	}
	return out
}

func assertSubtotal(t *testing.T, q Quote, want string) {
	t.Helper()
	if !q.Subtotal.Equal(dec(want)) {
		t.Fatalf("subtotal = %s, want %s", q.Subtotal, want)
	}
}

func TestPricePromoGroup_EvenCount(t *testing.T) {
	e := newTestEngine()

	// Pair (120,100): charges 120. Pair (90,80): charges 90.
	q := e.Price(promoLine(enum.SizeLarge, units("100", "90", "120", "80")...))
	assertSubtotal(t, q, "210")
}

func TestPricePromoGroup_OddCount(t *testing.T) {
	e := newTestEngine()

	// Sorted desc [120,100,90]: pair (120,100) charges 120, leftover 90
	// charges 54.
	q := e.Price(promoLine(enum.SizeLarge, units("100", "120", "90")...))
	assertSubtotal(t, q, "174")
}

func TestPricePromoGroup_SingleUnit(t *testing.T) {
	e := newTestEngine()

	// A lone unit is always the leftover: 150 * 0.6 = 90.
	q := e.Price(promoLine(enum.SizeLarge, units("150")...))
	assertSubtotal(t, q, "90")

	if !q.UnitPriceEffective.Equal(dec("90")) {
		t.Fatalf("effective unit price = %s, want 90", q.UnitPriceEffective)
	}
}

func TestPricePromoGroup_TwoIdenticalWithAddons(t *testing.T) {
	e := newTestEngine()

	q := e.Price(promoLine(enum.SizeLarge,
		Unit{BasePrice: dec("100"), Addon: true},
		Unit{BasePrice: dec("100"), Addon: true},
	))
	// One paired base price plus two undiscounted surcharges.
	assertSubtotal(t, q, "140")
}

func TestPricePromoGroup_AddonNeverDiscounted(t *testing.T) {
	e := newTestEngine()

	withAddons := e.Price(promoLine(enum.SizeMedium,
		Unit{BasePrice: dec("100"), Addon: true},
		Unit{BasePrice: dec("80")},
		Unit{BasePrice: dec("60"), Addon: true},
	))
	without := e.Price(promoLine(enum.SizeMedium, units("100", "80", "60")...))

	// The surcharge is exactly recoverable by subtraction: 2 * 15.
	diff := withAddons.Subtotal.Sub(without.Subtotal)
	if !diff.Equal(dec("30")) {
		t.Fatalf("addon contribution = %s, want 30", diff)
	}
}

func TestPricePromoGroup_AddonSizeWithoutTableEntry(t *testing.T) {
	e := newTestEngine()

	q := e.Price(promoLine(enum.SizeSmall,
		Unit{BasePrice: dec("50"), Addon: true},
		Unit{BasePrice: dec("50"), Addon: true},
	))
	// No SMALL surcharge configured: pairing only.
	assertSubtotal(t, q, "50")
}

func TestPricePromoGroup_StableUnderTies(t *testing.T) {
	e := newTestEngine()

	a := e.Price(promoLine(enum.SizeLarge, units("100", "100", "90", "90", "80")...))
	b := e.Price(promoLine(enum.SizeLarge, units("90", "100", "80", "100", "90")...))
	if !a.Subtotal.Equal(b.Subtotal) {
		t.Fatalf("subtotal depends on member order: %s vs %s", a.Subtotal, b.Subtotal)
	}
	assertSubtotal(t, a, "238")
}

func TestPrice_NonPromoCategoryGroupFallsBackToFlat(t *testing.T) {
	e := newTestEngine()

	l := promoLine(enum.SizeLarge, units("100", "90")...)
	l.Category = "UNKNOWN_CATEGORY"
	q := e.Price(l)
	// Fail open: full price per unit, no pairing.
	assertSubtotal(t, q, "190")
}

func TestPrice_SimpleLine(t *testing.T) {
	e := newTestEngine()

	q := e.Price(Line{
		Kind:          enum.KindSimple,
		Category:      enum.CategoryDrink,
		Quantity:      3,
		UnitPriceBase: dec("25"),
	})
	assertSubtotal(t, q, "75")
	if !q.UnitPriceEffective.Equal(dec("25")) {
		t.Fatalf("effective unit price = %s, want 25", q.UnitPriceEffective)
	}
}

func TestPrice_BundleIgnoresMembers(t *testing.T) {
	e := newTestEngine()

	q := e.Price(Line{
		Kind:          enum.KindBundle,
		Category:      enum.CategoryBundle,
		Quantity:      2,
		UnitPriceBase: dec("299"),
		// Units present for display only; must not affect price.
		Units: units("500", "400"),
	})
	assertSubtotal(t, q, "598")
}

func TestPrice_NonPositiveQuantity(t *testing.T) {
	e := newTestEngine()

	q := e.Price(Line{Kind: enum.KindSimple, Quantity: 0, UnitPriceBase: dec("10")})
	if !q.Subtotal.IsZero() {
		t.Fatalf("subtotal = %s, want 0", q.Subtotal)
	}
}

func TestPricePromoGroup_PairingMaximizesDiscount(t *testing.T) {
	e := newTestEngine()

	// Greedy top-down pairing discounts the cheaper member of each
	// asymmetric pair: subtotal equals the sum of the ceil(n/2) highest
	// prices for even n.
	q := e.Price(promoLine(enum.SizeLarge, units("200", "50", "180", "60", "120", "100")...))
	// Pairs: (200,180)->200, (120,100)->120, (60,50)->60.
	assertSubtotal(t, q, "380")
}
