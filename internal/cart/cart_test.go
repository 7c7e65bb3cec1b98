package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/catalog"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/pricing"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore() *Store {
	engine := pricing.NewEngine(
		[]string{enum.CategoryPizza, enum.CategorySeafood},
		map[string]decimal.Decimal{enum.SizeLarge: dec("20")},
	)
	return NewStore(engine)
}

func pizza(name, price string) catalog.Item {
	return catalog.Item{
		ID:        uuid.New(),
		Name:      name,
		Category:  enum.CategoryPizza,
		Size:      enum.SizeLarge,
		BasePrice: dec(price),
	}
}

func drink(name, price string) catalog.Item {
	return catalog.Item{
		ID:        uuid.New(),
		Name:      name,
		Category:  enum.CategoryDrink,
		BasePrice: dec(price),
	}
}

func assertTotal(t *testing.T, s *Store, want string) {
	t.Helper()
	if !s.Total().Equal(dec(want)) {
		t.Fatalf("total = %s, want %s", s.Total(), want)
	}
}

func TestAddItem_PromoItemsFoldIntoOneGroup(t *testing.T) {
	s := newTestStore()

	s.AddItem(pizza("Pepperoni", "120"), 1, false)
	s.AddItem(pizza("Hawaiana", "100"), 1, false)
	s.AddItem(pizza("Marinera", "90"), 1, false)

	if s.Len() != 1 {
		t.Fatalf("lines = %d, want 1 promo group", s.Len())
	}
	line := s.Lines()[0]
	if line.Kind != enum.KindPromoGroup {
		t.Fatalf("kind = %s, want %s", line.Kind, enum.KindPromoGroup)
	}
	if line.Quantity != 3 {
		t.Fatalf("group quantity = %d, want 3", line.Quantity)
	}
	// Pair (120,100) charges 120; leftover 90 charges 54.
	assertTotal(t, s, "174")
}

func TestAddItem_DifferentSizesStayInDifferentGroups(t *testing.T) {
	s := newTestStore()

	large := pizza("Pepperoni", "120")
	medium := pizza("Pepperoni", "100")
	medium.Size = enum.SizeMedium

	s.AddItem(large, 1, false)
	s.AddItem(medium, 1, false)

	if s.Len() != 2 {
		t.Fatalf("lines = %d, want 2 (one group per size)", s.Len())
	}
}

func TestAddItem_SameItemIncrementsMember(t *testing.T) {
	s := newTestStore()

	p := pizza("Pepperoni", "100")
	s.AddItem(p, 1, false)
	s.AddItem(p, 1, false)

	line := s.Lines()[0]
	if len(line.Members) != 1 {
		t.Fatalf("members = %d, want 1", len(line.Members))
	}
	if line.Members[0].Quantity != 2 {
		t.Fatalf("member quantity = %d, want 2", line.Members[0].Quantity)
	}
	// Identical pair charges one base price.
	assertTotal(t, s, "100")
}

func TestAddItem_AddonVariantIsSeparateMember(t *testing.T) {
	s := newTestStore()

	p := pizza("Pepperoni", "100")
	s.AddItem(p, 1, false)
	s.AddItem(p, 1, true)

	line := s.Lines()[0]
	if len(line.Members) != 2 {
		t.Fatalf("members = %d, want 2 (addon is its own member)", len(line.Members))
	}
	// Pair charges 100, plus one undiscounted surcharge of 20.
	assertTotal(t, s, "120")
}

func TestAddItem_SimpleLinesMergeByItem(t *testing.T) {
	s := newTestStore()

	s.AddItem(drink("Limonada", "25"), 1, false)
	s.AddItem(drink("Limonada", "25"), 2, false)
	s.AddItem(drink("Agua", "15"), 1, false)

	if s.Len() != 2 {
		t.Fatalf("lines = %d, want 2", s.Len())
	}
	assertTotal(t, s, "90")
}

func TestAddBundle_NeverMerges(t *testing.T) {
	s := newTestStore()

	b := catalog.Item{
		ID:        uuid.New(),
		Name:      "Combo Familiar",
		Category:  enum.CategoryBundle,
		BasePrice: dec("299"),
		Bundle:    true,
	}
	members := []BundleMember{{CatalogID: uuid.New(), Name: "Pepperoni", Quantity: 2}}

	if _, err := s.AddBundle(b, members, 1); err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	if _, err := s.AddBundle(b, members, 1); err != nil {
		t.Fatalf("add bundle: %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("lines = %d, want 2 distinct bundle lines", s.Len())
	}
	// Fixed price regardless of member prices.
	assertTotal(t, s, "598")
}

func TestAddBundle_RequiresMembers(t *testing.T) {
	s := newTestStore()

	b := catalog.Item{ID: uuid.New(), Name: "Combo", Category: enum.CategoryBundle, BasePrice: dec("299")}
	if _, err := s.AddBundle(b, nil, 1); err != ErrEmptyBundle {
		t.Fatalf("err = %v, want ErrEmptyBundle", err)
	}
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	s := newTestStore()

	line := s.AddItem(drink("Limonada", "25"), 2, false)
	if err := s.UpdateQuantity(line.ID, uuid.Nil, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("lines = %d, want 0", s.Len())
	}
}

func TestUpdateQuantity_RemovingLastMemberRemovesGroup(t *testing.T) {
	s := newTestStore()

	line := s.AddItem(pizza("Pepperoni", "100"), 1, false)
	memberID := s.Lines()[0].Members[0].ID

	if err := s.UpdateQuantity(line.ID, memberID, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("lines = %d, want 0 after last member removed", s.Len())
	}
}

func TestUpdateQuantity_MemberChangeRepricesGroup(t *testing.T) {
	s := newTestStore()

	s.AddItem(pizza("Pepperoni", "120"), 1, false)
	line := s.AddItem(pizza("Hawaiana", "100"), 1, false)
	assertTotal(t, s, "120")

	memberID := s.Lines()[0].Members[1].ID
	if err := s.UpdateQuantity(line.ID, memberID, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Units [120,100,100,100]: pairs (120,100) and (100,100) charge 220.
	assertTotal(t, s, "220")
	if got := s.Lines()[0].Quantity; got != 4 {
		t.Fatalf("group quantity = %d, want 4", got)
	}
}

func TestUpdateQuantity_UnknownLine(t *testing.T) {
	s := newTestStore()
	if err := s.UpdateQuantity(uuid.New(), uuid.Nil, 1); err != ErrLineNotFound {
		t.Fatalf("err = %v, want ErrLineNotFound", err)
	}
}

func TestUpdateQuantity_MarksPersistedLinesDirty(t *testing.T) {
	s := newTestStore()

	backendID := uuid.New()
	s.LoadPersisted([]PersistedItem{{
		BackendID: backendID,
		CatalogID: uuid.New(),
		Name:      "Limonada",
		Category:  enum.CategoryDrink,
		Quantity:  1,
		UnitPrice: dec("25"),
	}})

	line := s.Lines()[0]
	if line.Dirty {
		t.Fatal("line dirty before any change")
	}
	if err := s.UpdateQuantity(line.ID, uuid.Nil, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := s.Lines()[0]
	if !got.Dirty {
		t.Fatal("line not marked dirty after quantity change")
	}
	if got.OriginBackendID != backendID {
		t.Fatalf("origin id lost: %s", got.OriginBackendID)
	}
}

func TestLoadPersisted_FoldsPromoItemsWithMemberOrigins(t *testing.T) {
	s := newTestStore()

	idA, idB := uuid.New(), uuid.New()
	s.LoadPersisted([]PersistedItem{
		{BackendID: idA, CatalogID: uuid.New(), Name: "Pepperoni", Category: enum.CategoryPizza, Size: enum.SizeLarge, Quantity: 1, UnitPrice: dec("120")},
		{BackendID: idB, CatalogID: uuid.New(), Name: "Hawaiana", Category: enum.CategoryPizza, Size: enum.SizeLarge, Quantity: 1, UnitPrice: dec("100")},
	})

	if s.Len() != 1 {
		t.Fatalf("lines = %d, want 1", s.Len())
	}
	line := s.Lines()[0]
	if len(line.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(line.Members))
	}
	origins := map[uuid.UUID]bool{}
	for _, m := range line.Members {
		origins[m.OriginBackendID] = true
	}
	if !origins[idA] || !origins[idB] {
		t.Fatalf("member origins missing: %v", origins)
	}
	assertTotal(t, s, "120")
}

func TestClear(t *testing.T) {
	s := newTestStore()
	s.AddItem(drink("Limonada", "25"), 1, false)
	s.Clear()
	if s.Len() != 0 || !s.Total().IsZero() {
		t.Fatalf("cart not empty after clear")
	}
}

func TestAddCustom(t *testing.T) {
	s := newTestStore()

	spec := CustomSpec{Size: enum.SizeMedium, IngredientIDs: []uuid.UUID{uuid.New(), uuid.New()}}
	line := s.AddCustom("Media y media", spec, dec("130"), 2)

	if line.Kind != enum.KindCustom {
		t.Fatalf("kind = %s, want %s", line.Kind, enum.KindCustom)
	}
	assertTotal(t, s, "260")
}
