// Package cart holds the in-memory order-in-progress for one terminal.
// Every mutation ends with a full recompute through the pricing engine;
// derived fields on lines are never hand-set.
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/catalog"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// Errors returned by the cart store.
var (
	ErrLineNotFound   = errors.New("cart line not found")
	ErrMemberNotFound = errors.New("cart line member not found")
	ErrEmptyBundle    = errors.New("bundle requires at least one member")
)

// Member is one individually selectable sub-item of a promo group or
// bundle line. For promo groups every member carries its own base price;
// bundle members exist for display and payload construction only.
type Member struct {
	ID            uuid.UUID
	CatalogID     uuid.UUID
	Name          string
	Quantity      int
	UnitPriceBase decimal.Decimal
	Addon         bool

	// OriginBackendID links the member to a persisted order item when the
	// cart was materialized from an existing order. Zero for new members.
	OriginBackendID uuid.UUID
	Dirty           bool
}

// CustomSpec describes a build-your-own item: a size plus the chosen
// ingredient references.
type CustomSpec struct {
	Size          string
	IngredientIDs []uuid.UUID
}

// Line is one logical cart row. Kind discriminates the union; the pricing
// engine and the payload builder switch on it exhaustively.
type Line struct {
	ID       uuid.UUID
	Kind     enum.LineKind
	Name     string
	Category string
	Size     string
	Quantity int

	// CatalogID is the backing catalog item for simple and bundle lines.
	// Promo groups reference the catalog per member instead.
	CatalogID uuid.UUID

	// UnitPriceBase is frozen from the catalog at add time.
	UnitPriceBase decimal.Decimal
	// UnitPriceEffective and Subtotal are derived on every recompute.
	// UnitPriceEffective is a display average for promo groups.
	UnitPriceEffective decimal.Decimal
	Subtotal           decimal.Decimal

	Addon   bool
	Members []Member
	Custom  *CustomSpec

	OriginBackendID uuid.UUID
	Dirty           bool
}

// PersistedItem is one backend order item used to materialize a cart for
// the edit-order flow.
type PersistedItem struct {
	BackendID uuid.UUID
	CatalogID uuid.UUID
	Name      string
	Category  string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
	Addon     bool
	Bundle    bool
	Custom    *CustomSpec
}

// BundleMember is a slot selection when adding a bundle.
type BundleMember struct {
	CatalogID uuid.UUID
	Name      string
	Quantity  int
}

// Store is the mutable cart. It is owned by a single terminal flow and is
// not safe for concurrent use.
type Store struct {
	engine *pricing.Engine
	lines  []*Line
}

// NewStore creates an empty cart over the given pricing engine.
func NewStore(engine *pricing.Engine) *Store {
	return &Store{engine: engine}
}

// AddItem adds qty units of a catalog item. Promo-eligible categories are
// folded into the category+size promo group; other categories increment a
// matching line or open a new one.
func (s *Store) AddItem(item catalog.Item, qty int, addon bool) *Line {
	if qty <= 0 {
		qty = 1
	}

	if s.engine.PromoEligible(item.Category) {
		line := s.findPromoGroup(item.Category, item.Size)
		if line == nil {
			line = &Line{
				ID:       uuid.New(),
				Kind:     enum.KindPromoGroup,
				Name:     item.Category,
				Category: item.Category,
				Size:     item.Size,
			}
			s.lines = append(s.lines, line)
		}
		if m := line.findMember(item.ID, addon); m != nil {
			m.Quantity += qty
			m.markDirty()
		} else {
			line.Members = append(line.Members, Member{
				ID:            uuid.New(),
				CatalogID:     item.ID,
				Name:          item.Name,
				Quantity:      qty,
				UnitPriceBase: item.BasePrice,
				Addon:         addon,
			})
		}
		s.recompute()
		return line
	}

	for _, line := range s.lines {
		if line.Kind == enum.KindSimple && line.sameSimpleItem(item, addon) {
			line.Quantity += qty
			line.markDirty()
			s.recompute()
			return line
		}
	}

	line := &Line{
		ID:            uuid.New(),
		Kind:          enum.KindSimple,
		Name:          item.Name,
		Category:      item.Category,
		Size:          item.Size,
		Quantity:      qty,
		CatalogID:     item.ID,
		UnitPriceBase: item.BasePrice,
		Addon:         addon,
	}
	s.lines = append(s.lines, line)
	s.recompute()
	return line
}

// AddBundle adds one bundle purchase as its own line. Bundle lines never
// merge: each purchase stays a distinct row.
func (s *Store) AddBundle(bundle catalog.Item, members []BundleMember, qty int) (*Line, error) {
	if len(members) == 0 {
		return nil, ErrEmptyBundle
	}
	if qty <= 0 {
		qty = 1
	}

	line := &Line{
		ID:            uuid.New(),
		Kind:          enum.KindBundle,
		Name:          bundle.Name,
		Category:      bundle.Category,
		Quantity:      qty,
		CatalogID:     bundle.ID,
		UnitPriceBase: bundle.BasePrice,
	}
	for _, m := range members {
		mQty := m.Quantity
		if mQty <= 0 {
			mQty = 1
		}
		line.Members = append(line.Members, Member{
			ID:        uuid.New(),
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Quantity:  mQty,
		})
	}
	s.lines = append(s.lines, line)
	s.recompute()
	return line, nil
}

// AddCustom adds a build-your-own line priced by the caller.
func (s *Store) AddCustom(name string, spec CustomSpec, unitPrice decimal.Decimal, qty int) *Line {
	if qty <= 0 {
		qty = 1
	}
	line := &Line{
		ID:            uuid.New(),
		Kind:          enum.KindCustom,
		Name:          name,
		Category:      enum.CategoryCustom,
		Size:          spec.Size,
		Quantity:      qty,
		UnitPriceBase: unitPrice,
		Custom:        &spec,
	}
	s.lines = append(s.lines, line)
	s.recompute()
	return line
}

// UpdateQuantity sets the quantity of a line or, when memberID is given,
// of one member inside it. A result of zero or less removes the member
// (and the line, if it was the last member) or the line itself.
func (s *Store) UpdateQuantity(lineID, memberID uuid.UUID, qty int) error {
	idx, line := s.findLine(lineID)
	if line == nil {
		return ErrLineNotFound
	}

	if memberID != uuid.Nil {
		mi := line.memberIndex(memberID)
		if mi < 0 {
			return ErrMemberNotFound
		}
		if qty <= 0 {
			line.Members = append(line.Members[:mi], line.Members[mi+1:]...)
			if len(line.Members) == 0 {
				s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
			}
		} else {
			line.Members[mi].Quantity = qty
			line.Members[mi].markDirty()
		}
		s.recompute()
		return nil
	}

	if qty <= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		line.Quantity = qty
		line.markDirty()
	}
	s.recompute()
	return nil
}

// Remove deletes a line, or one member of it when memberID is given.
// History of persisted items is not lost here: the original snapshot held
// by the edit flow is what the reconciliation pass diffs against.
func (s *Store) Remove(lineID, memberID uuid.UUID) error {
	return s.UpdateQuantity(lineID, memberID, 0)
}

// Clear empties the cart. Called after a successful submission.
func (s *Store) Clear() {
	s.lines = nil
}

// LoadPersisted replaces the cart with lines materialized from a persisted
// order. Promo-eligible items fold into their category+size group with
// member-level origin ids so partial cancellations reconcile individually.
func (s *Store) LoadPersisted(items []PersistedItem) {
	s.lines = nil
	for _, it := range items {
		switch {
		case it.Custom != nil:
			spec := *it.Custom
			s.lines = append(s.lines, &Line{
				ID:              uuid.New(),
				Kind:            enum.KindCustom,
				Name:            it.Name,
				Category:        enum.CategoryCustom,
				Size:            spec.Size,
				Quantity:        it.Quantity,
				UnitPriceBase:   it.UnitPrice,
				Custom:          &spec,
				OriginBackendID: it.BackendID,
			})
		case it.Bundle:
			s.lines = append(s.lines, &Line{
				ID:              uuid.New(),
				Kind:            enum.KindBundle,
				Name:            it.Name,
				Category:        it.Category,
				Quantity:        it.Quantity,
				CatalogID:       it.CatalogID,
				UnitPriceBase:   it.UnitPrice,
				OriginBackendID: it.BackendID,
			})
		case s.engine.PromoEligible(it.Category):
			line := s.findPromoGroup(it.Category, it.Size)
			if line == nil {
				line = &Line{
					ID:       uuid.New(),
					Kind:     enum.KindPromoGroup,
					Name:     it.Category,
					Category: it.Category,
					Size:     it.Size,
				}
				s.lines = append(s.lines, line)
			}
			line.Members = append(line.Members, Member{
				ID:              uuid.New(),
				CatalogID:       it.CatalogID,
				Name:            it.Name,
				Quantity:        it.Quantity,
				UnitPriceBase:   it.UnitPrice,
				Addon:           it.Addon,
				OriginBackendID: it.BackendID,
			})
		default:
			s.lines = append(s.lines, &Line{
				ID:              uuid.New(),
				Kind:            enum.KindSimple,
				Name:            it.Name,
				Category:        it.Category,
				Size:            it.Size,
				Quantity:        it.Quantity,
				CatalogID:       it.CatalogID,
				UnitPriceBase:   it.UnitPrice,
				Addon:           it.Addon,
				OriginBackendID: it.BackendID,
			})
		}
	}
	s.recompute()
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	for i, l := range s.lines {
		out[i] = *l
		out[i].Members = append([]Member(nil), l.Members...)
	}
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// Total returns the sum of all line subtotals.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// recompute reprices every line. A full pass is cheap at cart scale and
// avoids stale derived fields after group membership changes.
func (s *Store) recompute() {
	for _, line := range s.lines {
		if line.Kind == enum.KindPromoGroup {
			line.Quantity = line.memberQuantity()
		}
		q := s.engine.Price(pricing.Line{
			Kind:          line.Kind,
			Category:      line.Category,
			Size:          line.Size,
			Quantity:      line.Quantity,
			UnitPriceBase: line.UnitPriceBase,
			Units:         line.pricingUnits(),
		})
		line.UnitPriceEffective = q.UnitPriceEffective
		line.Subtotal = q.Subtotal
	}
}

func (s *Store) findLine(id uuid.UUID) (int, *Line) {
	for i, l := range s.lines {
		if l.ID == id {
			return i, l
		}
	}
	return -1, nil
}

func (s *Store) findPromoGroup(category, size string) *Line {
	for _, l := range s.lines {
		if l.Kind == enum.KindPromoGroup && l.Category == category && l.Size == size {
			return l
		}
	}
	return nil
}

func (l *Line) sameSimpleItem(item catalog.Item, addon bool) bool {
	return l.Category == item.Category && l.Name == item.Name &&
		l.Size == item.Size && l.Addon == addon &&
		l.UnitPriceBase.Equal(item.BasePrice)
}

func (l *Line) findMember(catalogID uuid.UUID, addon bool) *Member {
	for i := range l.Members {
		if l.Members[i].CatalogID == catalogID && l.Members[i].Addon == addon {
			return &l.Members[i]
		}
	}
	return nil
}

func (l *Line) memberIndex(memberID uuid.UUID) int {
	for i := range l.Members {
		if l.Members[i].ID == memberID {
			return i
		}
	}
	return -1
}

func (l *Line) memberQuantity() int {
	total := 0
	for _, m := range l.Members {
		total += m.Quantity
	}
	return total
}

// pricingUnits explodes promo group members into per-unit entries for the
// engine. Other kinds price off the line fields directly.
func (l *Line) pricingUnits() []pricing.Unit {
	if l.Kind != enum.KindPromoGroup {
		return nil
	}
	units := make([]pricing.Unit, 0, l.memberQuantity())
	for _, m := range l.Members {
		for i := 0; i < m.Quantity; i++ {
			units = append(units, pricing.Unit{BasePrice: m.UnitPriceBase, Addon: m.Addon})
		}
	}
	return units
}

func (l *Line) markDirty() {
	if l.OriginBackendID != uuid.Nil {
		l.Dirty = true
	}
}

func (m *Member) markDirty() {
	if m.OriginBackendID != uuid.Nil {
		m.Dirty = true
	}
}
