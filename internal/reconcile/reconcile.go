// Package reconcile computes the minimal change-set between a persisted
// order and the edited in-memory cart: cancellations, quantity updates,
// and creations, keyed by the backend's own item identities.
package reconcile

import (
	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/cart"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Snapshot is the original item list captured when an order was loaded
// for editing. It is immutable; Diff never mutates it.
type Snapshot struct {
	order []uuid.UUID
	qty   map[uuid.UUID]int
}

// NewSnapshot captures the persisted items an edit session started from.
// The same slice is normally fed to cart.Store.LoadPersisted.
func NewSnapshot(items []cart.PersistedItem) Snapshot {
	s := Snapshot{qty: make(map[uuid.UUID]int, len(items))}
	for _, it := range items {
		s.order = append(s.order, it.BackendID)
		s.qty[it.BackendID] = it.Quantity
	}
	return s
}

// Len returns the number of original items.
func (s Snapshot) Len() int { return len(s.order) }

// Cancellation marks a persisted item for status = cancelled.
type Cancellation struct {
	BackendID uuid.UUID
}

// QuantityUpdate changes a persisted item's quantity, keeping it active.
type QuantityUpdate struct {
	BackendID   uuid.UUID
	NewQuantity int
}

// CreationMember is a bundle slot reference on a newly created item.
type CreationMember struct {
	CatalogID uuid.UUID
	Name      string
	Quantity  int
}

// Creation carries enough for the backend to materialize a new item.
type Creation struct {
	Kind      enum.LineKind
	Category  string
	Size      string
	Name      string
	CatalogID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Addon     bool
	Members   []CreationMember
	Custom    *cart.CustomSpec
}

// ChangeSet is the delta to submit when saving an edited order.
type ChangeSet struct {
	Cancelled []Cancellation
	Updated   []QuantityUpdate
	Created   []Creation
}

// Empty reports whether the edit session changed nothing.
func (c ChangeSet) Empty() bool {
	return len(c.Cancelled) == 0 && len(c.Updated) == 0 && len(c.Created) == 0
}

// Diff compares the original snapshot against the live cart lines. Every
// original item lands in exactly one of: unchanged (absent from the
// change-set), updated, or cancelled. Promo group members diff at the
// member level so partial cancellations inside a group report
// individually. A line carrying an origin id the snapshot does not know
// (snapshot drift) is reported as a creation rather than failing.
func Diff(original Snapshot, lines []cart.Line) ChangeSet {
	var cs ChangeSet
	current := make(map[uuid.UUID]int)

	for _, line := range lines {
		switch line.Kind {
		case enum.KindPromoGroup:
			for _, m := range line.Members {
				if m.OriginBackendID == uuid.Nil {
					cs.Created = append(cs.Created, memberCreation(line, m))
					continue
				}
				if _, known := original.qty[m.OriginBackendID]; !known {
					cs.Created = append(cs.Created, memberCreation(line, m))
					continue
				}
				current[m.OriginBackendID] = m.Quantity
				if m.Quantity != original.qty[m.OriginBackendID] {
					cs.Updated = append(cs.Updated, QuantityUpdate{
						BackendID:   m.OriginBackendID,
						NewQuantity: m.Quantity,
					})
				}
			}
		default:
			if line.OriginBackendID == uuid.Nil {
				cs.Created = append(cs.Created, lineCreation(line))
				continue
			}
			if _, known := original.qty[line.OriginBackendID]; !known {
				cs.Created = append(cs.Created, lineCreation(line))
				continue
			}
			current[line.OriginBackendID] = line.Quantity
			if line.Quantity != original.qty[line.OriginBackendID] {
				cs.Updated = append(cs.Updated, QuantityUpdate{
					BackendID:   line.OriginBackendID,
					NewQuantity: line.Quantity,
				})
			}
		}
	}

	for _, id := range original.order {
		if _, present := current[id]; !present {
			cs.Cancelled = append(cs.Cancelled, Cancellation{BackendID: id})
		}
	}

	return cs
}

func memberCreation(line cart.Line, m cart.Member) Creation {
	return Creation{
		Kind:      line.Kind,
		Category:  line.Category,
		Size:      line.Size,
		Name:      m.Name,
		CatalogID: m.CatalogID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPriceBase,
		Addon:     m.Addon,
	}
}

func lineCreation(line cart.Line) Creation {
	c := Creation{
		Kind:      line.Kind,
		Category:  line.Category,
		Size:      line.Size,
		Name:      line.Name,
		CatalogID: line.CatalogID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPriceBase,
		Addon:     line.Addon,
	}
	for _, m := range line.Members {
		c.Members = append(c.Members, CreationMember{
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Quantity:  m.Quantity,
		})
	}
	if line.Custom != nil {
		spec := *line.Custom
		c.Custom = &spec
	}
	return c
}
