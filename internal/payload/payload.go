// Package payload builds order submission bodies from the cart and from
// reconciliation change-sets, and materializes persisted orders back into
// cart input for the edit flow.
package payload

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/cart"
	"github.com/marejada-pos/api/internal/client"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/reconcile"
	"github.com/shopspring/decimal"
)

// BuildCreate assembles the POST body for a new order from the cart.
func BuildCreate(s *cart.Store, serviceType, comments string, payments []client.PaymentPayload) client.OrderRequest {
	req := client.OrderRequest{
		Total:       s.Total().StringFixed(2),
		ServiceType: serviceType,
		Comments:    comments,
		Payments:    payments,
	}
	for _, line := range s.Lines() {
		req.Items = append(req.Items, lineItems(line)...)
	}
	return req
}

// BuildEdit assembles the PUT body for an edited order: update-only deltas
// for persisted items plus full entries for new ones, in the same items[]
// shape the create path uses.
func BuildEdit(cs reconcile.ChangeSet, s *cart.Store, serviceType, comments string) client.OrderRequest {
	req := client.OrderRequest{
		Total:       s.Total().StringFixed(2),
		ServiceType: serviceType,
		Comments:    comments,
	}

	for _, c := range cs.Cancelled {
		id := c.BackendID
		req.Items = append(req.Items, client.OrderItemPayload{
			ID:     &id,
			Status: int(enum.ItemStatusCancelled),
		})
	}
	for _, u := range cs.Updated {
		id := u.BackendID
		req.Items = append(req.Items, client.OrderItemPayload{
			ID:       &id,
			Status:   int(enum.ItemStatusActive),
			Quantity: u.NewQuantity,
		})
	}
	for _, c := range cs.Created {
		req.Items = append(req.Items, creationItem(c))
	}
	return req
}

// PersistedItems converts a fetched order into cart input. Cancelled items
// are skipped: they no longer participate in editing.
func PersistedItems(order *client.KitchenOrder) ([]cart.PersistedItem, error) {
	var items []cart.PersistedItem
	for _, it := range order.Items {
		if it.Status == int(enum.ItemStatusCancelled) {
			continue
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order item %s: bad unit price %q", it.ID, it.UnitPrice)
		}
		p := cart.PersistedItem{
			BackendID: it.ID,
			CatalogID: it.CatalogID,
			Name:      it.Name,
			Category:  it.Category,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: price,
			Addon:     it.Addon,
			Bundle:    it.Bundle,
		}
		if it.Custom != nil {
			p.Custom = &cart.CustomSpec{
				Size:          it.Custom.Size,
				IngredientIDs: it.Custom.IngredientIDs,
			}
		}
		items = append(items, p)
	}
	return items, nil
}

// lineItems flattens one cart line into wire items. Promo groups submit
// one entry per member so the backend keeps member-level identities.
func lineItems(line cart.Line) []client.OrderItemPayload {
	switch line.Kind {
	case enum.KindPromoGroup:
		out := make([]client.OrderItemPayload, 0, len(line.Members))
		for _, m := range line.Members {
			catalogID := m.CatalogID
			out = append(out, client.OrderItemPayload{
				Status:    int(enum.ItemStatusActive),
				CatalogID: &catalogID,
				Kind:      string(line.Kind),
				Name:      m.Name,
				Category:  line.Category,
				Size:      line.Size,
				Quantity:  m.Quantity,
				UnitPrice: m.UnitPriceBase.StringFixed(2),
				Addon:     m.Addon,
			})
		}
		return out
	case enum.KindBundle:
		catalogID := line.CatalogID
		item := client.OrderItemPayload{
			Status:    int(enum.ItemStatusActive),
			CatalogID: &catalogID,
			Kind:      string(line.Kind),
			Name:      line.Name,
			Category:  line.Category,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPriceBase.StringFixed(2),
		}
		for _, m := range line.Members {
			item.Members = append(item.Members, client.MemberRef{
				CatalogID: m.CatalogID,
				Name:      m.Name,
				Quantity:  m.Quantity,
			})
		}
		return []client.OrderItemPayload{item}
	case enum.KindCustom:
		item := client.OrderItemPayload{
			Status:    int(enum.ItemStatusActive),
			Kind:      string(line.Kind),
			Name:      line.Name,
			Category:  line.Category,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPriceBase.StringFixed(2),
		}
		if line.Custom != nil {
			item.Custom = &client.CustomPayload{
				Size:          line.Custom.Size,
				IngredientIDs: line.Custom.IngredientIDs,
			}
		}
		return []client.OrderItemPayload{item}
	default:
		catalogID := line.CatalogID
		return []client.OrderItemPayload{{
			Status:    int(enum.ItemStatusActive),
			CatalogID: &catalogID,
			Kind:      string(enum.KindSimple),
			Name:      line.Name,
			Category:  line.Category,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPriceBase.StringFixed(2),
			Addon:     line.Addon,
		}}
	}
}

// creationItem maps a reconciliation creation to a wire item.
func creationItem(c reconcile.Creation) client.OrderItemPayload {
	item := client.OrderItemPayload{
		Status:    int(enum.ItemStatusActive),
		Kind:      string(c.Kind),
		Name:      c.Name,
		Category:  c.Category,
		Size:      c.Size,
		Quantity:  c.Quantity,
		UnitPrice: c.UnitPrice.StringFixed(2),
		Addon:     c.Addon,
	}
	if c.CatalogID != uuid.Nil {
		catalogID := c.CatalogID
		item.CatalogID = &catalogID
	}
	for _, m := range c.Members {
		item.Members = append(item.Members, client.MemberRef{
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Quantity:  m.Quantity,
		})
	}
	if c.Custom != nil {
		item.Custom = &client.CustomPayload{
			Size:          c.Custom.Size,
			IngredientIDs: c.Custom.IngredientIDs,
		}
	}
	return item
}
