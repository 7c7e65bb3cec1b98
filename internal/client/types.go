package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/enum"
)

// CatalogEntry is one price-book row as served by the backend.
type CatalogEntry struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Size     string    `json:"size,omitempty"`
	Price    string    `json:"price"`
	Addon    bool      `json:"addon,omitempty"`
	Bundle   bool      `json:"bundle,omitempty"`
}

type catalogResponse struct {
	Items []CatalogEntry `json:"items"`
}

// VersionResponse carries the opaque queue version token. Clients compare
// it for equality only.
type VersionResponse struct {
	Version string `json:"version"`
}

// KitchenOrder is one order on the kitchen queue.
type KitchenOrder struct {
	ID          uuid.UUID          `json:"id"`
	OrderNumber string             `json:"order_number"`
	Status      enum.OrderStatus   `json:"status"`
	ServiceType string             `json:"service_type"`
	Comments    string             `json:"comments,omitempty"`
	Total       string             `json:"total"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []KitchenOrderItem `json:"items"`
}

// KitchenOrderItem is one persisted line of an order.
type KitchenOrderItem struct {
	ID        uuid.UUID      `json:"id"`
	CatalogID uuid.UUID      `json:"catalog_id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Size      string         `json:"size,omitempty"`
	Quantity  int            `json:"quantity"`
	UnitPrice string         `json:"unit_price"`
	Status    int            `json:"status"`
	Addon     bool           `json:"addon,omitempty"`
	Bundle    bool           `json:"bundle,omitempty"`
	Members   []MemberRef    `json:"members,omitempty"`
	Custom    *CustomPayload `json:"custom,omitempty"`
}

type queueResponse struct {
	Orders  []KitchenOrder `json:"orders"`
	Version string         `json:"version"`
}

// MemberRef is a nested catalog reference on a bundle item.
type MemberRef struct {
	CatalogID uuid.UUID `json:"catalog_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// CustomPayload describes a build-your-own composition: size plus
// ingredient ids.
type CustomPayload struct {
	Size          string      `json:"size"`
	IngredientIDs []uuid.UUID `json:"ingredient_ids"`
}

// OrderItemPayload is one items[] entry on order submission. On create,
// ID is absent and Status is active. On edit, entries with an ID are
// update-only deltas (status 0 cancels, 1 keeps active with the given
// quantity) and entries without an ID are newly created items.
type OrderItemPayload struct {
	ID        *uuid.UUID     `json:"id,omitempty"`
	Status    int            `json:"status"`
	CatalogID *uuid.UUID     `json:"catalog_id,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Name      string         `json:"name,omitempty"`
	Category  string         `json:"category,omitempty"`
	Size      string         `json:"size,omitempty"`
	Quantity  int            `json:"quantity"`
	UnitPrice string         `json:"unit_price,omitempty"`
	Addon     bool           `json:"addon,omitempty"`
	Members   []MemberRef    `json:"members,omitempty"`
	Custom    *CustomPayload `json:"custom,omitempty"`
}

// PaymentPayload is one payments[] entry.
type PaymentPayload struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

// OrderRequest is the body for POST (create) and PUT (edit) of an order.
type OrderRequest struct {
	Total       string             `json:"total"`
	ServiceType string             `json:"service_type"`
	Comments    string             `json:"comments,omitempty"`
	Items       []OrderItemPayload `json:"items"`
	Payments    []PaymentPayload   `json:"payments,omitempty"`
}

// Transition actions accepted by the backend.
const (
	ActionToggle   = "TOGGLE"
	ActionComplete = "COMPLETE"
	ActionCancel   = "CANCEL"
)

// TransitionRequest applies one kitchen state transition. From is the
// status the caller last observed; the backend rejects stale requests.
type TransitionRequest struct {
	Action string           `json:"action"`
	From   enum.OrderStatus `json:"from"`
}
