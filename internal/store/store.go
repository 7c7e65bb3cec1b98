// Package store defines the persistence surface of the backend: domain
// models plus the Store interface implemented by the postgres and memory
// backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict is returned when a compare-and-set status update
	// observes a different current status than the caller expected.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrInvalidOrder is returned for orders or edits that fail validation.
	ErrInvalidOrder = errors.New("invalid order")
)

// User is a staff account scoped to one branch.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	BranchID     uuid.UUID
	Active       bool
}

// CatalogItem is one sellable entry of a branch's price book.
type CatalogItem struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Category string
	Size     string
	Price    decimal.Decimal
	Addon    bool
	Bundle   bool
	Active   bool
}

// OrderItemMember is a nested catalog reference on a bundle item.
type OrderItemMember struct {
	CatalogID uuid.UUID `json:"catalog_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// CustomComposition describes a build-your-own item: a size plus the
// chosen ingredient ids.
type CustomComposition struct {
	Size          string      `json:"size"`
	IngredientIDs []uuid.UUID `json:"ingredient_ids"`
}

// OrderItem is one persisted line of an order. Cancelled items are kept
// on the order with Status = cancelled rather than deleted.
type OrderItem struct {
	ID        uuid.UUID
	CatalogID uuid.UUID
	Kind      enum.LineKind
	Name      string
	Category  string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
	Status    enum.ItemStatus
	Addon     bool
	Bundle    bool
	Members   []OrderItemMember
	Custom    *CustomComposition
}

// Payment is one settled payment against an order.
type Payment struct {
	ID     uuid.UUID
	Method string
	Amount decimal.Decimal
}

// Order is one kitchen order with its items and payments.
type Order struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	OrderNumber string
	Status      enum.OrderStatus
	ServiceType string
	Comments    string
	Total       decimal.Decimal
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []OrderItem
	Payments    []Payment
}

// ActiveTotal sums quantity times unit price over non-cancelled items.
func (o Order) ActiveTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		if it.Status == enum.ItemStatusCancelled {
			continue
		}
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ItemChange is one items[] entry of an order edit. Entries with an ID
// modify an existing item (status 0 cancels it, status 1 keeps it active
// with the given quantity); entries without an ID create a new item.
type ItemChange struct {
	ID       *uuid.UUID
	Status   enum.ItemStatus
	Quantity int
	Create   *OrderItem
}

// OrderEdit is the full edit applied by a PUT on an order.
type OrderEdit struct {
	ServiceType string
	Comments    string
	Items       []ItemChange
}

// Store is the persistence interface of the backend.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListCatalog(ctx context.Context, branchID uuid.UUID) ([]CatalogItem, error)

	CreateOrder(ctx context.Context, order Order) (*Order, error)
	GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*Order, error)
	// ListQueue returns the branch's open orders (waiting and preparing),
	// oldest first.
	ListQueue(ctx context.Context, branchID uuid.UUID) ([]Order, error)
	// UpdateOrder applies an edit. Editing a completed order demotes it
	// back to preparing; cancelled orders reject edits with
	// ErrStatusConflict.
	UpdateOrder(ctx context.Context, branchID, orderID uuid.UUID, edit OrderEdit) (*Order, error)
	// TransitionOrder moves an order from one status to another, failing
	// with ErrStatusConflict unless the current status equals from.
	TransitionOrder(ctx context.Context, branchID, orderID uuid.UUID, from, to enum.OrderStatus) (*Order, error)
}
