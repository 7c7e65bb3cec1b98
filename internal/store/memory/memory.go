// Package memory is an in-process Store used for development mode and
// handler tests. NewSeeded loads a demo branch with staff accounts and a
// pizza and seafood price book.
package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]store.User
	catalog map[uuid.UUID][]store.CatalogItem
	orders  map[uuid.UUID]*store.Order
	seq     int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]store.User),
		catalog: make(map[uuid.UUID][]store.CatalogItem),
		orders:  make(map[uuid.UUID]*store.Order),
	}
}

// NewSeeded creates a store preloaded with the demo branch. The branch id
// is fixed so terminals can point at it without a discovery call.
func NewSeeded() *Store {
	s := New()
	branchID := uuid.MustParse("6f1e2a4c-0000-4000-8000-000000000001")
	s.SeedBranch(branchID)
	return s
}

// SeedBranch loads demo users and a price book for one branch.
func (s *Store) SeedBranch(branchID uuid.UUID) {
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	kitchenPwd := envOr("SEED_KITCHEN_PASSWORD", "kitchen123")
	if os.Getenv("SEED_CASHIER_PASSWORD") == "" || os.Getenv("SEED_KITCHEN_PASSWORD") == "" {
		log.Println("WARNING: using default dev credentials; set SEED_CASHIER_PASSWORD and SEED_KITCHEN_PASSWORD to override")
	}

	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"cashier", cashierPwd, enum.UserRoleCashier},
		{"kitchen", kitchenPwd, enum.UserRoleKitchen},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash seed password for %s: %v", u.username, err)
		}
		s.AddUser(store.User{
			ID:           uuid.New(),
			Username:     u.username,
			PasswordHash: string(hash),
			Role:         u.role,
			BranchID:     branchID,
			Active:       true,
		})
	}

	price := decimal.RequireFromString
	items := []store.CatalogItem{
		{Name: "Margarita", Category: enum.CategoryPizza, Size: enum.SizeMedium, Price: price("90")},
		{Name: "Margarita", Category: enum.CategoryPizza, Size: enum.SizeLarge, Price: price("120")},
		{Name: "Pepperoni", Category: enum.CategoryPizza, Size: enum.SizeMedium, Price: price("100")},
		{Name: "Pepperoni", Category: enum.CategoryPizza, Size: enum.SizeLarge, Price: price("135")},
		{Name: "Cuatro Quesos", Category: enum.CategoryPizza, Size: enum.SizeLarge, Price: price("150")},
		{Name: "Orilla Rellena", Category: enum.CategoryPizza, Size: enum.SizeMedium, Price: price("25"), Addon: true},
		{Name: "Orilla Rellena", Category: enum.CategoryPizza, Size: enum.SizeLarge, Price: price("35"), Addon: true},
		{Name: "Camarones al Ajillo", Category: enum.CategorySeafood, Size: enum.SizeMedium, Price: price("160")},
		{Name: "Filete Empanizado", Category: enum.CategorySeafood, Size: enum.SizeMedium, Price: price("140")},
		{Name: "Coctel de Camaron", Category: enum.CategorySeafood, Size: enum.SizeLarge, Price: price("180")},
		{Name: "Limonada", Category: enum.CategoryDrink, Price: price("30")},
		{Name: "Refresco", Category: enum.CategoryDrink, Price: price("25")},
		{Name: "Flan Napolitano", Category: enum.CategoryDessert, Price: price("45")},
		{Name: "Combo Familiar", Category: enum.CategoryBundle, Price: price("299"), Bundle: true},
	}
	for _, it := range items {
		it.ID = uuid.New()
		it.BranchID = branchID
		it.Active = true
		s.AddCatalogItem(it)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// AddUser registers a user account.
func (s *Store) AddUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// AddCatalogItem registers a price book entry.
func (s *Store) AddCatalogItem(it store.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[it.BranchID] = append(s.catalog[it.BranchID], it)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok || !u.Active {
		return nil, store.ErrNotFound
	}
	out := u
	return &out, nil
}

func (s *Store) ListCatalog(ctx context.Context, branchID uuid.UUID) ([]store.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]store.CatalogItem, 0, len(s.catalog[branchID]))
	for _, it := range s.catalog[branchID] {
		if it.Active {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category == items[j].Category {
			return items[i].Name < items[j].Name
		}
		return items[i].Category < items[j].Category
	})
	return items, nil
}

func (s *Store) CreateOrder(ctx context.Context, order store.Order) (*store.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.seq++
	if order.OrderNumber == "" {
		order.OrderNumber = fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), s.seq)
	}
	order.Status = enum.OrderStatusWaiting
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].Status = enum.ItemStatusActive
	}
	for i := range order.Payments {
		if order.Payments[i].ID == uuid.Nil {
			order.Payments[i].ID = uuid.New()
		}
	}
	order.Total = order.ActiveTotal()

	saved := cloneOrder(&order)
	s.orders[order.ID] = saved
	out := cloneOrder(saved)
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok || o.BranchID != branchID {
		return nil, store.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListQueue(ctx context.Context, branchID uuid.UUID) ([]store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queue := make([]store.Order, 0, 16)
	for _, o := range s.orders {
		if o.BranchID != branchID {
			continue
		}
		if o.Status != enum.OrderStatusWaiting && o.Status != enum.OrderStatusPreparing {
			continue
		}
		queue = append(queue, *cloneOrder(o))
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})
	return queue, nil
}

func (s *Store) UpdateOrder(ctx context.Context, branchID, orderID uuid.UUID, edit store.OrderEdit) (*store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.BranchID != branchID {
		return nil, store.ErrNotFound
	}
	if o.Status == enum.OrderStatusCancelled {
		return nil, store.ErrStatusConflict
	}

	byID := make(map[uuid.UUID]*store.OrderItem, len(o.Items))
	for i := range o.Items {
		byID[o.Items[i].ID] = &o.Items[i]
	}

	for _, change := range edit.Items {
		switch {
		case change.ID != nil:
			item, known := byID[*change.ID]
			if !known {
				return nil, fmt.Errorf("%w: unknown item %s", store.ErrInvalidOrder, *change.ID)
			}
			if change.Status == enum.ItemStatusCancelled {
				item.Status = enum.ItemStatusCancelled
				continue
			}
			if change.Quantity < 1 {
				return nil, fmt.Errorf("%w: quantity must be >= 1", store.ErrInvalidOrder)
			}
			item.Status = enum.ItemStatusActive
			item.Quantity = change.Quantity
		case change.Create != nil:
			created := *change.Create
			created.ID = uuid.New()
			created.Status = enum.ItemStatusActive
			o.Items = append(o.Items, created)
		default:
			return nil, fmt.Errorf("%w: item entry needs an id or a creation body", store.ErrInvalidOrder)
		}
	}

	active := 0
	for _, it := range o.Items {
		if it.Status == enum.ItemStatusActive {
			active++
		}
	}
	if active == 0 {
		return nil, fmt.Errorf("%w: edit would leave no active items", store.ErrInvalidOrder)
	}

	if edit.ServiceType != "" {
		o.ServiceType = edit.ServiceType
	}
	o.Comments = edit.Comments
	o.Total = o.ActiveTotal()
	// An edited completed order goes back onto the kitchen queue.
	if o.Status == enum.OrderStatusCompleted {
		o.Status = enum.OrderStatusPreparing
	}
	o.UpdatedAt = time.Now().UTC()
	return cloneOrder(o), nil
}

func (s *Store) TransitionOrder(ctx context.Context, branchID, orderID uuid.UUID, from, to enum.OrderStatus) (*store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.BranchID != branchID {
		return nil, store.ErrNotFound
	}
	if o.Status != from {
		return nil, store.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return cloneOrder(o), nil
}

func cloneOrder(o *store.Order) *store.Order {
	out := *o
	out.Items = make([]store.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	for i := range out.Items {
		if len(o.Items[i].Members) > 0 {
			out.Items[i].Members = append([]store.OrderItemMember(nil), o.Items[i].Members...)
		}
		if o.Items[i].Custom != nil {
			custom := *o.Items[i].Custom
			custom.IngredientIDs = append([]uuid.UUID(nil), o.Items[i].Custom.IngredientIDs...)
			out.Items[i].Custom = &custom
		}
	}
	out.Payments = append([]store.Payment(nil), o.Payments...)
	return &out
}
