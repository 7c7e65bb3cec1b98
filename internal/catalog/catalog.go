package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the price book.
var ErrItemNotFound = errors.New("catalog item not found")

// Item is one price-book entry. Items are immutable once fetched; the
// snapshot is replaced wholesale on refresh, never patched in place.
type Item struct {
	ID        uuid.UUID
	Name      string
	Category  string
	Size      string
	BasePrice decimal.Decimal
	Addon     bool
	Bundle    bool
}

// Source fetches a full catalog snapshot from the backend.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// PriceBook is a read-through cache over a catalog Source. A snapshot is
// refreshed at most once per TTL or on explicit invalidation. If a refresh
// fails and a previous snapshot exists, the stale snapshot is served so the
// terminal can keep selling.
type PriceBook struct {
	source Source
	ttl    time.Duration

	mu        sync.Mutex
	items     []Item
	byID      map[uuid.UUID]Item
	fetchedAt time.Time
}

// NewPriceBook creates a PriceBook over the given source.
func NewPriceBook(source Source, ttl time.Duration) *PriceBook {
	return &PriceBook{source: source, ttl: ttl}
}

// GetOrRefresh returns the current snapshot, refreshing it first if the TTL
// has elapsed or no snapshot has been loaded yet.
func (pb *PriceBook) GetOrRefresh(ctx context.Context) ([]Item, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.fresh() {
		return pb.items, nil
	}

	items, err := pb.source.Fetch(ctx)
	if err != nil {
		if pb.items != nil {
			// Stale but serviceable; retry on the next call past TTL.
			return pb.items, nil
		}
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if len(items) == 0 && pb.items != nil {
		return pb.items, nil
	}

	pb.replace(items)
	return pb.items, nil
}

// Lookup returns a single item by id, refreshing the snapshot if needed.
func (pb *PriceBook) Lookup(ctx context.Context, id uuid.UUID) (Item, error) {
	if _, err := pb.GetOrRefresh(ctx); err != nil {
		return Item{}, err
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	item, ok := pb.byID[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

// ByCategory returns the cached items in the given category.
func (pb *PriceBook) ByCategory(ctx context.Context, category string) ([]Item, error) {
	items, err := pb.GetOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

// Invalidate discards the current snapshot so the next read refetches.
func (pb *PriceBook) Invalidate() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.items = nil
	pb.byID = nil
	pb.fetchedAt = time.Time{}
}

func (pb *PriceBook) fresh() bool {
	return pb.items != nil && time.Since(pb.fetchedAt) < pb.ttl
}

func (pb *PriceBook) replace(items []Item) {
	byID := make(map[uuid.UUID]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	pb.items = items
	pb.byID = byID
	pb.fetchedAt = time.Now()
}
