package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// mockSource implements Source with configurable behavior.
type mockSource struct {
	fetchFn func(ctx context.Context) ([]Item, error)
	calls   int
}

func (m *mockSource) Fetch(ctx context.Context) ([]Item, error) {
	m.calls++
	return m.fetchFn(ctx)
}

func snapshot() []Item {
	return []Item{
		{ID: uuid.New(), Name: "Pepperoni", Category: enum.CategoryPizza, Size: enum.SizeLarge, BasePrice: decimal.RequireFromString("120")},
		{ID: uuid.New(), Name: "Limonada", Category: enum.CategoryDrink, BasePrice: decimal.RequireFromString("25")},
	}
}

func TestGetOrRefresh_FetchesOncePerTTL(t *testing.T) {
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) { return snapshot(), nil }}
	pb := NewPriceBook(src, time.Hour)

	for i := 0; i < 4; i++ {
		items, err := pb.GetOrRefresh(context.Background())
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("items = %d, want 2", len(items))
		}
	}
	if src.calls != 1 {
		t.Fatalf("source fetches = %d, want 1", src.calls)
	}
}

func TestGetOrRefresh_ExpiredTTLRefetches(t *testing.T) {
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) { return snapshot(), nil }}
	pb := NewPriceBook(src, time.Nanosecond)

	pb.GetOrRefresh(context.Background())
	time.Sleep(time.Millisecond)
	pb.GetOrRefresh(context.Background())

	if src.calls != 2 {
		t.Fatalf("source fetches = %d, want 2", src.calls)
	}
}

func TestGetOrRefresh_ServesStaleOnFetchFailure(t *testing.T) {
	healthy := true
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) {
		if healthy {
			return snapshot(), nil
		}
		return nil, errors.New("backend unreachable")
	}}
	pb := NewPriceBook(src, time.Nanosecond)

	first, err := pb.GetOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	healthy = false
	time.Sleep(time.Millisecond)
	stale, err := pb.GetOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("stale read must not fail while a snapshot exists: %v", err)
	}
	if len(stale) != len(first) {
		t.Fatalf("stale snapshot lost items")
	}
}

func TestGetOrRefresh_FailsWithNoSnapshot(t *testing.T) {
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) {
		return nil, errors.New("backend unreachable")
	}}
	pb := NewPriceBook(src, time.Hour)

	if _, err := pb.GetOrRefresh(context.Background()); err == nil {
		t.Fatal("expected error with no cached snapshot")
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) { return snapshot(), nil }}
	pb := NewPriceBook(src, time.Hour)

	pb.GetOrRefresh(context.Background())
	pb.Invalidate()
	pb.GetOrRefresh(context.Background())

	if src.calls != 2 {
		t.Fatalf("source fetches = %d, want 2 after invalidation", src.calls)
	}
}

func TestLookup(t *testing.T) {
	items := snapshot()
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) { return items, nil }}
	pb := NewPriceBook(src, time.Hour)

	got, err := pb.Lookup(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Name != "Pepperoni" {
		t.Fatalf("name = %s", got.Name)
	}

	if _, err := pb.Lookup(context.Background(), uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestByCategory(t *testing.T) {
	src := &mockSource{fetchFn: func(context.Context) ([]Item, error) { return snapshot(), nil }}
	pb := NewPriceBook(src, time.Hour)

	pizzas, err := pb.ByCategory(context.Background(), enum.CategoryPizza)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(pizzas) != 1 || pizzas[0].Name != "Pepperoni" {
		t.Fatalf("pizzas = %+v", pizzas)
	}
}
