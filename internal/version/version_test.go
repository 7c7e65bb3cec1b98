package version

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryCounter_StartsAtZero(t *testing.T) {
	c := NewMemoryCounter()
	got, err := c.Current(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if got != "0" {
		t.Fatalf("token = %q, want 0", got)
	}
}

func TestMemoryCounter_BumpChangesToken(t *testing.T) {
	c := NewMemoryCounter()
	branchID := uuid.New()

	before, _ := c.Current(context.Background(), branchID)
	if err := c.Bump(context.Background(), branchID); err != nil {
		t.Fatalf("bump: %v", err)
	}
	after, _ := c.Current(context.Background(), branchID)
	if before == after {
		t.Fatalf("token unchanged after bump: %q", after)
	}
}

func TestMemoryCounter_BranchesIndependent(t *testing.T) {
	c := NewMemoryCounter()
	a := uuid.New()
	b := uuid.New()

	c.Bump(context.Background(), a)
	tokenB, _ := c.Current(context.Background(), b)
	if tokenB != "0" {
		t.Fatalf("bump leaked across branches: %q", tokenB)
	}
}

func TestMemoryCounter_ConcurrentBumps(t *testing.T) {
	c := NewMemoryCounter()
	branchID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Bump(context.Background(), branchID)
		}()
	}
	wg.Wait()

	got, _ := c.Current(context.Background(), branchID)
	if got != "50" {
		t.Fatalf("token = %q, want 50", got)
	}
}
