// Package version maintains the per-branch queue version token polled by
// kitchen terminals. The token is opaque to clients; only equality
// matters. Every order mutation bumps it.
package version

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Counter tracks one monotonically advancing token per branch.
type Counter interface {
	// Bump advances the branch's token.
	Bump(ctx context.Context, branchID uuid.UUID) error
	// Current returns the branch's token. A branch that was never bumped
	// reports "0".
	Current(ctx context.Context, branchID uuid.UUID) (string, error)
}

// MemoryCounter is an in-process Counter for single-instance deployments
// and tests.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]uint64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[uuid.UUID]uint64)}
}

func (c *MemoryCounter) Bump(ctx context.Context, branchID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[branchID]++
	return nil
}

func (c *MemoryCounter) Current(ctx context.Context, branchID uuid.UUID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.FormatUint(c.counts[branchID], 10), nil
}
