// Package kitchen keeps a terminal's view of the shared order queue in
// sync with the backend. Change detection is polling-based: a lightweight
// version token is fetched on a fixed interval and a full refetch happens
// only when it changes. User-driven status transitions apply optimistically
// and roll back if the backend rejects them. Last writer wins across
// terminals; no client-side merge is attempted.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/client"
	"github.com/marejada-pos/api/internal/enum"
)

// Errors returned by transition calls.
var (
	ErrOrderNotFound      = errors.New("order not in local queue")
	ErrInvalidTransition  = errors.New("transition not allowed from current status")
	ErrTransitionInFlight = errors.New("another transition is pending for this order")
)

// API is the backend surface the sync client needs. Satisfied by
// *client.Client.
type API interface {
	QueueVersion(ctx context.Context, branchID uuid.UUID) (string, error)
	Queue(ctx context.Context, branchID uuid.UUID) ([]client.KitchenOrder, string, error)
	Transition(ctx context.Context, branchID, orderID uuid.UUID, req client.TransitionRequest) error
}

// pendingTransition guards an optimistic change awaiting confirmation.
// Poll data that still reports the prior status for this order is stale
// and must not clobber the optimistic status.
type pendingTransition struct {
	prior enum.OrderStatus
	next  enum.OrderStatus
}

// SyncClient maintains the local copy of one branch's kitchen queue.
type SyncClient struct {
	api      API
	branchID uuid.UUID
	interval time.Duration

	// OnReplace, when set, is called with the new queue after each
	// poll-driven replacement.
	OnReplace func(orders []client.KitchenOrder)

	mu          sync.Mutex
	orders      []client.KitchenOrder
	lastVersion string
	pending     map[uuid.UUID]pendingTransition
	refetches   int
}

// NewSyncClient creates a sync client for one branch.
func NewSyncClient(api API, branchID uuid.UUID, interval time.Duration) *SyncClient {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &SyncClient{
		api:      api,
		branchID: branchID,
		interval: interval,
		pending:  make(map[uuid.UUID]pendingTransition),
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried
// on the next tick; they are never surfaced as fatal.
func (c *SyncClient) Run(ctx context.Context) {
	c.Poll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll performs one version check, refetching the queue only when the
// token changed since the last poll.
func (c *SyncClient) Poll(ctx context.Context) {
	version, err := c.api.QueueVersion(ctx, c.branchID)
	if err != nil {
		log.Printf("ERROR: poll queue version: %v", err)
		return
	}

	c.mu.Lock()
	unchanged := version == c.lastVersion
	c.mu.Unlock()
	if unchanged {
		return
	}

	orders, fetchedVersion, err := c.api.Queue(ctx, c.branchID)
	if err != nil {
		log.Printf("ERROR: refetch queue: %v", err)
		return
	}
	if fetchedVersion == "" {
		fetchedVersion = version
	}
	c.replace(orders, fetchedVersion)
}

// replace installs a fresh authoritative queue, preserving optimistic
// statuses whose confirmation is still in flight.
func (c *SyncClient) replace(orders []client.KitchenOrder, version string) {
	c.mu.Lock()
	for i := range orders {
		if p, ok := c.pending[orders[i].ID]; ok && orders[i].Status == p.prior {
			// Stale snapshot for this order; keep the optimistic status.
			orders[i].Status = p.next
		}
	}
	c.orders = orders
	c.lastVersion = version
	c.refetches++
	cb := c.OnReplace
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Orders returns the local queue sorted oldest first.
func (c *SyncClient) Orders() []client.KitchenOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Version returns the last seen queue version token.
func (c *SyncClient) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastVersion
}

// Refetches returns how many full queue refetches have happened.
func (c *SyncClient) Refetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refetches
}

// Toggle flips an order between waiting and preparing.
func (c *SyncClient) Toggle(ctx context.Context, orderID uuid.UUID) error {
	return c.transition(ctx, orderID, client.ActionToggle, func(prior enum.OrderStatus) (enum.OrderStatus, error) {
		switch prior {
		case enum.OrderStatusWaiting:
			return enum.OrderStatusPreparing, nil
		case enum.OrderStatusPreparing:
			return enum.OrderStatusWaiting, nil
		}
		return 0, ErrInvalidTransition
	})
}

// Complete advances a preparing order to completed.
func (c *SyncClient) Complete(ctx context.Context, orderID uuid.UUID) error {
	return c.transition(ctx, orderID, client.ActionComplete, func(prior enum.OrderStatus) (enum.OrderStatus, error) {
		if prior != enum.OrderStatusPreparing {
			return 0, ErrInvalidTransition
		}
		return enum.OrderStatusCompleted, nil
	})
}

// Cancel cancels a waiting or preparing order.
func (c *SyncClient) Cancel(ctx context.Context, orderID uuid.UUID) error {
	return c.transition(ctx, orderID, client.ActionCancel, func(prior enum.OrderStatus) (enum.OrderStatus, error) {
		if prior != enum.OrderStatusWaiting && prior != enum.OrderStatusPreparing {
			return 0, ErrInvalidTransition
		}
		return enum.OrderStatusCancelled, nil
	})
}

// transition runs the optimistic command: capture prior state, apply the
// local change, issue the request, and on failure replay the prior state.
func (c *SyncClient) transition(ctx context.Context, orderID uuid.UUID, action string, next func(enum.OrderStatus) (enum.OrderStatus, error)) error {
	c.mu.Lock()
	idx := c.indexLocked(orderID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrOrderNotFound
	}
	if _, busy := c.pending[orderID]; busy {
		c.mu.Unlock()
		return ErrTransitionInFlight
	}
	prior := c.orders[idx].Status
	target, err := next(prior)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", err, prior)
	}
	c.orders[idx].Status = target
	c.pending[orderID] = pendingTransition{prior: prior, next: target}
	c.mu.Unlock()

	reqErr := c.api.Transition(ctx, c.branchID, orderID, client.TransitionRequest{
		Action: action,
		From:   prior,
	})

	c.mu.Lock()
	delete(c.pending, orderID)
	if reqErr != nil {
		if i := c.indexLocked(orderID); i >= 0 && c.orders[i].Status == target {
			c.orders[i].Status = prior
		}
		c.mu.Unlock()
		return fmt.Errorf("transition %s: %w", action, reqErr)
	}
	c.mu.Unlock()

	// The mutation advanced the shared version; adopt it so the next poll
	// does not refetch a state we already hold.
	if version, err := c.api.QueueVersion(ctx, c.branchID); err == nil {
		c.mu.Lock()
		c.lastVersion = version
		c.mu.Unlock()
	}
	return nil
}

func (c *SyncClient) indexLocked(orderID uuid.UUID) int {
	for i := range c.orders {
		if c.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (c *SyncClient) snapshotLocked() []client.KitchenOrder {
	out := make([]client.KitchenOrder, len(c.orders))
	copy(out, c.orders)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
