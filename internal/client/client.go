// Package client talks JSON-over-HTTP to the POS backend. Every backend
// call the terminal core depends on goes through here; the wire shapes
// are treated as opaque by everything above it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/catalog"
	"github.com/shopspring/decimal"
)

// APIError is a non-success response from the backend, carrying the
// human-readable reason when the backend supplied one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend: HTTP %d", e.StatusCode)
}

// Client is the terminal-side backend client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for the given base URL and bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Catalog fetches the full branch catalog snapshot.
func (c *Client) Catalog(ctx context.Context, branchID uuid.UUID) ([]catalog.Item, error) {
	var resp catalogResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/branches/%s/catalog", branchID), nil, &resp); err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(resp.Items))
	for _, e := range resp.Items {
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog item %s: bad price %q", e.ID, e.Price)
		}
		items = append(items, catalog.Item{
			ID:        e.ID,
			Name:      e.Name,
			Category:  e.Category,
			Size:      e.Size,
			BasePrice: price,
			Addon:     e.Addon,
			Bundle:    e.Bundle,
		})
	}
	return items, nil
}

// CatalogSource adapts the client to the price book's Source interface
// for a fixed branch.
func (c *Client) CatalogSource(branchID uuid.UUID) catalog.Source {
	return catalogSource{client: c, branchID: branchID}
}

type catalogSource struct {
	client   *Client
	branchID uuid.UUID
}

func (s catalogSource) Fetch(ctx context.Context) ([]catalog.Item, error) {
	return s.client.Catalog(ctx, s.branchID)
}

// QueueVersion fetches the branch queue version token.
func (c *Client) QueueVersion(ctx context.Context, branchID uuid.UUID) (string, error) {
	var resp VersionResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/branches/%s/orders/version", branchID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// Queue fetches the full active kitchen queue for a branch.
func (c *Client) Queue(ctx context.Context, branchID uuid.UUID) ([]KitchenOrder, string, error) {
	var resp queueResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/branches/%s/orders/queue", branchID), nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Orders, resp.Version, nil
}

// GetOrder fetches one order with its items, for the edit-order flow.
func (c *Client) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*KitchenOrder, error) {
	var resp KitchenOrder
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/branches/%s/orders/%s", branchID, orderID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, branchID uuid.UUID, req OrderRequest) (*KitchenOrder, error) {
	var resp KitchenOrder
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/branches/%s/orders", branchID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateOrder submits an edited order's change-set payload.
func (c *Client) UpdateOrder(ctx context.Context, branchID, orderID uuid.UUID, req OrderRequest) (*KitchenOrder, error) {
	var resp KitchenOrder
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/branches/%s/orders/%s", branchID, orderID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transition applies a kitchen state transition to one order.
func (c *Client) Transition(ctx context.Context, branchID, orderID uuid.UUID, req TransitionRequest) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/branches/%s/orders/%s/transition", branchID, orderID), req, nil)
}

// do performs one request, encoding body as JSON when present and
// decoding the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}

// IsConflict reports whether err is a backend 409, the signal that the
// order changed under the caller and should be re-synced.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}
