package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/middleware"
	"github.com/marejada-pos/api/internal/store"
	"github.com/marejada-pos/api/internal/version"
	"github.com/shopspring/decimal"
)

// OrderStore defines the store methods needed by order handlers.
// Satisfied by the postgres and memory stores; narrow interface for
// testability.
type OrderStore interface {
	CreateOrder(ctx context.Context, order store.Order) (*store.Order, error)
	GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*store.Order, error)
	ListQueue(ctx context.Context, branchID uuid.UUID) ([]store.Order, error)
	UpdateOrder(ctx context.Context, branchID, orderID uuid.UUID, edit store.OrderEdit) (*store.Order, error)
	TransitionOrder(ctx context.Context, branchID, orderID uuid.UUID, from, to enum.OrderStatus) (*store.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store   OrderStore
	version version.Counter
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, counter version.Counter) *OrderHandler {
	return &OrderHandler{store: store, version: counter}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/queue", h.Queue)
	r.Get("/version", h.Version)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/transition", h.Transition)
}

// --- Request / Response types ---

type orderItemRequest struct {
	ID        *uuid.UUID         `json:"id"`
	Status    int                `json:"status"`
	CatalogID *uuid.UUID         `json:"catalog_id"`
	Kind      string             `json:"kind"`
	Name      string             `json:"name"`
	Category  string             `json:"category"`
	Size      string             `json:"size"`
	Quantity  int                `json:"quantity"`
	UnitPrice string             `json:"unit_price"`
	Addon     bool               `json:"addon"`
	Members   []memberRequest    `json:"members"`
	Custom    *customBodyRequest `json:"custom"`
}

type memberRequest struct {
	CatalogID uuid.UUID `json:"catalog_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

type customBodyRequest struct {
	Size          string      `json:"size"`
	IngredientIDs []uuid.UUID `json:"ingredient_ids"`
}

type paymentRequest struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type orderRequest struct {
	Total       string             `json:"total"`
	ServiceType string             `json:"service_type"`
	Comments    string             `json:"comments"`
	Items       []orderItemRequest `json:"items"`
	Payments    []paymentRequest   `json:"payments"`
}

type transitionRequest struct {
	Action string           `json:"action"`
	From   enum.OrderStatus `json:"from"`
}

type orderItemResponse struct {
	ID        uuid.UUID          `json:"id"`
	CatalogID uuid.UUID          `json:"catalog_id"`
	Name      string             `json:"name"`
	Category  string             `json:"category"`
	Size      string             `json:"size,omitempty"`
	Quantity  int                `json:"quantity"`
	UnitPrice string             `json:"unit_price"`
	Status    int                `json:"status"`
	Addon     bool               `json:"addon,omitempty"`
	Bundle    bool               `json:"bundle,omitempty"`
	Members   []memberRequest    `json:"members,omitempty"`
	Custom    *customBodyRequest `json:"custom,omitempty"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	Status      enum.OrderStatus    `json:"status"`
	ServiceType string              `json:"service_type"`
	Comments    string              `json:"comments,omitempty"`
	Total       string              `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []orderItemResponse `json:"items"`
}

type queueResponse struct {
	Orders  []orderResponse `json:"orders"`
	Version string          `json:"version"`
}

type versionResponse struct {
	Version string `json:"version"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ServiceType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	order := store.Order{
		BranchID:    branchID,
		ServiceType: req.ServiceType,
		Comments:    req.Comments,
		CreatedBy:   claims.UserID,
	}
	for i, it := range req.Items {
		item, err := itemFromRequest(it)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, err.Error())})
			return
		}
		order.Items = append(order.Items, *item)
	}
	for i, p := range req.Payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("payments[%d]: invalid amount", i)})
			return
		}
		order.Payments = append(order.Payments, store.Payment{Method: p.Method, Amount: amount})
	}

	created, err := h.store.CreateOrder(r.Context(), order)
	if err != nil {
		if errors.Is(err, store.ErrInvalidOrder) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.bumpVersion(r.Context(), branchID)
	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// Queue handles GET /branches/{bid}/orders/queue.
func (h *OrderHandler) Queue(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	orders, err := h.store.ListQueue(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list queue: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	token, err := h.version.Current(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: queue version: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := queueResponse{Orders: make([]orderResponse, len(orders)), Version: token}
	for i := range orders {
		resp.Orders[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Version handles GET /branches/{bid}/orders/version.
func (h *OrderHandler) Version(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	token, err := h.version.Current(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: queue version: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, versionResponse{Version: token})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), branchID, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Update handles PUT /branches/{bid}/orders/{id}. The body uses the same
// items[] shape as create: entries with an id are deltas against
// persisted items, entries without an id are new items.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	edit := store.OrderEdit{
		ServiceType: req.ServiceType,
		Comments:    req.Comments,
	}
	for i, it := range req.Items {
		if it.ID != nil {
			id := *it.ID
			edit.Items = append(edit.Items, store.ItemChange{
				ID:       &id,
				Status:   enum.ItemStatus(it.Status),
				Quantity: it.Quantity,
			})
			continue
		}
		item, err := itemFromRequest(it)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, err.Error())})
			return
		}
		edit.Items = append(edit.Items, store.ItemChange{Create: item})
	}

	updated, err := h.store.UpdateOrder(r.Context(), branchID, orderID, edit)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, store.ErrStatusConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order can no longer be edited"})
		case errors.Is(err, store.ErrInvalidOrder):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.bumpVersion(r.Context(), branchID)
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Transition handles PATCH /branches/{bid}/orders/{id}/transition. The
// request carries the status the terminal last observed; a mismatch with
// the stored status returns 409 and the terminal refetches.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	target, err := transitionTarget(req.Action, req.From)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.TransitionOrder(r.Context(), branchID, orderID, req.From, target)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, store.ErrStatusConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
		default:
			log.Printf("ERROR: transition order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.bumpVersion(r.Context(), branchID)
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// --- Helpers ---

func (h *OrderHandler) parseIDs(w http.ResponseWriter, r *http.Request) (branchID, orderID uuid.UUID, ok bool) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return branchID, orderID, true
}

// bumpVersion advances the branch queue token after a mutation. Failures
// are logged, not surfaced: the mutation itself already committed and
// terminals recover on the next successful poll cycle.
func (h *OrderHandler) bumpVersion(ctx context.Context, branchID uuid.UUID) {
	if err := h.version.Bump(ctx, branchID); err != nil {
		log.Printf("ERROR: bump queue version: %v", err)
	}
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func itemFromRequest(it orderItemRequest) (*store.OrderItem, error) {
	if it.Quantity <= 0 {
		return nil, errors.New("quantity must be > 0")
	}
	if it.Name == "" {
		return nil, errors.New("name is required")
	}
	price, err := decimal.NewFromString(it.UnitPrice)
	if err != nil {
		return nil, errors.New("invalid unit_price")
	}

	kind := enum.LineKind(it.Kind)
	switch kind {
	case enum.KindSimple, enum.KindPromoGroup, enum.KindBundle, enum.KindCustom:
	case "":
		kind = enum.KindSimple
	default:
		return nil, errors.New("invalid kind")
	}

	item := store.OrderItem{
		Kind:      kind,
		Name:      it.Name,
		Category:  it.Category,
		Size:      it.Size,
		Quantity:  it.Quantity,
		UnitPrice: price,
		Addon:     it.Addon,
		Bundle:    kind == enum.KindBundle,
	}
	if it.CatalogID != nil {
		item.CatalogID = *it.CatalogID
	}
	for _, m := range it.Members {
		item.Members = append(item.Members, store.OrderItemMember{
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Quantity:  m.Quantity,
		})
	}
	if it.Custom != nil {
		item.Custom = &store.CustomComposition{
			Size:          it.Custom.Size,
			IngredientIDs: it.Custom.IngredientIDs,
		}
	}
	return &item, nil
}

// transitionTarget maps a transition action and the observed status to
// the resulting status.
func transitionTarget(action string, from enum.OrderStatus) (enum.OrderStatus, error) {
	switch action {
	case "TOGGLE":
		switch from {
		case enum.OrderStatusWaiting:
			return enum.OrderStatusPreparing, nil
		case enum.OrderStatusPreparing:
			return enum.OrderStatusWaiting, nil
		}
	case "COMPLETE":
		if from == enum.OrderStatusPreparing {
			return enum.OrderStatusCompleted, nil
		}
	case "CANCEL":
		if from == enum.OrderStatusWaiting || from == enum.OrderStatusPreparing {
			return enum.OrderStatusCancelled, nil
		}
	default:
		return 0, fmt.Errorf("unknown action %q", action)
	}
	return 0, fmt.Errorf("cannot %s from %s", action, from)
}

func toOrderResponse(o *store.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		ServiceType: o.ServiceType,
		Comments:    o.Comments,
		Total:       o.Total.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		Items:       make([]orderItemResponse, len(o.Items)),
	}
	for i, it := range o.Items {
		item := orderItemResponse{
			ID:        it.ID,
			CatalogID: it.CatalogID,
			Name:      it.Name,
			Category:  it.Category,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Status:    int(it.Status),
			Addon:     it.Addon,
			Bundle:    it.Bundle,
		}
		for _, m := range it.Members {
			item.Members = append(item.Members, memberRequest{
				CatalogID: m.CatalogID,
				Name:      m.Name,
				Quantity:  m.Quantity,
			})
		}
		if it.Custom != nil {
			item.Custom = &customBodyRequest{
				Size:          it.Custom.Size,
				IngredientIDs: it.Custom.IngredientIDs,
			}
		}
		resp.Items[i] = item
	}
	return resp
}
