package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the coordinator methods needed by order handlers.
// Satisfied by *service.Coordinator; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, a service.Actor, req service.PlaceOrderRequest) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, f service.OrderFilter) ([]database.Order, error)
	KitchenQueue(ctx context.Context) ([]service.QueuedOrder, error)
	AssignCook(ctx context.Context, a service.Actor, orderID, cookID uuid.UUID) (database.Order, error)
	UnassignCook(ctx context.Context, a service.Actor, orderID uuid.UUID) (database.Order, error)
	AdvanceOrder(ctx context.Context, a service.Actor, orderID uuid.UUID, target string) (database.Order, error)
	CancelOrder(ctx context.Context, a service.Actor, orderID uuid.UUID, reason string) (database.Order, error)
	CancelOrderItem(ctx context.Context, a service.Actor, orderID, itemID uuid.UUID) (*service.OrderDetail, error)
	GenerateInvoice(ctx context.Context, a service.Actor, orderID uuid.UUID) (database.Invoice, error)
}

// OrderHandler handles order and kitchen endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints. Mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/kitchen-queue", h.KitchenQueue)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/cook", h.AssignCook)
	r.Delete("/{id}/cook", h.UnassignCook)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Delete("/{id}/items/{itemID}", h.CancelItem)
	r.Post("/{id}/invoice", h.GenerateInvoice)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID    int32                    `json:"table_id"`
	CustomerID string                   `json:"customer_id"`
	Notes      string                   `json:"notes"`
	Tip        string                   `json:"tip"`
	Items      []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type assignCookRequest struct {
	CookID string `json:"cook_id"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID               uuid.UUID  `json:"id"`
	TableID          int32      `json:"table_id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	WaiterID         *uuid.UUID `json:"waiter_id"`
	CookID           *uuid.UUID `json:"cook_id"`
	Status           string     `json:"status"`
	Subtotal         string     `json:"subtotal"`
	Tip              string     `json:"tip"`
	Total            string     `json:"total"`
	EstimatedMinutes int32      `json:"estimated_minutes"`
	Notes            *string    `json:"notes"`
	CancelReason     *string    `json:"cancel_reason"`
	InvoiceID        *uuid.UUID `json:"invoice_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	LineNo      int32     `json:"line_no"`
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
	Notes       *string   `json:"notes"`
	IsCancelled bool      `json:"is_cancelled"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

type queuedOrderResponse struct {
	orderResponse
	WaitMinutes int    `json:"wait_minutes"`
	Priority    string `json:"priority"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TableID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	in := service.PlaceOrderRequest{
		TableID: req.TableID,
		Notes:   req.Notes,
		Tip:     decimal.Zero,
	}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return
		}
		in.CustomerID = id
	}
	if req.Tip != "" {
		tip, err := decimal.NewFromString(req.Tip)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tip"})
			return
		}
		in.Tip = tip
	}
	for i, item := range req.Items {
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items[" + strconv.Itoa(i) + "]: invalid menu_item_id"})
			return
		}
		in.Items = append(in.Items, service.OrderLine{MenuItemID: id, Quantity: item.Quantity, Notes: item.Notes})
	}

	d, err := h.svc.PlaceOrder(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDetailResponse(d))
}

// List handles GET /orders?table_id=&status=&cook_id=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.OrderFilter{Status: q.Get("status")}
	if v := q.Get("table_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		tableID := int32(id)
		f.TableID = &tableID
	}
	if v := q.Get("cook_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cook_id"})
			return
		}
		f.CookID = &id
	}

	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// KitchenQueue handles GET /orders/kitchen-queue.
func (h *OrderHandler) KitchenQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.KitchenQueue(r.Context())
	if err != nil {
		writeServiceError(w, "kitchen queue", err)
		return
	}
	resp := make([]queuedOrderResponse, len(queue))
	for i, q := range queue {
		resp[i] = queuedOrderResponse{
			orderResponse: toOrderResponse(q.Order),
			WaitMinutes:   q.WaitMinutes,
			Priority:      q.Priority,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	d, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(d))
}

// AssignCook handles PUT /orders/{id}/cook. An empty cook_id assigns the
// caller.
func (h *OrderHandler) AssignCook(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req assignCookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	cookID := actor.ID
	if req.CookID != "" {
		parsed, err := uuid.Parse(req.CookID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cook_id"})
			return
		}
		cookID = parsed
	}

	o, err := h.svc.AssignCook(r.Context(), actor, id, cookID)
	if err != nil {
		writeServiceError(w, "assign cook", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UnassignCook handles DELETE /orders/{id}/cook.
func (h *OrderHandler) UnassignCook(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	o, err := h.svc.UnassignCook(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "unassign cook", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	o, err := h.svc.AdvanceOrder(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, err := h.svc.CancelOrder(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelItem handles DELETE /orders/{id}/items/{itemID}.
func (h *OrderHandler) CancelItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID", "item ID")
	if !ok {
		return
	}

	d, err := h.svc.CancelOrderItem(r.Context(), actor, id, itemID)
	if err != nil {
		writeServiceError(w, "cancel order item", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(d))
}

// GenerateInvoice handles POST /orders/{id}/invoice.
func (h *OrderHandler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	inv, err := h.svc.GenerateInvoice(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "generate invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

// --- Response mapping ---

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		TableID:          o.TableID,
		CustomerID:       o.CustomerID,
		WaiterID:         uuidPtr(o.WaiterID),
		CookID:           uuidPtr(o.CookID),
		Status:           o.Status,
		Subtotal:         o.Subtotal.StringFixed(2),
		Tip:              o.Tip.StringFixed(2),
		Total:            o.Total.StringFixed(2),
		EstimatedMinutes: o.EstimatedMinutes,
		Notes:            textPtr(o.Notes),
		CancelReason:     textPtr(o.CancelReason),
		InvoiceID:        uuidPtr(o.InvoiceID),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toOrderDetailResponse(d *service.OrderDetail) orderDetailResponse {
	items := make([]orderItemResponse, len(d.Items))
	for i, it := range d.Items {
		items[i] = orderItemResponse{
			ID:          it.ID,
			LineNo:      it.LineNo,
			MenuItemID:  it.MenuItemID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal.StringFixed(2),
			Notes:       textPtr(it.Notes),
			IsCancelled: it.IsCancelled,
		}
	}
	return orderDetailResponse{orderResponse: toOrderResponse(d.Order), Items: items}
}
