package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// InvoiceServicer defines the coordinator methods needed by invoice handlers.
// Satisfied by *service.Coordinator; narrow interface for testability.
type InvoiceServicer interface {
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (database.Invoice, error)
	ListInvoices(ctx context.Context, f service.InvoiceFilter) ([]database.Invoice, error)
	SendInvoiceForCollection(ctx context.Context, a service.Actor, invoiceID uuid.UUID) (database.Invoice, error)
	PayInvoice(ctx context.Context, a service.Actor, invoiceID uuid.UUID, method string) (database.Invoice, error)
	CancelInvoice(ctx context.Context, a service.Actor, invoiceID uuid.UUID, reason string) (database.Invoice, database.InvoiceCancellation, error)
	GetInvoiceCancellation(ctx context.Context, invoiceID uuid.UUID) (database.InvoiceCancellation, error)
}

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	svc InvoiceServicer
}

func NewInvoiceHandler(svc InvoiceServicer) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// RegisterRoutes registers invoice endpoints. Mounted at /invoices.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/send", h.Send)
	r.Post("/{id}/pay", h.Pay)
	r.Post("/{id}/cancel", h.Cancel)
	r.Get("/{id}/cancellation", h.Cancellation)
}

// --- Request / Response types ---

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type invoiceResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	TableID       int32      `json:"table_id"`
	Subtotal      string     `json:"subtotal"`
	Tax           string     `json:"tax"`
	Tip           string     `json:"tip"`
	Total         string     `json:"total"`
	PaymentMethod *string    `json:"payment_method"`
	Status        string     `json:"status"`
	CancelReason  *string    `json:"cancel_reason"`
	CreatedAt     time.Time  `json:"created_at"`
	SentAt        *time.Time `json:"sent_at"`
	PaidAt        *time.Time `json:"paid_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
}

type cancellationResponse struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	Reason      string    `json:"reason"`
	Subtotal    string    `json:"subtotal"`
	Tax         string    `json:"tax"`
	Tip         string    `json:"tip"`
	Total       string    `json:"total"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// --- Handlers ---

// List handles GET /invoices?status=&from=&to=. Dates are YYYY-MM-DD and the
// to date is inclusive.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.InvoiceFilter{Status: q.Get("status")}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date, expected YYYY-MM-DD"})
			return
		}
		f.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date, expected YYYY-MM-DD"})
			return
		}
		to = to.AddDate(0, 0, 1)
		f.To = &to
	}

	invoices, err := h.svc.ListInvoices(r.Context(), f)
	if err != nil {
		writeServiceError(w, "list invoices", err)
		return
	}
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toInvoiceResponse(inv)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "invoice ID")
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

// Send handles POST /invoices/{id}/send.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "invoice ID")
	if !ok {
		return
	}
	inv, err := h.svc.SendInvoiceForCollection(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "send invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

// Pay handles POST /invoices/{id}/pay.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "invoice ID")
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	inv, err := h.svc.PayInvoice(r.Context(), actor, id, req.PaymentMethod)
	if err != nil {
		writeServiceError(w, "pay invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

// Cancel handles POST /invoices/{id}/cancel and returns the invoice together
// with the cancellation record.
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "invoice ID")
	if !ok {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	inv, rec, err := h.svc.CancelInvoice(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeServiceError(w, "cancel invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice":      toInvoiceResponse(inv),
		"cancellation": toCancellationResponse(rec),
	})
}

// Cancellation handles GET /invoices/{id}/cancellation.
func (h *InvoiceHandler) Cancellation(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "invoice ID")
	if !ok {
		return
	}
	rec, err := h.svc.GetInvoiceCancellation(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get invoice cancellation", err)
		return
	}
	writeJSON(w, http.StatusOK, toCancellationResponse(rec))
}

func toInvoiceResponse(inv database.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		OrderID:       inv.OrderID,
		TableID:       inv.TableID,
		Subtotal:      inv.Subtotal.StringFixed(2),
		Tax:           inv.Tax.StringFixed(2),
		Tip:           inv.Tip.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		PaymentMethod: textPtr(inv.PaymentMethod),
		Status:        inv.Status,
		CancelReason:  textPtr(inv.CancelReason),
		CreatedAt:     inv.CreatedAt,
	}
	if inv.SentAt.Valid {
		t := inv.SentAt.Time
		resp.SentAt = &t
	}
	if inv.PaidAt.Valid {
		t := inv.PaidAt.Time
		resp.PaidAt = &t
	}
	if inv.CancelledAt.Valid {
		t := inv.CancelledAt.Time
		resp.CancelledAt = &t
	}
	return resp
}

func toCancellationResponse(c database.InvoiceCancellation) cancellationResponse {
	return cancellationResponse{
		ID:          c.ID,
		InvoiceID:   c.InvoiceID,
		Reason:      c.Reason,
		Subtotal:    c.Subtotal.StringFixed(2),
		Tax:         c.Tax.StringFixed(2),
		Tip:         c.Tip.StringFixed(2),
		Total:       c.Total.StringFixed(2),
		CancelledBy: c.CancelledBy,
		CancelledAt: c.CancelledAt,
	}
}
