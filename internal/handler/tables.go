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

// TableServicer defines the coordinator methods needed by table handlers.
// Satisfied by *service.Coordinator; narrow interface for testability.
type TableServicer interface {
	ListTables(ctx context.Context, status, zone string) ([]database.DiningTable, error)
	GetTable(ctx context.Context, tableID int32) (database.DiningTable, error)
	OccupyTable(ctx context.Context, a service.Actor, tableID int32) (database.DiningTable, error)
	ReleaseTable(ctx context.Context, a service.Actor, tableID int32) (database.DiningTable, error)
	SetTableStatus(ctx context.Context, a service.Actor, tableID int32, status string) (database.DiningTable, error)
	AssignWaiter(ctx context.Context, a service.Actor, tableID int32, waiterID uuid.UUID) (database.DiningTable, error)
}

// TableHandler handles table occupancy endpoints.
type TableHandler struct {
	svc TableServicer
}

func NewTableHandler(svc TableServicer) *TableHandler {
	return &TableHandler{svc: svc}
}

// RegisterRoutes registers table endpoints. Mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/occupy", h.Occupy)
	r.Post("/{id}/release", h.Release)
	r.Patch("/{id}/status", h.SetStatus)
	r.Put("/{id}/waiter", h.AssignWaiter)
}

// --- Request / Response types ---

type tableResponse struct {
	ID            int32      `json:"id"`
	Capacity      int32      `json:"capacity"`
	Zone          string     `json:"zone"`
	Status        string     `json:"status"`
	WaiterID      *uuid.UUID `json:"waiter_id"`
	OccupiedSince *time.Time `json:"occupied_since"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type tableStatusRequest struct {
	Status string `json:"status"`
}

type assignWaiterRequest struct {
	WaiterID string `json:"waiter_id"`
}

// --- Handlers ---

// List handles GET /tables?status=&zone=.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tables, err := h.svc.ListTables(r.Context(), q.Get("status"), q.Get("zone"))
	if err != nil {
		writeServiceError(w, "list tables", err)
		return
	}
	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := tableParam(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTable(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// Occupy handles POST /tables/{id}/occupy.
func (h *TableHandler) Occupy(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "occupy table", h.svc.OccupyTable)
}

// Release handles POST /tables/{id}/release.
func (h *TableHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "release table", h.svc.ReleaseTable)
}

func (h *TableHandler) act(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, service.Actor, int32) (database.DiningTable, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := tableParam(w, r)
	if !ok {
		return
	}
	t, err := fn(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// SetStatus handles PATCH /tables/{id}/status.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := tableParam(w, r)
	if !ok {
		return
	}

	var req tableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	t, err := h.svc.SetTableStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, "set table status", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// AssignWaiter handles PUT /tables/{id}/waiter.
func (h *TableHandler) AssignWaiter(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := tableParam(w, r)
	if !ok {
		return
	}

	var req assignWaiterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	// an empty waiter_id means "me"
	waiterID := actor.ID
	if req.WaiterID != "" {
		parsed, err := uuid.Parse(req.WaiterID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid waiter_id"})
			return
		}
		waiterID = parsed
	}

	t, err := h.svc.AssignWaiter(r.Context(), actor, id, waiterID)
	if err != nil {
		writeServiceError(w, "assign waiter", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

func toTableResponse(t database.DiningTable) tableResponse {
	resp := tableResponse{
		ID:        t.ID,
		Capacity:  t.Capacity,
		Zone:      t.Zone,
		Status:    t.Status,
		WaiterID:  uuidPtr(t.WaiterID),
		UpdatedAt: t.UpdatedAt,
	}
	if t.OccupiedSince.Valid {
		since := t.OccupiedSince.Time
		resp.OccupiedSince = &since
	}
	return resp
}
