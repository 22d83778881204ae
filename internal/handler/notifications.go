package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// NotificationServicer defines the coordinator methods needed by
// notification handlers. Satisfied by *service.Coordinator; narrow interface
// for testability.
type NotificationServicer interface {
	Inbox(ctx context.Context, a service.Actor, unreadOnly bool) ([]database.Notification, error)
	UnreadCount(ctx context.Context, a service.Actor, f service.UnreadFilter) (int64, error)
	MarkRead(ctx context.Context, a service.Actor, notificationID uuid.UUID) (database.Notification, error)
	Clear(ctx context.Context, a service.Actor) (int64, error)
	SendNotification(ctx context.Context, a service.Actor, req service.SendRequest) ([]database.Notification, error)
}

// NotificationHandler handles inbox endpoints.
type NotificationHandler struct {
	svc NotificationServicer
}

func NewNotificationHandler(svc NotificationServicer) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// RegisterRoutes registers notification endpoints. Mounted at /notifications.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Patch("/{id}/read", h.MarkRead)
	r.Delete("/", h.Clear)
	r.Post("/", h.Send)
}

// --- Request / Response types ---

type sendNotificationRequest struct {
	RecipientID string         `json:"recipient_id"`
	Shift       string         `json:"shift"`
	Roles       []string       `json:"roles"`
	TableID     *int32         `json:"table_id"`
	Category    string         `json:"category"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Priority    string         `json:"priority"`
	Payload     map[string]any `json:"payload"`
}

type notificationResponse struct {
	ID          uuid.UUID       `json:"id"`
	RecipientID *uuid.UUID      `json:"recipient_id"`
	TableID     *int32          `json:"table_id"`
	Shift       *string         `json:"shift"`
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Priority    string          `json:"priority"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
	ReadAt      *time.Time      `json:"read_at"`
}

// --- Handlers ---

// List handles GET /notifications?unread=true.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	unread := r.URL.Query().Get("unread") == "true"

	ns, err := h.svc.Inbox(r.Context(), actor, unread)
	if err != nil {
		writeServiceError(w, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponses(ns))
}

// UnreadCount handles GET /notifications/unread-count?table_id=&shift=.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := service.UnreadFilter{Shift: q.Get("shift")}
	if v := q.Get("table_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		tableID := int32(id)
		f.TableID = &tableID
	}

	n, err := h.svc.UnreadCount(r.Context(), actor, f)
	if err != nil {
		writeServiceError(w, "count unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "notification ID")
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

// Clear handles DELETE /notifications. Only read notifications are removed.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Clear(r.Context(), actor)
	if err != nil {
		writeServiceError(w, "clear notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Send handles POST /notifications.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Category == "" {
		req.Category = enum.NotificationGeneralAlert
	}
	if req.Priority == "" {
		req.Priority = enum.PriorityNormal
	}

	in := service.SendRequest{
		Shift:   req.Shift,
		Roles:   req.Roles,
		TableID: req.TableID,
		Message: service.Message{
			Category: req.Category,
			Title:    req.Title,
			Body:     req.Message,
			Priority: req.Priority,
			Payload:  req.Payload,
			TableID:  req.TableID,
		},
	}
	if req.RecipientID != "" {
		id, err := uuid.Parse(req.RecipientID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipient_id"})
			return
		}
		in.RecipientID = &id
	}

	ns, err := h.svc.SendNotification(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, "send notification", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNotificationResponses(ns))
}

func toNotificationResponses(ns []database.Notification) []notificationResponse {
	resp := make([]notificationResponse, len(ns))
	for i, n := range ns {
		resp[i] = toNotificationResponse(n)
	}
	return resp
}

func toNotificationResponse(n database.Notification) notificationResponse {
	resp := notificationResponse{
		ID:          n.ID,
		RecipientID: uuidPtr(n.RecipientID),
		Shift:       textPtr(n.Shift),
		Category:    n.Category,
		Title:       n.Title,
		Message:     n.Message,
		Payload:     n.Payload,
		Priority:    n.Priority,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}
	if n.TableID.Valid {
		id := n.TableID.Int32
		resp.TableID = &id
	}
	if n.ReadAt.Valid {
		t := n.ReadAt.Time
		resp.ReadAt = &t
	}
	return resp
}
