package handler

import (
	"context"
	"net/http"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MenuServicer is satisfied by *service.Coordinator.
type MenuServicer interface {
	Menu(ctx context.Context, a service.Actor, includeUnavailable bool) ([]database.MenuItem, error)
}

type MenuHandler struct {
	svc MenuServicer
}

func NewMenuHandler(svc MenuServicer) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// RegisterRoutes registers GET /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

// List handles GET /menu?all=true. Staff may ask for unavailable items too.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Menu(r.Context(), actor, r.URL.Query().Get("all") == "true")
	if err != nil {
		writeServiceError(w, "list menu", err)
		return
	}
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = menuItemResponse{
			ID:          m.ID,
			Name:        m.Name,
			Price:       m.Price.StringFixed(2),
			IsAvailable: m.IsAvailable,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
