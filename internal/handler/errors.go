package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/middleware"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// writeServiceError maps coordinator errors to HTTP statuses. Anything it
// does not recognize is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrPreconditionFailed),
		errors.Is(err, service.ErrConcurrentUpdate):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNoAssigneeFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidTip),
		errors.Is(err, service.ErrInvalidNotification),
		errors.Is(err, service.ErrInvalidTableStatus):
		status = http.StatusBadRequest
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// actorFrom returns the authenticated caller, writing a 401 when there is
// none.
func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role}, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + label})
		return uuid.Nil, false
	}
	return id, true
}

func tableParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return 0, false
	}
	return int32(id), true
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
