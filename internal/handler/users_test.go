package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User // keyed by user ID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) ListActiveUsersByShift(_ context.Context, arg database.ListActiveUsersByShiftParams) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		if !u.IsActive || u.Shift.String != arg.Shift {
			continue
		}
		if len(arg.Roles) > 0 && !slices.Contains(arg.Roles, u.Role) {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	// Check for duplicate email (simulates PostgreSQL unique constraint)
	for _, existing := range m.users {
		if existing.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	u := database.User{
		ID:             uuid.New(),
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		Shift:          arg.Shift,
		IsActive:       true,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUserShift(_ context.Context, arg database.UpdateUserShiftParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	u.Shift = arg.Shift
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) DeactivateUser(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.IsActive = false
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *mockUserStore) add(name, role, shift string) database.User {
	u := database.User{
		ID:       uuid.New(),
		Email:    name + "@lachinga.mx",
		FullName: name,
		Role:     role,
		IsActive: true,
	}
	if shift != "" {
		u.Shift = pgtype.Text{String: shift, Valid: true}
	}
	m.users[u.ID] = u
	return u
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// --- List tests ---

func TestListUsers_ByShiftAndRole(t *testing.T) {
	store := newMockUserStore()
	store.add("lupita", enum.RoleWaiter, enum.ShiftMorning)
	store.add("carmen", enum.RoleCashier, enum.ShiftMorning)
	store.add("beto", enum.RoleWaiter, enum.ShiftEvening)
	gone := store.add("old", enum.RoleWaiter, enum.ShiftMorning)
	gone.IsActive = false
	store.users[gone.ID] = gone

	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users?shift=morning", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeList(t, rr); len(got) != 2 {
		t.Fatalf("morning staff: got %d, want 2", len(got))
	}

	rr = doRequest(t, router, "GET", "/users?shift=morning&role=waiter", nil)
	expectStatus(t, rr, http.StatusOK)
	got := decodeList(t, rr)
	if len(got) != 1 || got[0]["full_name"] != "lupita" {
		t.Fatalf("morning waiters: got %v", got)
	}
	if got[0]["shift"] != "morning" {
		t.Errorf("shift: got %v, want morning", got[0]["shift"])
	}
}

func TestListUsers_RequiresShift(t *testing.T) {
	rr := doRequest(t, setupUserRouter(newMockUserStore()), "GET", "/users", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Create tests ---

func TestCreateUser_Waiter(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]string{
		"email":     "nuevo@lachinga.mx",
		"password":  "secret123",
		"full_name": "Mesero Nuevo",
		"role":      "waiter",
		"shift":     "evening",
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["role"] != "waiter" || resp["shift"] != "evening" {
		t.Errorf("user: got role=%v shift=%v", resp["role"], resp["shift"])
	}
	if _, ok := resp["hashed_password"]; ok {
		t.Error("response must not leak hashed_password")
	}

	id := uuid.MustParse(resp["id"].(string))
	stored := store.users[id]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("secret123")); err != nil {
		t.Errorf("stored password does not match: %v", err)
	}
}

func TestCreateUser_AdminWithoutShift(t *testing.T) {
	rr := doRequest(t, setupUserRouter(newMockUserStore()), "POST", "/users", map[string]string{
		"email":     "jefa@lachinga.mx",
		"password":  "secret123",
		"full_name": "La Jefa",
		"role":      "admin",
	})
	expectStatus(t, rr, http.StatusCreated)
	if resp := decodeResponse(t, rr); resp["shift"] != nil {
		t.Errorf("shift: got %v, want null", resp["shift"])
	}
}

func TestCreateUser_Validation(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"email":     "x@lachinga.mx",
			"password":  "secret123",
			"full_name": "X",
			"role":      "kitchen",
			"shift":     "morning",
		}
	}
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing email", func(b map[string]string) { delete(b, "email") }},
		{"bad email", func(b map[string]string) { b["email"] = "nope" }},
		{"bad role", func(b map[string]string) { b["role"] = "owner" }},
		{"bad shift", func(b map[string]string) { b["shift"] = "night" }},
		{"floor role without shift", func(b map[string]string) { delete(b, "shift") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			rr := doRequest(t, setupUserRouter(newMockUserStore()), "POST", "/users", body)
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	existing := store.add("lupita", enum.RoleWaiter, enum.ShiftMorning)

	rr := doRequest(t, setupUserRouter(store), "POST", "/users", map[string]string{
		"email":     existing.Email,
		"password":  "secret123",
		"full_name": "Otra Lupita",
		"role":      "waiter",
		"shift":     "morning",
	})
	expectStatus(t, rr, http.StatusConflict)
}

// --- Update / Delete tests ---

func TestUpdateUserShift(t *testing.T) {
	store := newMockUserStore()
	u := store.add("beto", enum.RoleWaiter, enum.ShiftEvening)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+u.ID.String()+"/shift", map[string]string{"shift": "morning"})
	expectStatus(t, rr, http.StatusOK)
	if store.users[u.ID].Shift.String != enum.ShiftMorning {
		t.Errorf("shift not updated: %v", store.users[u.ID].Shift)
	}

	rr = doRequest(t, router, "PUT", "/users/"+uuid.NewString()+"/shift", map[string]string{"shift": "morning"})
	expectStatus(t, rr, http.StatusNotFound)

	rr = doRequest(t, router, "PUT", "/users/"+u.ID.String()+"/shift", map[string]string{"shift": "late"})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestDeleteUser(t *testing.T) {
	store := newMockUserStore()
	u := store.add("memo", enum.RoleKitchen, enum.ShiftEvening)
	router := setupUserRouter(store)

	rr := doRequest(t, router, "DELETE", "/users/"+u.ID.String(), nil)
	expectStatus(t, rr, http.StatusNoContent)
	if store.users[u.ID].IsActive {
		t.Error("user should be inactive")
	}

	rr = doRequest(t, router, "DELETE", "/users/"+u.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}
