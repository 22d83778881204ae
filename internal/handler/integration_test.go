//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/config"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/router"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/seed"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/ws"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow walks one table from seating to payment through the
// full router against a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:            "8081",
		DatabaseURL:     connStr,
		JWTSecret:       "integration-test-secret",
		TaxRate:         "0.16",
		ShiftChangeHour: 15,
	}
	queries := database.New(pool)
	txRunner := database.NewTxRunner(pool)

	if _, err := seed.Run(ctx, txRunner, seed.Defaults("password123")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; Hub has no shutdown mechanism.
	go hub.Run()

	coord := service.NewCoordinator(queries, txRunner, hub, service.Config{
		TaxRate:         decimal.RequireFromString("0.16"),
		ShiftChangeHour: cfg.ShiftChangeHour,
	})

	server := httptest.NewServer(router.New(cfg, coord, queries, hub))
	defer server.Close()

	// --- 1. Log everyone in ---
	customer := login(t, server, "cliente@lachinga.mx", "password123")
	waiter := login(t, server, "lupita@lachinga.mx", "password123")
	cook := login(t, server, "chuy@lachinga.mx", "password123")
	cashier := login(t, server, "carmen@lachinga.mx", "password123")

	// --- 2. Waiter seats table 5 and takes it ---
	tbl := httpJSON(t, server, "POST", "/tables/5/occupy", nil, waiter, http.StatusOK)
	if tbl["status"] != "occupied" {
		t.Fatalf("table status: got %v, want occupied", tbl["status"])
	}
	httpJSON(t, server, "PUT", "/tables/5/waiter", map[string]interface{}{}, waiter, http.StatusOK)

	// --- 3. Customer orders from the menu ---
	menu := httpList(t, server, "/menu", customer)
	var tacosID, aguaID string
	for _, m := range menu {
		switch m["name"] {
		case "Tacos al pastor":
			tacosID = m["id"].(string)
		case "Agua de jamaica":
			aguaID = m["id"].(string)
		}
	}
	if tacosID == "" || aguaID == "" {
		t.Fatalf("seeded menu missing items: %v", menu)
	}

	order := httpJSON(t, server, "POST", "/orders", map[string]interface{}{
		"table_id": 5,
		"tip":      "10",
		"items": []map[string]interface{}{
			{"menu_item_id": tacosID, "quantity": 2},
			{"menu_item_id": aguaID, "quantity": 1},
		},
	}, customer, http.StatusCreated)
	orderID := order["id"].(string)

	// 2*25 + 12.50 = 62.50, plus the 10 tip
	if order["subtotal"] != "62.50" || order["total"] != "72.50" {
		t.Fatalf("order amounts: got subtotal=%v total=%v, want 62.50/72.50", order["subtotal"], order["total"])
	}
	if tbl := httpJSON(t, server, "GET", "/tables/5", nil, waiter, http.StatusOK); tbl["status"] != "has_order" {
		t.Fatalf("table status after order: got %v, want has_order", tbl["status"])
	}

	// A second active order on the same table is refused.
	httpJSON(t, server, "POST", "/orders", map[string]interface{}{
		"table_id": 5,
		"items":    []map[string]interface{}{{"menu_item_id": tacosID, "quantity": 1}},
	}, customer, http.StatusConflict)

	// --- 4. Kitchen takes it and marks it ready ---
	queue := httpList(t, server, "/orders/kitchen-queue", cook)
	if len(queue) != 1 || queue[0]["id"] != orderID {
		t.Fatalf("kitchen queue: got %v", queue)
	}
	o := httpJSON(t, server, "PUT", "/orders/"+orderID+"/cook", map[string]interface{}{}, cook, http.StatusOK)
	if o["status"] != "in_preparation" {
		t.Fatalf("order status after cook: got %v, want in_preparation", o["status"])
	}
	httpJSON(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]interface{}{"status": "ready"}, cook, http.StatusOK)

	// The waiter hears about the new order and that it is ready.
	inbox := httpList(t, server, "/notifications?unread=true", waiter)
	categories := map[string]bool{}
	for _, n := range inbox {
		categories[n["category"].(string)] = true
	}
	if !categories["new_order"] || !categories["order_ready"] {
		t.Fatalf("waiter inbox categories: got %v", categories)
	}

	// Customers cannot skip the floor.
	httpJSON(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]interface{}{"status": "delivered"}, customer, http.StatusForbidden)
	httpJSON(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]interface{}{"status": "delivered"}, waiter, http.StatusOK)

	// --- 5. Bill: generate, send, pay ---
	inv := httpJSON(t, server, "POST", "/orders/"+orderID+"/invoice", nil, customer, http.StatusCreated)
	invoiceID := inv["id"].(string)
	// tax is included in the subtotal: 62.50 - 62.50/1.16
	if inv["tax"] != "8.62" {
		t.Fatalf("invoice tax: got %v, want 8.62", inv["tax"])
	}
	if tbl := httpJSON(t, server, "GET", "/tables/5", nil, waiter, http.StatusOK); tbl["status"] != "awaiting_payment" {
		t.Fatalf("table status after invoice: got %v, want awaiting_payment", tbl["status"])
	}

	httpJSON(t, server, "POST", "/invoices/"+invoiceID+"/send", nil, waiter, http.StatusOK)
	httpJSON(t, server, "POST", "/invoices/"+invoiceID+"/pay", map[string]interface{}{"payment_method": "bitcoin"}, cashier, http.StatusBadRequest)
	paid := httpJSON(t, server, "POST", "/invoices/"+invoiceID+"/pay", map[string]interface{}{"payment_method": "cash"}, cashier, http.StatusOK)
	if paid["status"] != "paid" || paid["total"] != "72.50" {
		t.Fatalf("paid invoice: got status=%v total=%v", paid["status"], paid["total"])
	}

	// --- 6. Table is free again ---
	tbl = httpJSON(t, server, "GET", "/tables/5", nil, waiter, http.StatusOK)
	if tbl["status"] != "free" || tbl["waiter_id"] != nil {
		t.Fatalf("table after payment: got status=%v waiter=%v", tbl["status"], tbl["waiter_id"])
	}

	// Finalized invoices stay finalized.
	httpJSON(t, server, "POST", "/invoices/"+invoiceID+"/cancel", map[string]interface{}{"reason": "late"}, cashier, http.StatusConflict)
}

// --- Helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("floor_test"),
		tcpostgres.WithUsername("floor"),
		tcpostgres.WithPassword("floor"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	// Connect with stdlib for migrate
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Go test sets cwd to the package directory.
	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	resp := httpJSON(t, server, "POST", "/auth/login", body, "", http.StatusOK)
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, want int) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if resp.StatusCode != want {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		resp.Body.Close()
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, want, errResp)
	}
	return resp
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, want int) map[string]interface{} {
	t.Helper()
	resp := httpDo(t, server, method, path, body, token, want)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpList(t *testing.T, server *httptest.Server, path string, token string) []map[string]interface{} {
	t.Helper()
	resp := httpDo(t, server, "GET", path, nil, token, http.StatusOK)
	defer resp.Body.Close()

	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
