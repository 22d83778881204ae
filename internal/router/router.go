package router

import (
	"log"
	"net/http"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/config"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/handler"
	mw "github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/middleware"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AccountStore backs login and the admin staff roster.
// Satisfied by *database.Queries and *memory.Store.
type AccountStore interface {
	handler.AuthStore
	handler.UserStore
}

// New creates a Chi router with all application routes wired up. Role
// checks for state changes live in the coordinator; the router only gates
// staff-wide listings, reports and the roster.
func New(cfg *config.Config, coord *service.Coordinator, users AccountStore, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	staff := []string{enum.RoleWaiter, enum.RoleCashier, enum.RoleKitchen, enum.RoleAdmin}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		menuHandler := handler.NewMenuHandler(coord)
		r.Route("/menu", menuHandler.RegisterRoutes)

		tableHandler := handler.NewTableHandler(coord)
		r.Route("/tables", tableHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(coord)
		r.Route("/orders", func(r chi.Router) {
			// Customers place and follow their own orders.
			r.Post("/", orderHandler.Create)
			r.Get("/{id}", orderHandler.Get)
			r.Post("/{id}/cancel", orderHandler.Cancel)
			r.Delete("/{id}/items/{itemID}", orderHandler.CancelItem)
			r.Post("/{id}/invoice", orderHandler.GenerateInvoice)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(staff...))
				r.Get("/", orderHandler.List)
				r.Get("/kitchen-queue", orderHandler.KitchenQueue)
				r.Put("/{id}/cook", orderHandler.AssignCook)
				r.Delete("/{id}/cook", orderHandler.UnassignCook)
				r.Patch("/{id}/status", orderHandler.UpdateStatus)
			})
		})

		invoiceHandler := handler.NewInvoiceHandler(coord)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleWaiter, enum.RoleCashier, enum.RoleAdmin))
			r.Route("/invoices", invoiceHandler.RegisterRoutes)
		})

		reportsHandler := handler.NewReportsHandler(coord, nil)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCashier, enum.RoleAdmin))
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})

		notificationHandler := handler.NewNotificationHandler(coord)
		r.Route("/notifications", notificationHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(users)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
