package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/config"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/handler"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	mw "github.com/kiwari-pos/orderengine/internal/middleware"
	"github.com/kiwari-pos/orderengine/internal/service"
	"github.com/kiwari-pos/orderengine/internal/ws"
	"go.uber.org/zap"
)

// Deps are the long-lived components the routes are served by.
type Deps struct {
	Queries   *database.Queries
	Catalog   *catalog.Cache
	Composer  *composer.Composer
	Sessions  *composer.Registry
	Orders    *service.OrderService
	Stock     *inventory.Stock
	Inventory inventory.Batcher
	Hub       *ws.Hub
	Logger    *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handler.NewAuthHandler(d.Queries, cfg.JWTSecret, d.Logger)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Catalog: reads for every role, writes for managers
		catalogHandler := handler.NewCatalogHandler(d.Queries, d.Catalog, d.Composer.Slots(), d.Composer.Packages(), d.Logger)
		slotHandler := handler.NewSlotHandler(d.Queries, d.Catalog, d.Logger)
		packageHandler := handler.NewPackageHandler(d.Queries, d.Catalog, d.Logger)
		r.Route("/catalog", func(r chi.Router) {
			catalogHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.StaffRoleManager))
				slotHandler.RegisterRoutes(r)
				packageHandler.RegisterRoutes(r)
			})
		})

		// Inventory
		inventoryHandler := handler.NewInventoryHandler(d.Stock, d.Inventory, d.Hub, d.Logger)
		r.Route("/inventory", func(r chi.Router) {
			inventoryHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.StaffRoleManager))
				inventoryHandler.RegisterAdminRoutes(r)
			})
		})

		// Composition sessions
		sessionHandler := handler.NewSessionHandler(d.Composer, d.Sessions, d.Orders, d.Logger)
		r.Route("/sessions", sessionHandler.RegisterRoutes)

		// Saved orders
		orderHandler := handler.NewOrderHandler(d.Orders, d.Sessions, d.Logger)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Staff roster (manager only)
		staffHandler := handler.NewStaffHandler(d.Queries, d.Logger)
		r.Route("/staff", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.StaffRoleManager))
			staffHandler.RegisterRoutes(r)
		})

		// Sales reports (manager only)
		reportsHandler := handler.NewReportsHandler(d.Queries, cfg.Location(), d.Logger)
		r.Route("/reports", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.StaffRoleManager))
			reportsHandler.RegisterRoutes(r)
		})
	})

	d.Logger.Info("router initialized")
	return r
}
