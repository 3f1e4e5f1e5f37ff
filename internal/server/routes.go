package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/sweet-shop/internal/handler"
	"github.com/sakif/sweet-shop/internal/middleware"
)

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                → document store ping
//	GET    /metrics                → Prometheus
//	POST   /api/auth/signup        → create account, start session
//	POST   /api/auth/signin        → start session
//	GET    /api/items              → catalog (optional session: favorites marked)
//	GET    /api/items/{id}         → one item
//	POST   /api/auth/signout       → end session            [session]
//	GET    /api/me                 → user + profile         [session]
//	GET    /api/profile            → profile document       [session]
//	PUT    /api/profile            → replace profile        [session]
//	POST   /api/favorites/{id}     → toggle favorite        [session]
//	POST   /api/cart               → add to cart            [session]
//	PATCH  /api/cart/{id}          → change quantity        [session]
//	DELETE /api/cart/{id}          → remove line            [session]
//	POST   /api/orders             → place order from cart  [session]
//	GET    /api/orders             → order history          [session]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can print it; Recoverer sits inside
// the logger so a panic is logged as a 500.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authH := handler.NewAuthHandler(s.sessions, s.profiles, s.config.App.IsProduction(), s.logger)
	catalogH := handler.NewCatalogHandler(s.catalog, s.logger)
	profileH := handler.NewProfileHandler(s.profiles, s.logger)
	healthH := handler.NewHealthHandler(s.store, 2*time.Second, s.logger)

	s.router.Get("/healthz", healthH.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authH.HandleSignUp)
		r.Post("/auth/signin", authH.HandleSignIn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalSession(s.sessions))
			r.Get("/items", catalogH.HandleList)
			r.Get("/items/{id}", catalogH.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(s.sessions, s.logger))

			r.Post("/auth/signout", authH.HandleSignOut)
			r.Get("/me", authH.HandleMe)

			r.Get("/profile", profileH.HandleGet)
			r.Put("/profile", profileH.HandlePut)
			r.Post("/favorites/{id}", profileH.HandleToggleFavorite)

			r.Post("/cart", profileH.HandleAddToCart)
			r.Patch("/cart/{id}", profileH.HandleUpdateCart)
			r.Delete("/cart/{id}", profileH.HandleRemoveFromCart)

			r.Post("/orders", profileH.HandlePlaceOrder)
			r.Get("/orders", profileH.HandleListOrders)
		})
	})
}
