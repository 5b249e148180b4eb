package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/purrfect/internal/account"
	"github.com/dukerupert/purrfect/internal/foodlog"
	"github.com/dukerupert/purrfect/internal/handler"
	"github.com/dukerupert/purrfect/internal/middleware"
	"github.com/dukerupert/purrfect/internal/store"
	ws "github.com/dukerupert/purrfect/internal/websocket"
)

const (
	credentialLimit  = 10
	credentialWindow = time.Minute
)

// Options configures a Server. Zero values select production defaults.
type Options struct {
	SeedCatalog    foodlog.Catalog
	AllowedOrigins []string
	Now            func() time.Time
	Logger         *slog.Logger
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	engine         *foodlog.Engine
	accounts       *account.Service
	foodH          *handler.FoodHandler
	accountH       *handler.AccountHandler
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kv := store.NewKVStore(db)
	hub := ws.NewHub(logger.With("component", "websocket"))

	engineOpts := []foodlog.Option{foodlog.WithLogger(logger.With("component", "foodlog"))}
	if opts.SeedCatalog != nil {
		engineOpts = append(engineOpts, foodlog.WithSeedCatalog(opts.SeedCatalog))
	}
	engine := foodlog.New(kv, engineOpts...)
	accounts := account.NewService(kv, logger.With("component", "account"))

	return &Server{
		db:             db,
		hub:            hub,
		engine:         engine,
		accounts:       accounts,
		foodH:          handler.NewFoodHandler(engine, hub, opts.Now, logger.With("component", "food")),
		accountH:       handler.NewAccountHandler(accounts, engine, hub, logger.With("component", "account")),
		rateLimiter:    middleware.NewRateLimiter(),
		allowedOrigins: opts.AllowedOrigins,
		logger:         logger,
	}
}

// Init seeds the food log documents that are missing from the store.
func (s *Server) Init(ctx context.Context) error {
	return s.engine.Initialize(ctx)
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no login required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /api/session", s.accountH.Session)
	outerMux.HandleFunc("POST /api/signup", s.rateLimitedHandler(s.accountH.SignUp))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.accountH.Login))
	outerMux.HandleFunc("POST /api/logout", s.accountH.Logout)
	outerMux.HandleFunc("POST /api/reset", s.rateLimitedHandler(s.accountH.Reset))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	loginGate := middleware.RequireLogin(s.accounts, s.logger.With("component", "login"))
	outerMux.Handle("/", loginGate(protectedMux))

	sameOrigin := middleware.SameOrigin(s.allowedOrigins, s.logger.With("component", "origin"))
	return middleware.RequestLogger(s.logger.With("component", "http"))(sameOrigin(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
		"dropped": s.hub.Dropped(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimitByRoute(s.rateLimiter, credentialLimit, credentialWindow)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/home", s.foodH.Home)

	// Daily entries
	mux.HandleFunc("GET /api/entries/{date}", s.foodH.ListEntries)
	mux.HandleFunc("POST /api/entries", s.foodH.AddEntry)
	mux.HandleFunc("DELETE /api/entries/{date}/{food}", s.foodH.DeleteEntry)

	// Catalog
	mux.HandleFunc("GET /api/categories", s.foodH.ListCategories)
	mux.HandleFunc("GET /api/categories/{key}/favorites", s.foodH.Favorites)
	mux.HandleFunc("GET /api/foods", s.foodH.ListFoods)
	mux.HandleFunc("GET /api/foods/search", s.foodH.SearchFoods)
	mux.HandleFunc("POST /api/foods", s.foodH.CreateFood)

	// Refined carb streak
	mux.HandleFunc("GET /api/carbs/streak", s.foodH.CarbStreak)
	mux.HandleFunc("POST /api/carbs/lapse", s.foodH.RecordCarbLapse)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
}
