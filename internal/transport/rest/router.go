package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"waveband/internal/scheduler"
	"waveband/internal/scoring"
	"waveband/internal/service"
	"waveband/internal/transport/rest/handler"
	"waveband/internal/transport/rest/middleware"
	"waveband/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	Lifecycle     *service.LifecycleService
	Guesses       *service.GuessService
	Engine        *scoring.Engine
	Scheduler     *scheduler.Scheduler
	InternalToken string
	WSHub         *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	draftHandler := handler.NewDraftHandler(c.Lifecycle)
	gameHandler := handler.NewGameHandler(c.Lifecycle, c.Guesses, c.Engine)
	schedulerHandler := handler.NewSchedulerHandler(c.Scheduler)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/games/{id}", wsHandler.WatchGame).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/drafts", draftHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/games", gameHandler.Publish).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/games/{id}", gameHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/games/{id}/guesses", gameHandler.SubmitGuess).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/games/{id}/results", gameHandler.Results).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/feed", gameHandler.Feed).Methods("GET", "OPTIONS")

	// Internal scheduler routes
	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(middleware.RequireInternal(c.InternalToken))
	internal.HandleFunc("/scheduler/tick", schedulerHandler.Tick).Methods("POST")
	internal.HandleFunc("/scheduler/jobs/run", schedulerHandler.RunJobs).Methods("POST")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Internal-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
