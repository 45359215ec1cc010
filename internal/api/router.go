package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"slackgate-backend/internal/config"
	"slackgate-backend/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	SlackCommandHandler  *handlers.SlackCommandHandler
	OAuthHandler         *handlers.OAuthHandler
	InstallationsHandler *handlers.InstallationsHandler
	Config               *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID) // Inject request ID into context
	r.Use(middleware.RealIP)    // Use X-Forwarded-For or X-Real-IP
	r.Use(middleware.Logger)    // Log requests (consider a structured logger)
	r.Use(middleware.Recoverer) // Recover from panics, return 500
	// Slack abandons slash-command connections after a few seconds; the
	// timeout here only bounds misbehaving ops/oauth requests.
	r.Use(middleware.Timeout(30 * time.Second))

	// --- CORS Configuration ---
	// Only the ops surface is ever browser-facing; the Slack webhooks are
	// server-to-server and ignore CORS entirely.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// --- Public Slack Webhooks ---
	// These must stay public for Slack to reach them. The verification token
	// (command) and the OAuth exchange itself (install) secure them.
	if deps.SlackCommandHandler != nil {
		r.Post("/slack/command", deps.SlackCommandHandler.HandleSlashCommand)
	} else {
		log.Println("WARN: SlackCommandHandler dependency is nil, skipping /slack/command route.")
	}

	if deps.OAuthHandler != nil {
		r.Get("/slack/oauth", deps.OAuthHandler.HandleInstallCallback)
	} else {
		log.Println("WARN: OAuthHandler dependency is nil, skipping /slack/oauth route.")
	}

	// --- Authenticated Ops Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		// Apply JWT Authentication Middleware
		r.Use(JwtAuthMiddleware(deps.Config.OpsJWTSecret))

		if deps.InstallationsHandler != nil {
			r.Get("/installations", deps.InstallationsHandler.HandleListInstallations)
		} else {
			log.Println("WARN: InstallationsHandler dependency is nil, skipping /v1/installations route.")
		}
	})

	return r
}
