package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyhub-backend/internal/config"
	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
)

// Limiters are shared with main so their cleanup loops can be started and stopped there.
type Limiters struct {
	Auth *middleware.RateLimiter
	AI   *middleware.RateLimiter
}

func NewLimiters(cfg *config.Config) Limiters {
	return Limiters{
		Auth: middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute),
		AI:   middleware.NewRateLimiter(cfg.AIRateLimit, time.Minute),
	}
}

func New(
	cfg *config.Config,
	jwtAuth *middleware.JWTAuth,
	limiters Limiters,
	authHandler *handlers.AuthHandler,
	studySessionHandler *handlers.StudySessionHandler,
	taskHandler *handlers.TaskHandler,
	calendarHandler *handlers.CalendarHandler,
	assistantHandler *handlers.AssistantHandler,
	wsHandler http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(chimiddleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(chimiddleware.SetHeader("X-Frame-Options", "DENY"))
	r.Use(chimiddleware.SetHeader("Referrer-Policy", "no-referrer"))
	if cfg.IsProduction() {
		r.Use(chimiddleware.SetHeader("Strict-Transport-Security", "max-age=31536000; includeSubDomains"))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Group(func(r chi.Router) {
			r.Use(limiters.Auth.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", wsHandler)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Profile Routes ────
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
			r.Delete("/profile", authHandler.DeleteAccount)
			r.With(limiters.Auth.Middleware).Post("/change-password", authHandler.ChangePassword)

			// ──── Study Session Routes ────
			r.Route("/study/sessions", func(r chi.Router) {
				r.Get("/", studySessionHandler.List)
				r.Post("/", studySessionHandler.Create)
				r.Get("/stats", studySessionHandler.Stats)
				r.Get("/active", studySessionHandler.Active)
				r.Post("/start", studySessionHandler.Start)
				r.Post("/end", studySessionHandler.End)
				r.Get("/{id}", studySessionHandler.Get)
				r.Put("/{id}", studySessionHandler.Update)
				r.Delete("/{id}", studySessionHandler.Delete)
			})

			// ──── Task Routes ────
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Patch("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})

			// ──── Calendar Routes ────
			r.Route("/calendar", func(r chi.Router) {
				r.Get("/", calendarHandler.List)
				r.Post("/", calendarHandler.Create)
				r.Get("/{id}", calendarHandler.Get)
				r.Put("/{id}", calendarHandler.Update)
				r.Delete("/{id}", calendarHandler.Delete)
			})

			// ──── Assistant Routes ────
			r.Route("/gemini", func(r chi.Router) {
				r.With(limiters.AI.Middleware).Post("/generate", assistantHandler.Generate)
				r.Get("/conversations", assistantHandler.ListConversations)
				r.Post("/conversations", assistantHandler.CreateConversation)
				r.Route("/conversation/{id}", func(r chi.Router) {
					r.Get("/", assistantHandler.GetConversation)
					r.Delete("/", assistantHandler.DeleteConversation)
					r.Put("/title", assistantHandler.UpdateTitle)
					r.Post("/activate", assistantHandler.Activate)
					r.Post("/deactivate", assistantHandler.Deactivate)
				})
			})
		})
	})

	return r
}
