package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/pkg/respond"
)

// Pinger is anything the readiness endpoint can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Tasks          TaskService
	Auth           AuthService
	Verifier       TokenVerifier
	Revocations    RevocationChecker
	Logger         *zap.Logger
	RequestTimeout time.Duration
	// CORSOrigins are the allowed browser origins; empty or "*" allows any origin
	// and then credentials are never allowed.
	CORSOrigins []string
	// Checks are pinged by GET /ready, keyed by name.
	Checks map[string]Pinger
}

func NewRouter(d RouterDeps) http.Handler {
	taskHandler := NewTaskHandler(d.Tasks, d.Logger)
	authHandler := NewAuthHandler(d.Auth, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(d.CORSOrigins))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readiness(d.Checks, d.Logger))

	authenticate := Authenticate(d.Verifier, d.Revocations, d.Logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/sign-in", authHandler.SignIn)
		r.With(authenticate).Get("/me", authHandler.Me)
		r.With(authenticate).Get("/logout", authHandler.Logout)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", taskHandler.Create)
		r.Get("/", taskHandler.List)
		r.Get("/{task_id}", taskHandler.Get)
		r.Put("/{task_id}", taskHandler.Update)
		r.Delete("/{task_id}", taskHandler.Delete)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")
	if wildcard {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

func readiness(checks map[string]Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, c := range checks {
			if err := c.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				status[name] = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		respond.JSON(w, r, code, status)
	}
}
