package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/auth"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/middleware"
	"github.com/ukydev/equipment-checklist/internal/models"
	"github.com/ukydev/equipment-checklist/internal/storage"
)

// RouterConfig collects what the HTTP API is built from.
type RouterConfig struct {
	Auth       *auth.Service
	Users      db.UserCollection
	Checklists db.ChecklistCollection
	Images     *storage.ImageService
	Sessions   *inspection.Manager
	Logger     log.FieldLogger

	// SubmitRateLimit caps submit and retry calls per user per minute; zero
	// disables the cap.
	SubmitRateLimit int

	// Ping reports backend health for /health. Optional.
	Ping func(ctx context.Context) error
}

// NewRouter wires every route of the API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	limiter := middleware.NewRateLimitMiddleware()
	authH := NewAuthHandler(cfg.Auth, cfg.Users, cfg.Sessions, logger)
	checkH := NewChecklistHandler(cfg.Sessions, cfg.Checklists, cfg.Users, cfg.Images, logger)
	userH := NewUserHandler(cfg.Users, cfg.Sessions, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(authMW.Authenticate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", healthHandler(cfg.Ping))
	r.Get("/images/*", checkH.ServeImage)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authH.Login)
			r.Post("/register", authH.Register)
			r.Post("/logout", authH.Logout)
			r.Get("/profile", authH.GetProfile)
			r.Put("/profile", authH.UpdateProfile)
			r.Post("/password", authH.ChangePassword)
		})

		r.Get("/definitions/{type}", checkH.GetDefinition)

		r.Route("/inspections/{type}", func(r chi.Router) {
			r.Use(authMW.RequirePermission(models.PermSubmitChecklist))
			r.Get("/", checkH.GetInspection)
			r.Delete("/", checkH.ResetInspection)
			r.Put("/header", checkH.UpdateHeader)
			r.Delete("/pending", checkH.DiscardPending)
			r.Route("/items/{c}/{i}", func(r chi.Router) {
				r.Post("/press", checkH.PressItem)
				r.Put("/status", checkH.SetItemStatus)
				r.Post("/image", checkH.UploadItemImage)
				r.Delete("/image", checkH.DeleteItemImage)
			})
			r.Group(func(r chi.Router) {
				r.Use(limiter.RateLimit(cfg.SubmitRateLimit, time.Minute))
				r.Post("/submit", checkH.Submit)
				r.Post("/retry-items", checkH.RetryItems)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMW.RequireRole(models.RoleAdmin))
			r.Get("/", userH.ListUsers)
			r.Put("/{id}", userH.UpdateUser)
		})

		r.Route("/checklists", func(r chi.Router) {
			r.Use(authMW.RequirePermission(models.PermViewChecklists))
			r.Get("/", checkH.ListChecklists)
			r.Get("/{id}", checkH.GetChecklist)
		})
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				jsonStatus(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		jsonOK(w, map[string]string{"status": "ok"})
	}
}
