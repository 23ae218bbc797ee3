package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires every route. Credentialed CORS is limited to
// allowedOrigins since both cookies travel with cross-origin calls.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.healthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.getConfig)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/otp", h.requestOTP)
			r.Post("/login", h.login)
			r.With(h.session.Require).Post("/logout", h.logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.session.Require)

			r.Get("/me", h.me)
			r.Get("/me/batches", h.myBatches)
			r.Post("/me/batches", h.enroll)
			r.Delete("/me/batches/{batchId}", h.unenroll)

			r.Get("/batches/{batchId}/{resource}", h.proxyBatch)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.adminLogin)
			r.Post("/logout", h.adminLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Get("/users", h.adminListUsers)
				r.Get("/users/{id}", h.adminGetUser)
				r.Post("/users/{id}/batches", h.adminEnroll)
				r.Delete("/users/{id}/batches/{batchId}", h.adminUnenroll)

				r.Get("/batches", h.adminListBatches)
				r.Post("/batches", h.adminCreateBatch)
				r.Get("/batches/{id}", h.adminGetBatch)
				r.Put("/batches/{id}", h.adminUpdateBatch)
				r.Delete("/batches/{id}", h.adminDeleteBatch)

				r.Put("/config", h.adminUpdateConfig)
			})
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Debug(r.Context(), "http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
