package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/docuverse/studio/internal/api/handlers"
	mw "github.com/docuverse/studio/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret        []byte
	ProjectsHandler   *handlers.ProjectsHandler
	GenerationHandler *handlers.GenerationHandler
	ReviewHandler     *handlers.ReviewHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/docs/doc.json"),
	))

	r.Route("/api/v1", func(api chi.Router) {
		// Public routes: share links and the reviewer-facing review page.
		api.Get("/projects/view/{shareId}", dep.ProjectsHandler.SharedView)
		api.Get("/projects/{id}/public-review", dep.ReviewHandler.PublicReview)
		api.Post("/projects/{id}/submit-review", dep.ReviewHandler.SubmitReview)

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Put("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)
				pr.Get("/{id}/timeline", dep.ProjectsHandler.Timeline)
				pr.Post("/{id}/prototype", dep.ProjectsHandler.RegisterPrototype)

				pr.Post("/{id}/generate", dep.GenerationHandler.Generate)
				pr.Get("/{id}/progress", dep.GenerationHandler.Progress)
				pr.Get("/{id}/enhance-status", dep.GenerationHandler.EnhanceStatus)

				pr.Post("/{id}/send-review", dep.ReviewHandler.SendForReview)
				pr.Get("/{id}/feedback", dep.ReviewHandler.ListFeedback)
			})
		})
	})

	return r
}
