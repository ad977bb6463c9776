package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter wires the public API surface.
func NewRouter(app *handlers.App, allowedOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(chimw.Recoverer)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Post("/", app.TasksSubmit)
		r.Get("/", app.TasksList)
		r.Get("/{task_id}", app.TaskStatus)
	})

	r.Get("/v1/credits", app.CreditsCheck)
	r.Get("/v1/examples", app.Examples)

	return r
}
