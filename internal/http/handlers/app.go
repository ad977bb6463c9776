package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/infra"
	"server/internal/providers/runway"
	"server/internal/task"
)

// CreditChecker is the slice of the Runway client the API needs directly.
type CreditChecker interface {
	CheckCredits(ctx context.Context) runway.CreditStatus
}

// App bundles the handler dependencies.
type App struct {
	Logger       infra.Logger
	Registry     *task.Registry
	Orchestrator *task.Orchestrator
	Credits      CreditChecker
}

func NewApp(logger infra.Logger, registry *task.Registry, orchestrator *task.Orchestrator, credits CreditChecker) *App {
	return &App{
		Logger:       logger,
		Registry:     registry,
		Orchestrator: orchestrator,
		Credits:      credits,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
