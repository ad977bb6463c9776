package handlers

import (
	"net/http"

	"server/internal/task"
)

// CreditsCheck reports the best-effort credit status. It never returns an
// HTTP error: on uncertainty the provider client already fails open.
func (a *App) CreditsCheck(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Credits.CheckCredits(r.Context()))
}

// Examples exposes the fallback image pool and the demo video list the
// frontend renders as its gallery.
func (a *App) Examples(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"example_images": task.ExampleImages,
		"demo_videos":    task.DemoVideos,
	})
}
