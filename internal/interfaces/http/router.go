// Package http is the fiber admin surface over the filing pipeline.
package http

import (
	"github.com/gofiber/fiber/v2"

	appfiling "github.com/tu-usuario/filing-pro/internal/application/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
)

// RouterDeps holds the dependencies the router wires into handlers.
type RouterDeps struct {
	Repo         repository.SubmissionRepository
	Orchestrator *appfiling.Orchestrator
}

// Router registers the admin API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	filings := api.Group("/admin/filings")
	h := NewFilingHandler(deps.Repo, deps.Orchestrator)
	filings.Get("/", h.List)
	filings.Post("/", h.Submit)
	filings.Get("/:id", h.GetByID)
	filings.Post("/:id/retry", h.Retry)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
