package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/templates"
)

func DashboardHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, warning, err := loadReferences(c.UserContext(), refs)
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading references")
		}

		page := templates.Dashboard(templates.DashboardData{
			Page:    templates.Page{Title: "Dashboard", Nav: templates.NavDashboard, Warning: warning},
			Metrics: service.ComputeMetrics(all),
			Recent:  service.Recent(all),
		})
		return render(c, page)
	}
}
