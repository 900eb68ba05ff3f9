package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/templates"
)

func libraryQuery(c *fiber.Ctx) service.LibraryQuery {
	return service.LibraryQuery{
		Search:   c.Query("q"),
		Customer: c.Query("customer", service.FilterAll),
		Section:  c.Query("section", service.FilterAll),
		Sort:     service.ParseSortOrder(c.Query("sort")),
	}
}

func LibraryHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, warning, err := loadReferences(c.UserContext(), refs)
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading references")
		}

		q := libraryQuery(c)
		data := templates.LibraryData{
			Page:      templates.Page{Title: "Library", Nav: templates.NavLibrary, Warning: warning},
			Query:     q,
			Results:   service.Filter(all, q),
			Total:     len(all),
			Customers: service.Customers(all),
			Sections:  model.Sections,
		}

		// Check if this is an HTMX request for just the results
		if isHTMX(c) {
			return render(c, templates.LibraryResults(data))
		}

		return render(c, templates.Library(data))
	}
}
