package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/templates"
)

func StandardsHandler(checklist *standards.Checklist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := templates.Standards(templates.StandardsData{
			Page:      templates.Page{Title: "Standards", Nav: templates.NavStandards},
			Checklist: checklist,
		})
		return render(c, page)
	}
}

// StorageInfo describes the configured storage for the settings page
type StorageInfo struct {
	Driver string
	Key    string
}

func SettingsHandler(refs *store.ReferenceStore, info StorageInfo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := refs.Load(c.UserContext())
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading references")
		}

		data := templates.SettingsData{
			Page:          templates.Page{Title: "Settings", Nav: templates.NavSettings},
			StorageDriver: info.Driver,
			StorageKey:    info.Key,
			Source:        res.Source.String(),
			Count:         len(res.References),
		}
		if res.Source == store.SourceRecovered {
			data.Warning = recoveredWarning
		}
		if c.Query("reset") == "1" {
			data.Notice = "Library reset to the sample set."
		}
		return render(c, templates.Settings(data))
	}
}

func ResetHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refs.Reset(c.UserContext()); err != nil {
			log.WithError(err).Error("Error resetting references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error resetting references")
		}
		log.Info("Reference library reset to seed set")
		return redirect(c, "/settings?reset=1")
	}
}

func ExportXLSXHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := refs.LoadAll(c.UserContext())
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading references")
		}

		c.Attachment("references.xlsx")
		c.Set(fiber.HeaderContentType, service.XLSXContentType)
		if err := service.ExportXLSX(c.Response().BodyWriter(), all); err != nil {
			log.WithError(err).Error("Error writing spreadsheet")
			return c.Status(fiber.StatusInternalServerError).SendString("Error writing spreadsheet")
		}
		return nil
	}
}
