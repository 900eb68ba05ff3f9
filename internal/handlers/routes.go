package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

// Deps are the collaborators shared by the handlers. Auditor is nil when no
// audit model is configured.
type Deps struct {
	References *store.ReferenceStore
	Auditor    *service.AuditClient
	Standards  *standards.Checklist
	Storage    StorageInfo
}

// Register mounts every page and API route on router
func Register(router fiber.Router, d Deps) {
	refs := d.References
	auditEnabled := d.Auditor != nil

	// Pages
	router.Get("/", DashboardHandler(refs))
	router.Get("/library", LibraryHandler(refs))
	router.Get("/standards", StandardsHandler(d.Standards))
	router.Get("/settings", SettingsHandler(refs, d.Storage))
	router.Post("/settings/reset", ResetHandler(refs))
	router.Get("/export.xlsx", ExportXLSXHandler(refs))

	// Reference routes
	router.Get("/references/new", NewReferenceFormHandler())
	router.Post("/references", SaveReferenceHandler(refs))
	router.Get("/references/:id", ReferenceDetailHandler(refs, auditEnabled))
	router.Post("/references/:id", SaveReferenceHandler(refs))
	router.Get("/references/:id/edit", EditReferenceFormHandler(refs))
	router.Post("/references/:id/delete", DeleteReferenceHandler(refs))
	router.Post("/references/:id/audit", AuditHandler(refs, d.Auditor, d.Standards))

	// JSON API
	api := router.Group("/api")
	api.Get("/references", ListReferencesAPIHandler(refs))
	api.Post("/references", CreateReferenceAPIHandler(refs))
	api.Get("/references/:id", GetReferenceAPIHandler(refs))
	api.Put("/references/:id", UpdateReferenceAPIHandler(refs))
	api.Delete("/references/:id", DeleteReferenceAPIHandler(refs))
	api.Post("/references/:id/audit", AuditAPIHandler(refs, d.Auditor, d.Standards))
	api.Post("/reset", ResetAPIHandler(refs))
	api.Get("/metrics", MetricsAPIHandler(refs))
}
