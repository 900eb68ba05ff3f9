package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/templates"
)

var (
	errAuditDisabled = errors.New("audit is not configured")
	errLoadReference = errors.New("error loading reference")
)

// auditFailure maps an audit error to an operator message and HTTP status
func auditFailure(err error) (string, int) {
	switch {
	case errors.Is(err, errLoadReference):
		return "error loading reference", fiber.StatusInternalServerError
	case errors.Is(err, errAuditDisabled):
		return "audit is not configured; set GEMINI_API_KEY", fiber.StatusServiceUnavailable
	case errors.Is(err, service.ErrImageNotAccessible):
		return "image not accessible for analysis", fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidImagePayload):
		return "this reference has no usable image", fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyResponse):
		return "model returned no content", fiber.StatusBadGateway
	case errors.Is(err, service.ErrMalformedResponse):
		return "model returned an invalid format", fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return "the audit timed out", fiber.StatusGatewayTimeout
	default:
		return "the audit service could not be reached", fiber.StatusBadGateway
	}
}

// runAudit audits the reference named by the id route parameter. A nil
// result with a nil error means the reference does not exist.
func runAudit(c *fiber.Ctx, refs *store.ReferenceStore, auditor *service.AuditClient, checklist *standards.Checklist) (*model.AuditResult, bool, error) {
	ctx := c.UserContext()

	ref, err := refs.Get(ctx, c.Params("id"))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %w", errLoadReference, err)
	}
	if ref == nil {
		return nil, false, nil
	}
	if auditor == nil {
		return nil, true, errAuditDisabled
	}

	result, err := auditor.AuditImage(ctx, ref.Image, string(ref.Section), checklist.AuditDescription())
	return result, true, err
}

// AuditHandler returns the audit result partial for the detail page. The
// result is never stored. A failure is retargeted to the #audit-error alert
// so a result already on the page stays in place.
func AuditHandler(refs *store.ReferenceStore, auditor *service.AuditClient, checklist *standards.Checklist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		result, found, err := runAudit(c, refs, auditor, checklist)
		if !found && err == nil {
			return c.Status(fiber.StatusNotFound).SendString("Reference not found")
		}
		if errors.Is(err, context.Canceled) {
			// the caller went away; nothing to show
			return c.SendStatus(fiber.StatusNoContent)
		}
		if err != nil {
			msg, _ := auditFailure(err)
			log.WithError(err).WithField("id", id).Warn("Audit failed")
			c.Set("HX-Retarget", "#audit-error")
			c.Set("HX-Reswap", "innerHTML")
			return render(c, templates.AuditResult(templates.AuditData{RefID: id, Error: msg}))
		}

		return render(c, templates.AuditResult(templates.AuditData{RefID: id, Result: result}))
	}
}

func AuditAPIHandler(refs *store.ReferenceStore, auditor *service.AuditClient, checklist *standards.Checklist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, found, err := runAudit(c, refs, auditor, checklist)
		if !found && err == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reference not found"})
		}
		if errors.Is(err, context.Canceled) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		if err != nil {
			msg, status := auditFailure(err)
			log.WithError(err).WithField("id", c.Params("id")).Warn("Audit failed")
			return c.Status(status).JSON(fiber.Map{"error": msg})
		}
		return c.JSON(result)
	}
}
