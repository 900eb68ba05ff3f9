package handlers

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

var log = logging.New("http")

const recoveredWarning = "Stored references could not be read, so the sample set is shown. " +
	"Saving or resetting will replace the unreadable data."

func render(c *fiber.Ctx, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page))
	return handler(c)
}

func renderStatus(c *fiber.Ctx, status int, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page, templ.WithStatus(status)))
	return handler(c)
}

func isHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

// redirect sends the browser to path, using HX-Redirect for HTMX requests
func redirect(c *fiber.Ctx, path string) error {
	if isHTMX(c) {
		c.Set("HX-Redirect", path)
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Redirect(path, fiber.StatusSeeOther)
}

// loadReferences returns the collection and a warning for the page when it
// came from the seed set because the stored data was unreadable
func loadReferences(ctx context.Context, refs *store.ReferenceStore) ([]model.Reference, string, error) {
	res, err := refs.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	if res.Source == store.SourceRecovered {
		return res.References, recoveredWarning, nil
	}
	return res.References, "", nil
}
