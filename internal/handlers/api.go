package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

func apiError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// validationError writes field errors as {"error": ..., "fields": {...}}
func validationError(c *fiber.Ctx, err error) error {
	var fieldErrs model.FieldErrors
	if errors.As(err, &fieldErrs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "invalid reference",
			"fields": fieldErrs,
		})
	}
	return apiError(c, fiber.StatusBadRequest, err.Error())
}

// ListReferencesAPIHandler returns the collection, filtered and sorted by
// the same query parameters as the library page
func ListReferencesAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := refs.LoadAll(c.UserContext())
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return apiError(c, fiber.StatusInternalServerError, "error loading references")
		}
		if c.Query("q") == "" && c.Query("customer") == "" && c.Query("section") == "" && c.Query("sort") == "" {
			return c.JSON(all)
		}
		return c.JSON(service.Filter(all, libraryQuery(c)))
	}
}

func GetReferenceAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := refs.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			log.WithError(err).Error("Error loading reference")
			return apiError(c, fiber.StatusInternalServerError, "error loading reference")
		}
		if ref == nil {
			return apiError(c, fiber.StatusNotFound, "reference not found")
		}
		return c.JSON(ref)
	}
}

func CreateReferenceAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var ref model.Reference
		if err := c.BodyParser(&ref); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := model.Validate(ref); err != nil {
			return validationError(c, err)
		}

		if ref.ID != "" {
			existing, err := refs.Get(ctx, ref.ID)
			if err != nil {
				log.WithError(err).Error("Error loading reference")
				return apiError(c, fiber.StatusInternalServerError, "error loading reference")
			}
			if existing != nil {
				return apiError(c, fiber.StatusConflict, "reference already exists")
			}
		}

		saved, err := refs.Upsert(ctx, ref)
		if err != nil {
			log.WithError(err).Error("Error saving reference")
			return apiError(c, fiber.StatusInternalServerError, "error saving reference")
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	}
}

func UpdateReferenceAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")

		existing, err := refs.Get(ctx, id)
		if err != nil {
			log.WithError(err).Error("Error loading reference")
			return apiError(c, fiber.StatusInternalServerError, "error loading reference")
		}
		if existing == nil {
			return apiError(c, fiber.StatusNotFound, "reference not found")
		}

		var ref model.Reference
		if err := c.BodyParser(&ref); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid JSON body")
		}
		ref.ID = id
		if err := model.Validate(ref); err != nil {
			return validationError(c, err)
		}

		saved, err := refs.Upsert(ctx, ref)
		if err != nil {
			log.WithError(err).Error("Error saving reference")
			return apiError(c, fiber.StatusInternalServerError, "error saving reference")
		}
		return c.JSON(saved)
	}
}

// DeleteReferenceAPIHandler succeeds whether or not the reference exists
func DeleteReferenceAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refs.Delete(c.UserContext(), c.Params("id")); err != nil {
			log.WithError(err).Error("Error deleting reference")
			return apiError(c, fiber.StatusInternalServerError, "error deleting reference")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func ResetAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refs.Reset(c.UserContext()); err != nil {
			log.WithError(err).Error("Error resetting references")
			return apiError(c, fiber.StatusInternalServerError, "error resetting references")
		}
		return c.JSON(fiber.Map{"count": len(refs.Seed())})
	}
}

func MetricsAPIHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := refs.LoadAll(c.UserContext())
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return apiError(c, fiber.StatusInternalServerError, "error loading references")
		}
		return c.JSON(service.ComputeMetrics(all))
	}
}
