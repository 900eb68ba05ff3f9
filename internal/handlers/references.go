package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/templates"
)

const (
	// DefaultImageURL prefills the image of a new reference
	DefaultImageURL = "https://picsum.photos/800/600?industrial"

	maxUploadBytes = 5 << 20
)

var (
	errUploadTooLarge = errors.New("uploaded image is too large")
	errUploadNotImage = errors.New("uploaded file is not an image")
)

func ReferenceDetailHandler(refs *store.ReferenceStore, auditEnabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, warning, err := loadReferences(c.UserContext(), refs)
		if err != nil {
			log.WithError(err).Error("Error loading references")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading reference")
		}

		idx := slices.IndexFunc(all, func(r model.Reference) bool { return r.ID == c.Params("id") })
		if idx < 0 {
			return c.Status(fiber.StatusNotFound).SendString("Reference not found")
		}
		ref := all[idx]

		page := templates.ReferenceDetail(templates.DetailData{
			Page:         templates.Page{Title: ref.Title, Nav: templates.NavLibrary, Warning: warning},
			Ref:          ref,
			Related:      service.Related(all, ref),
			AuditEnabled: auditEnabled,
		})
		return render(c, page)
	}
}

func formPage(ref model.Reference, isNew bool, errs model.FieldErrors) templates.FormData {
	title, nav := "Edit "+ref.Title, templates.NavLibrary
	if isNew {
		title, nav = "New Reference", templates.NavNew
	}

	var extra []string
	for _, t := range ref.Tags {
		if !slices.Contains(model.CommonTags, t) {
			extra = append(extra, t)
		}
	}

	return templates.FormData{
		Page:       templates.Page{Title: title, Nav: nav},
		Ref:        ref,
		IsNew:      isNew,
		Errors:     errs,
		Sections:   model.Sections,
		CommonTags: model.CommonTags,
		ExtraTags:  strings.Join(extra, ", "),
	}
}

func NewReferenceFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref := model.Reference{
			Section: model.SectionDoor,
			Image:   model.NewURLImage(DefaultImageURL),
		}
		return render(c, templates.ReferenceForm(formPage(ref, true, nil)))
	}
}

func EditReferenceFormHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := refs.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			log.WithError(err).Error("Error loading reference")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading reference")
		}
		if ref == nil {
			return c.Status(fiber.StatusNotFound).SendString("Reference not found")
		}
		return render(c, templates.ReferenceForm(formPage(*ref, false, nil)))
	}
}

// SaveReferenceHandler creates a reference, or replaces the one named by
// the id route parameter
func SaveReferenceHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")
		isNew := id == ""

		var base model.Reference
		if !isNew {
			existing, err := refs.Get(ctx, id)
			if err != nil {
				log.WithError(err).Error("Error loading reference")
				return c.Status(fiber.StatusInternalServerError).SendString("Error loading reference")
			}
			if existing == nil {
				return c.Status(fiber.StatusNotFound).SendString("Reference not found")
			}
			base = *existing
		}

		ref, imageRule, err := referenceFromForm(c, base)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}

		fieldErrs := model.FieldErrors{}
		if err := model.Validate(ref); err != nil && !errors.As(err, &fieldErrs) {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		if imageRule != "" {
			fieldErrs["image"] = imageRule
		}
		if len(fieldErrs) > 0 {
			return renderStatus(c, fiber.StatusUnprocessableEntity, templates.ReferenceForm(formPage(ref, isNew, fieldErrs)))
		}

		saved, err := refs.Upsert(ctx, ref)
		if err != nil {
			log.WithError(err).Error("Error saving reference")
			return c.Status(fiber.StatusInternalServerError).SendString("Error saving reference")
		}

		log.WithField("id", saved.ID).Info("Reference saved")
		return redirect(c, "/references/"+saved.ID)
	}
}

func DeleteReferenceHandler(refs *store.ReferenceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refs.Delete(c.UserContext(), c.Params("id")); err != nil {
			log.WithError(err).Error("Error deleting reference")
			return c.Status(fiber.StatusInternalServerError).SendString("Error deleting reference")
		}
		return redirect(c, "/library")
	}
}

// referenceFromForm applies the submitted form fields on top of base. An
// uploaded file wins over an image URL; with neither, an embedded image on
// base is kept. A rejected upload is reported as an image rule.
func referenceFromForm(c *fiber.Ctx, base model.Reference) (model.Reference, string, error) {
	ref := base.Clone()
	ref.Title = strings.TrimSpace(c.FormValue("title"))
	ref.Customer = strings.TrimSpace(c.FormValue("customer"))
	ref.OrderNumber = strings.TrimSpace(c.FormValue("orderNumber"))
	ref.Section = model.Section(c.FormValue("section"))
	ref.Notes = strings.TrimSpace(c.FormValue("notes"))

	ref.Tags = nil
	for _, t := range formValues(c, "tags") {
		ref.AddTag(strings.TrimSpace(t))
	}
	for _, t := range strings.Split(c.FormValue("extraTags"), ",") {
		ref.AddTag(strings.TrimSpace(t))
	}

	var imageRule string
	img, err := uploadedImage(c)
	switch {
	case errors.Is(err, errUploadTooLarge):
		imageRule = model.RuleImageSize
	case errors.Is(err, errUploadNotImage):
		imageRule = model.RuleImageType
	case err != nil:
		return ref, "", err
	}
	switch url := strings.TrimSpace(c.FormValue("imageUrl")); {
	case !img.IsZero():
		ref.Image = img
	case url != "":
		ref.Image = model.NewURLImage(url)
	case !base.Image.IsEmbedded():
		ref.Image = model.Image{}
	}

	return ref, imageRule, nil
}

// formValues returns every value submitted for key
func formValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil {
		return form.Value[key]
	}
	var out []string
	for _, v := range c.Request().PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

// uploadedImage turns an uploaded image file into an embedded data string
func uploadedImage(c *fiber.Ctx) (model.Image, error) {
	fh, err := c.FormFile("imageFile")
	if err != nil || fh.Size == 0 {
		return model.Image{}, nil
	}
	if fh.Size > maxUploadBytes {
		return model.Image{}, fmt.Errorf("%w: %d bytes", errUploadTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read upload: %w", err)
	}

	mt := mimetype.Detect(data).String()
	if !strings.HasPrefix(mt, "image/") {
		return model.Image{}, fmt.Errorf("%w: %s", errUploadNotImage, mt)
	}
	return model.NewEmbeddedImage("data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}
