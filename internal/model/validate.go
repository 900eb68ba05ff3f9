package model

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rules reported for the image field
const (
	RuleRequired  = "required"
	RuleURL       = "url"
	RuleDataURI   = "datauri"
	RuleImageSize = "size"
	RuleImageType = "mimetype"
)

// FieldErrors maps a JSON field name to the rule it failed
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range slices.Sorted(maps.Keys(e)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "invalid reference: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("section", func(fl validator.FieldLevel) bool {
		return Section(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the editable fields of a reference. Failures are
// returned as FieldErrors.
func Validate(r Reference) error {
	errs := FieldErrors{}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			// tags[2] -> tags
			field, _, _ := strings.Cut(fe.Field(), "[")
			if _, seen := errs[field]; !seen {
				errs[field] = fe.Tag()
			}
		}
	}

	if rule := validateImage(r.Image); rule != "" {
		errs["image"] = rule
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateImage requires exactly one image representation
func validateImage(img Image) string {
	switch img.Kind() {
	case ImageURL:
		u, err := url.Parse(img.Value())
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return RuleURL
		}
	case ImageEmbedded:
		if !strings.HasPrefix(img.Value(), "data:image/") || !strings.Contains(img.Value(), ",") {
			return RuleDataURI
		}
	default:
		return RuleRequired
	}
	return ""
}
