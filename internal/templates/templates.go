// Package templates renders the reference library pages as templ
// components. The *_templ.go files are generated from the .templ sources.
package templates

//go:generate templ generate

import (
	"net/url"
	"time"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
)

// Nav identifies the active navigation entry
type Nav string

const (
	NavDashboard Nav = "dashboard"
	NavLibrary   Nav = "library"
	NavNew       Nav = "new"
	NavStandards Nav = "standards"
	NavSettings  Nav = "settings"
)

// Page carries what the layout needs on every page
type Page struct {
	Title string
	Nav   Nav
	// Warning is shown above the page content, e.g. after a storage recovery
	Warning string
}

// DashboardData is the data for the dashboard
type DashboardData struct {
	Page
	Metrics *service.LibraryMetrics
	Recent  []model.Reference
}

// LibraryData is the data for the library page and its results partial
type LibraryData struct {
	Page
	Query     service.LibraryQuery
	Results   []model.Reference
	Total     int
	Customers []string
	Sections  []model.Section
}

// DetailData is the data for a single reference
type DetailData struct {
	Page
	Ref          model.Reference
	Related      []model.Reference
	AuditEnabled bool
}

// FormData is the data for the create and edit form
type FormData struct {
	Page
	Ref        model.Reference
	IsNew      bool
	Errors     model.FieldErrors
	Sections   []model.Section
	CommonTags []string
	// ExtraTags are tags on the reference that are not in CommonTags
	ExtraTags string
}

// Action is where the form posts to
func (d FormData) Action() string {
	if d.IsNew {
		return "/references"
	}
	return "/references/" + d.Ref.ID
}

// AuditData is the data for the audit result partial
type AuditData struct {
	RefID  string
	Result *model.AuditResult
	Error  string
}

// StandardsData is the data for the standards page
type StandardsData struct {
	Page
	Checklist *standards.Checklist
}

// SettingsData is the data for the settings page
type SettingsData struct {
	Page
	StorageDriver string
	StorageKey    string
	Source        string
	Count         int
	Notice        string
}

type sortOption struct {
	Order service.SortOrder
	Label string
}

var sortOptions = []sortOption{
	{service.SortNewest, "Sort by Newest"},
	{service.SortCustomer, "Sort by Customer"},
	{service.SortOrderNum, "Sort by Order"},
}

func referencePath(id string) string {
	return "/references/" + id
}

// libraryPath links to the library filtered by a single query parameter
func libraryPath(key, value string) string {
	return "/library?" + url.Values{key: {value}}.Encode()
}

func firstTags(tags []string, n int) []string {
	if len(tags) > n {
		return tags[:n]
	}
	return tags
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func statusClass(s model.AuditStatus) string {
	switch s {
	case model.AuditPass:
		return "pass"
	case model.AuditFail:
		return "fail"
	default:
		return "attention"
	}
}

// imageURLValue prefills the URL input; embedded images are shown as a
// thumbnail instead
func imageURLValue(img model.Image) string {
	if img.IsURL() {
		return img.Value()
	}
	return ""
}

// imageError describes a failed image rule to the operator
func imageError(rule string) string {
	switch rule {
	case model.RuleRequired:
		return "Add an image URL or upload an image"
	case model.RuleImageSize:
		return "The uploaded image is too large"
	case model.RuleImageType:
		return "The uploaded file is not an image"
	case model.RuleDataURI:
		return "The embedded image is not a valid data URI"
	default:
		return "The image URL must be an absolute http(s) address"
	}
}
