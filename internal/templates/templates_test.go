package templates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func seed() []model.Reference {
	return store.SeedReferences(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestDashboard(t *testing.T) {
	refs := seed()
	html := renderString(t, Dashboard(DashboardData{
		Page:    Page{Title: "Dashboard", Nav: NavDashboard, Warning: "Stored data could not be read"},
		Metrics: service.ComputeMetrics(refs),
		Recent:  service.Recent(refs),
	}))

	assert.Contains(t, html, "Stored data could not be read")
	assert.Contains(t, html, `href="/references/ref-1"`)
	assert.Contains(t, html, "GridSystems Global")
	assert.Contains(t, html, `class="active">Dashboard`)
}

func TestLibraryResults_Empty(t *testing.T) {
	html := renderString(t, LibraryResults(LibraryData{Total: 25}))
	assert.Contains(t, html, "No references found")
	assert.NotContains(t, html, "<html")
}

func TestLibrary_KeepsFilterState(t *testing.T) {
	refs := seed()
	q := service.LibraryQuery{Search: "mesh", Section: "Box", Sort: service.SortCustomer}
	html := renderString(t, Library(LibraryData{
		Page:      Page{Title: "Library", Nav: NavLibrary},
		Query:     q,
		Results:   service.Filter(refs, q),
		Total:     len(refs),
		Customers: service.Customers(refs),
		Sections:  model.Sections,
	}))

	assert.Contains(t, html, `value="mesh"`)
	assert.Contains(t, html, `<option value="Box" selected>`)
	assert.Contains(t, html, `<option value="customer" selected>`)
}

func TestReferenceDetail_EmbeddedImage(t *testing.T) {
	ref := seed()[0]
	ref.Image = model.NewEmbeddedImage("data:image/png;base64,AAAA")

	html := renderString(t, ReferenceDetail(DetailData{
		Page:         Page{Title: ref.Title},
		Ref:          ref,
		AuditEnabled: true,
	}))

	assert.Contains(t, html, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, html, `hx-post="/references/ref-1/audit"`)
	assert.Contains(t, html, `<div id="audit-error"></div>`)
	assert.Contains(t, html, "No related references.")
}

func TestAuditResult(t *testing.T) {
	html := renderString(t, AuditResult(AuditData{
		RefID: "ref-1",
		Result: &model.AuditResult{
			ComplianceScore: 64,
			Observations:    []string{"Loose ties"},
			Recommendations: []string{"Re-bundle"},
			Status:          model.AuditAttentionRequired,
		},
	}))
	assert.Contains(t, html, "Attention Required &middot; 64/100")
	assert.Contains(t, html, `class="attention"`)
	assert.Contains(t, html, "Re-bundle")

	assert.Contains(t, html, `<div id="audit-error" hx-swap-oob="true"></div>`)

	html = renderString(t, AuditResult(AuditData{RefID: "ref-1", Error: "image not accessible for analysis"}))
	assert.Contains(t, html, "image not accessible for analysis")
	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "Try again")
	assert.NotContains(t, html, `id="audit-result"`)
	assert.NotContains(t, html, "hx-swap-oob")
}

func TestImageError(t *testing.T) {
	tests := map[string]string{
		model.RuleRequired:  "Add an image URL or upload an image",
		model.RuleURL:       "The image URL must be an absolute http(s) address",
		model.RuleDataURI:   "The embedded image is not a valid data URI",
		model.RuleImageSize: "The uploaded image is too large",
		model.RuleImageType: "The uploaded file is not an image",
	}
	for rule, want := range tests {
		assert.Equal(t, want, imageError(rule), rule)
	}
}

func TestReferenceForm(t *testing.T) {
	ref := seed()[0]
	html := renderString(t, ReferenceForm(FormData{
		Page:       Page{Title: "Edit"},
		Ref:        ref,
		Errors:     model.FieldErrors{"title": "required"},
		Sections:   model.Sections,
		CommonTags: model.CommonTags,
	}))

	assert.Contains(t, html, `action="/references/ref-1"`)
	assert.Contains(t, html, "Title is required")
	assert.Contains(t, html, `value="bundling" checked`)
	assert.Contains(t, html, `value="https://picsum.photos/seed/elec-1/800/600?random=1"`)

	html = renderString(t, ReferenceForm(FormData{IsNew: true, Sections: model.Sections}))
	assert.Contains(t, html, `action="/references"`)
}

func TestStandardsAndSettings(t *testing.T) {
	html := renderString(t, Standards(StandardsData{Checklist: standards.Default()}))
	assert.Contains(t, html, "Mesh Guard Rules")

	html = renderString(t, Settings(SettingsData{StorageDriver: "file", Count: 25, Notice: "Library reset"}))
	assert.Contains(t, html, "Library reset")
	assert.Contains(t, html, "/settings/reset")
}
