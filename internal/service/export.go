package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

const (
	// XLSXContentType is the media type of ExportXLSX output
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	referencesSheet = "References"
	sectionsSheet   = "Sections"
)

var exportHeadings = []any{
	"ID", "Title", "Customer", "Order Number", "Section", "Tags", "Notes", "Image", "Created", "Updated",
}

// ExportJSON writes refs as an indented JSON array that Import accepts
func ExportJSON(w io.Writer, refs []model.Reference) error {
	if refs == nil {
		refs = []model.Reference{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(refs); err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}
	return nil
}

// ExportXLSX writes a workbook with one row per reference and a sheet of
// per-section counts
func ExportXLSX(w io.Writer, refs []model.Reference) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", referencesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(referencesSheet, "A1", &exportHeadings); err != nil {
		return fmt.Errorf("failed to write headings: %w", err)
	}

	for i, r := range refs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID,
			r.Title,
			r.Customer,
			r.OrderNumber,
			string(r.Section),
			strings.Join(r.Tags, ", "),
			r.Notes,
			exportImage(r.Image),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(referencesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(sectionsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := f.SetSheetRow(sectionsSheet, "A1", &[]any{"Section", "References"}); err != nil {
		return err
	}
	for i, sc := range ComputeMetrics(refs).Sections {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sectionsSheet, cell, &[]any{string(sc.Section), sc.Count}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// exportImage keeps URLs and replaces embedded data, which can exceed the
// spreadsheet cell limit
func exportImage(img model.Image) string {
	switch img.Kind() {
	case model.ImageURL:
		return img.Value()
	case model.ImageEmbedded:
		return "(embedded image)"
	default:
		return ""
	}
}
