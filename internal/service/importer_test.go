package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

func newImportTarget(t *testing.T) (*store.ReferenceStore, *Importer) {
	t.Helper()
	s := store.NewReferenceStore(store.NewMemoryBackend(), store.WithLogger(logging.Discard()))
	imp := NewImporter(s)
	imp.logger = logging.Discard()
	return s, imp
}

const importDoc = `[
  {"id": "ref-1", "title": "Box Wiring - GridSystems Global", "customer": "GridSystems Global",
   "orderNumber": "ORD-2024-002", "section": "Box", "tags": ["bundling", "torque"],
   "notes": "Re-inspected", "image": {"type": "url", "value": "https://example.com/box.jpg"}},
  {"id": "imp-1", "title": "Door Wiring - Acme", "customer": "Acme", "orderNumber": "ORD-9",
   "section": "Door", "tags": [], "notes": "", "image": {"type": "url", "value": "https://example.com/door.jpg"},
   "createdAt": "2024-01-02T03:04:05Z"},
  {"id": "bad-1", "title": "", "customer": "Acme", "orderNumber": "ORD-9", "section": "Roof"}
]`

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	s, imp := newImportTarget(t)

	stats, err := imp.Import(ctx, strings.NewReader(importDoc))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Total: 3, Imported: 2, Changed: 2, Skipped: 1}, *stats)

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, store.SeedSize+1)

	updated, err := s.Get(ctx, "ref-1")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Re-inspected", updated.Notes)

	added, err := s.Get(ctx, "imp-1")
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Equal(t, "2024-01-02T03:04:05Z", added.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))

	missing, err := s.Get(ctx, "bad-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestImporter_ReimportIsUnchanged(t *testing.T) {
	ctx := context.Background()
	_, imp := newImportTarget(t)

	_, err := imp.Import(ctx, strings.NewReader(importDoc))
	require.NoError(t, err)

	stats, err := imp.Import(ctx, strings.NewReader(importDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Unchanged)
	assert.Zero(t, stats.Changed)
}

func TestImporter_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, imp := newImportTarget(t)

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, refs))

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	stats, err := imp.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, store.SeedSize, stats.Unchanged)
}

func TestImporter_RejectsNonArray(t *testing.T) {
	_, imp := newImportTarget(t)

	_, err := imp.Import(context.Background(), strings.NewReader(`{"id": "x"}`))
	assert.Error(t, err)

	_, err = imp.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
