package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

func TestSeedReferences_Shape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed := SeedReferences(now)

	require.Len(t, seed, SeedSize)

	first := seed[0]
	assert.Equal(t, "ref-1", first.ID)
	assert.Equal(t, "GridSystems Global", first.Customer)
	assert.Equal(t, "ORD-2024-002", first.OrderNumber)
	assert.Equal(t, model.SectionBox, first.Section)
	assert.Equal(t, "Box Wiring - GridSystems Global", first.Title)
	assert.Equal(t, []string{"bundling", "torque"}, first.Tags)
	assert.Equal(t, "Standard Box wiring configuration for GridSystems Global. Inspection passed for bundling and torque requirements.", first.Notes)
	assert.True(t, first.Image.IsURL())
	assert.Equal(t, "https://picsum.photos/seed/elec-1/800/600?random=1", first.Image.Value())
	assert.True(t, first.CreatedAt.Equal(now.Add(-24*time.Hour)))
	assert.True(t, first.UpdatedAt.Equal(now.Add(-12*time.Hour)))

	seen := make(map[string]bool)
	for i, ref := range seed {
		assert.False(t, seen[ref.ID], "duplicate id %s", ref.ID)
		seen[ref.ID] = true
		assert.True(t, ref.Section.Valid())
		assert.False(t, ref.UpdatedAt.Before(ref.CreatedAt), "%s updatedAt before createdAt", ref.ID)
		if i > 0 {
			assert.True(t, ref.CreatedAt.Before(seed[i-1].CreatedAt), "%s should be older than %s", ref.ID, seed[i-1].ID)
		}
	}
}

func TestSeedReferences_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if diff := cmp.Diff(SeedReferences(now), SeedReferences(now)); diff != "" {
		t.Errorf("seed generation is not reproducible:\n%s", diff)
	}
}
