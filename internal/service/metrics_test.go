package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

func TestComputeMetrics_Seed(t *testing.T) {
	m := ComputeMetrics(seedRefs())

	assert.Equal(t, 25, m.TotalReferences)
	assert.Equal(t, 5, m.UniqueCustomers)
	assert.Equal(t, 5, m.UniqueOrders)
	assert.Equal(t, 25, m.TaggedReferences)

	require.Len(t, m.Sections, len(model.Sections))
	assert.Equal(t, SectionCount{Section: model.SectionDoor, Count: 3}, m.Sections[0])
	assert.Equal(t, SectionCount{Section: model.SectionBox, Count: 4}, m.Sections[1])
	assert.Equal(t, 4, m.MaxSectionCount())

	require.Len(t, m.TopCustomers, 5)
	assert.Equal(t, CustomerCount{Customer: "GridSystems Global", Count: 5}, m.TopCustomers[0])
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil)

	assert.Zero(t, m.TotalReferences)
	assert.Zero(t, m.MaxSectionCount())
	assert.Len(t, m.Sections, len(model.Sections))
	assert.Empty(t, m.TopCustomers)
}

func TestComputeMetrics_UntaggedNotCounted(t *testing.T) {
	refs := []model.Reference{
		{ID: "a", Customer: "Acme", OrderNumber: "1", Section: model.SectionBox},
		{ID: "b", Customer: "Acme", OrderNumber: "1", Section: model.SectionBox, Tags: []string{"mesh"}},
	}
	m := ComputeMetrics(refs)

	assert.Equal(t, 1, m.TaggedReferences)
	assert.Equal(t, 1, m.UniqueCustomers)
	assert.Equal(t, 1, m.UniqueOrders)
}
