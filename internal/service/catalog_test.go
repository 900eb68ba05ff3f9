package service

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

func seedRefs() []model.Reference {
	return store.SeedReferences(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}

func ids(refs []model.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func TestFilter_SearchIsCaseInsensitive(t *testing.T) {
	got := Filter(seedRefs(), LibraryQuery{Search: "gridsystems"})
	assert.Equal(t, []string{"ref-1", "ref-6", "ref-11", "ref-16", "ref-21"}, ids(got))

	got = Filter(seedRefs(), LibraryQuery{Search: "ORD-2023"})
	assert.Len(t, got, 5)

	assert.Empty(t, Filter(seedRefs(), LibraryQuery{Search: "no such thing"}))
}

func TestFilter_SectionAndCustomer(t *testing.T) {
	got := Filter(seedRefs(), LibraryQuery{Section: "Door", Customer: FilterAll})
	assert.Equal(t, []string{"ref-7", "ref-14", "ref-21"}, ids(got))

	got = Filter(seedRefs(), LibraryQuery{Section: "Door", Customer: "GridSystems Global"})
	assert.Equal(t, []string{"ref-21"}, ids(got))
}

func TestFilter_Sort(t *testing.T) {
	refs := seedRefs()
	slices.Reverse(refs)

	newest := Filter(refs, LibraryQuery{Sort: SortNewest})
	require.Len(t, newest, store.SeedSize)
	assert.Equal(t, "ref-1", newest[0].ID)
	assert.Equal(t, "ref-25", newest[len(newest)-1].ID)

	byCustomer := Filter(seedRefs(), LibraryQuery{Sort: SortCustomer})
	assert.Equal(t, "EcoPower Solutions", byCustomer[0].Customer)
	assert.Equal(t, "ref-5", byCustomer[0].ID)

	byOrder := Filter(seedRefs(), LibraryQuery{Sort: SortOrderNum})
	assert.Equal(t, "ORD-2023-999", byOrder[0].OrderNumber)
	assert.Equal(t, "ref-3", byOrder[0].ID)

	assert.Equal(t, "ref-25", refs[0].ID, "input must not be reordered")
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortCustomer, ParseSortOrder("customer"))
	assert.Equal(t, SortOrderNum, ParseSortOrder("order"))
	assert.Equal(t, SortNewest, ParseSortOrder(""))
	assert.Equal(t, SortNewest, ParseSortOrder("oldest"))
}

func TestCustomers(t *testing.T) {
	assert.Equal(t, []string{
		"GridSystems Global", "MegaCorp Industrial", "VoltGen Energy", "Vertex Manufacturing", "EcoPower Solutions",
	}, Customers(seedRefs()))
}

func TestRelated(t *testing.T) {
	refs := seedRefs()

	got := Related(refs, refs[0])
	assert.Equal(t, []string{"ref-3", "ref-6", "ref-10", "ref-11"}, ids(got))

	lonely := model.Reference{ID: "x", Customer: "Nobody", Tags: []string{"unused"}}
	assert.Empty(t, Related(refs, lonely))
}

func TestRecent(t *testing.T) {
	refs := seedRefs()
	slices.Reverse(refs)

	got := Recent(refs)
	assert.Equal(t, []string{"ref-1", "ref-2", "ref-3", "ref-4", "ref-5", "ref-6", "ref-7", "ref-8"}, ids(got))
	assert.Len(t, Recent(refs[:3]), 3)
}
