package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

// SeedSize is the number of references in the seed set
const SeedSize = 25

var (
	seedCustomers = []string{"EcoPower Solutions", "GridSystems Global", "MegaCorp Industrial", "VoltGen Energy", "Vertex Manufacturing"}
	seedOrders    = []string{"ORD-2024-001", "ORD-2024-002", "ORD-2024-055", "ORD-2023-999", "ORD-2025-010"}
)

// SeedReferences builds the seed set relative to now. The output depends on
// nothing but now: ref-1 is the most recent, and each following record was
// created a day earlier and updated half a day earlier than the previous one.
func SeedReferences(now time.Time) []model.Reference {
	now = now.UTC().Truncate(time.Millisecond)
	seed := make([]model.Reference, 0, SeedSize)

	for i := 1; i <= SeedSize; i++ {
		customer := seedCustomers[i%len(seedCustomers)]
		order := seedOrders[i%len(seedOrders)]
		section := model.Sections[i%len(model.Sections)]
		tags := []string{
			model.CommonTags[i%len(model.CommonTags)],
			model.CommonTags[(i+2)%len(model.CommonTags)],
		}

		seed = append(seed, model.Reference{
			ID:          fmt.Sprintf("ref-%d", i),
			Title:       fmt.Sprintf("%s Wiring - %s", section, customer),
			Customer:    customer,
			OrderNumber: order,
			Section:     section,
			Tags:        tags,
			Notes: fmt.Sprintf("Standard %s wiring configuration for %s. Inspection passed for %s requirements.",
				section, customer, strings.Join(tags, " and ")),
			Image:     model.NewURLImage(fmt.Sprintf("https://picsum.photos/seed/elec-%d/800/600?random=%d", i, i)),
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
			UpdatedAt: now.Add(-time.Duration(i) * 12 * time.Hour),
		})
	}

	return seed
}

func cloneReferences(refs []model.Reference) []model.Reference {
	out := make([]model.Reference, len(refs))
	for i, r := range refs {
		out[i] = r.Clone()
	}
	return out
}
