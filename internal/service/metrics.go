package service

import (
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

// SectionCount is the number of references documenting one panel section
type SectionCount struct {
	Section model.Section `json:"section"`
	Count   int           `json:"count"`
}

// CustomerCount is the number of references for one customer
type CustomerCount struct {
	Customer string `json:"customer"`
	Count    int    `json:"count"`
}

// LibraryMetrics represents the dashboard figures for the whole library
type LibraryMetrics struct {
	TotalReferences  int             `json:"totalReferences"`
	UniqueCustomers  int             `json:"uniqueCustomers"`
	UniqueOrders     int             `json:"uniqueOrders"`
	TaggedReferences int             `json:"taggedReferences"`
	Sections         []SectionCount  `json:"sections"`
	TopCustomers     []CustomerCount `json:"topCustomers"`
}

const topCustomerLimit = 5

// ComputeMetrics calculates library-wide metrics. Every section is listed,
// including those with no references.
func ComputeMetrics(refs []model.Reference) *LibraryMetrics {
	m := &LibraryMetrics{TotalReferences: len(refs)}

	orders := make(map[string]bool)
	perSection := make(map[model.Section]int)
	perCustomer := make(map[string]int)

	for _, r := range refs {
		orders[r.OrderNumber] = true
		perSection[r.Section]++
		perCustomer[r.Customer]++
		if len(r.Tags) > 0 {
			m.TaggedReferences++
		}
	}

	m.UniqueCustomers = len(perCustomer)
	m.UniqueOrders = len(orders)

	for _, s := range model.Sections {
		m.Sections = append(m.Sections, SectionCount{Section: s, Count: perSection[s]})
	}

	for _, c := range Customers(refs) {
		if len(m.TopCustomers) == topCustomerLimit {
			break
		}
		m.TopCustomers = append(m.TopCustomers, CustomerCount{Customer: c, Count: perCustomer[c]})
	}

	return m
}

// MaxSectionCount returns the largest per-section count, for scaling charts
func (m *LibraryMetrics) MaxSectionCount() int {
	max := 0
	for _, s := range m.Sections {
		if s.Count > max {
			max = s.Count
		}
	}
	return max
}
