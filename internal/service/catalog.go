package service

import (
	"slices"
	"strings"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

const (
	// FilterAll disables a customer or section filter
	FilterAll = "all"

	relatedLimit = 4
	recentLimit  = 8
)

// SortOrder is how library results are ordered
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortCustomer SortOrder = "customer"
	SortOrderNum SortOrder = "order"
)

// ParseSortOrder returns the named order, or SortNewest for anything unknown
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortCustomer, SortOrderNum:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

// LibraryQuery holds the library search and filter state
type LibraryQuery struct {
	Search   string
	Customer string
	Section  string
	Sort     SortOrder
}

// Matches reports whether ref passes the search and filters
func (q LibraryQuery) Matches(ref model.Reference) bool {
	if q.Customer != "" && q.Customer != FilterAll && ref.Customer != q.Customer {
		return false
	}
	if q.Section != "" && q.Section != FilterAll && string(ref.Section) != q.Section {
		return false
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	if term == "" {
		return true
	}
	fields := []string{ref.Title, ref.Customer, ref.OrderNumber, ref.Notes}
	fields = append(fields, ref.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Filter returns the matching references in the requested order. The input
// slice is not modified.
func Filter(refs []model.Reference, q LibraryQuery) []model.Reference {
	out := make([]model.Reference, 0, len(refs))
	for _, r := range refs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}

	switch q.Sort {
	case SortCustomer:
		slices.SortStableFunc(out, func(a, b model.Reference) int {
			return strings.Compare(strings.ToLower(a.Customer), strings.ToLower(b.Customer))
		})
	case SortOrderNum:
		slices.SortStableFunc(out, func(a, b model.Reference) int {
			return strings.Compare(a.OrderNumber, b.OrderNumber)
		})
	default:
		sortNewest(out)
	}
	return out
}

func sortNewest(refs []model.Reference) {
	slices.SortStableFunc(refs, func(a, b model.Reference) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// Customers returns the distinct customer names in first-seen order
func Customers(refs []model.Reference) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range refs {
		if !seen[r.Customer] {
			seen[r.Customer] = true
			out = append(out, r.Customer)
		}
	}
	return out
}

// Related returns up to four other references sharing the customer or a
// tag with ref, in collection order
func Related(refs []model.Reference, ref model.Reference) []model.Reference {
	var out []model.Reference
	for _, r := range refs {
		if r.ID == ref.ID {
			continue
		}
		if r.Customer == ref.Customer || slices.ContainsFunc(r.Tags, ref.HasTag) {
			out = append(out, r)
			if len(out) == relatedLimit {
				break
			}
		}
	}
	return out
}

// Recent returns the eight most recently created references
func Recent(refs []model.Reference) []model.Reference {
	out := slices.Clone(refs)
	sortNewest(out)
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}
