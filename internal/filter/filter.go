// Package filter evaluates restaurant records against a FilterSpec.
package filter

import (
	"strings"

	"restaurantbot/internal/domain"
)

// Passes reports whether r satisfies every constraint present in f.
// Dimensions are ANDed; CategoriesAny is an OR across its terms.
//
// City and state reject records that lack the field. The numeric floors and
// the price ceiling are lenient: a record whose value is missing or
// unparsable passes that dimension, because upstream data often omits them.
func Passes(r domain.Record, f domain.FilterSpec) bool {
	if f.City != nil && !equalFold(r.City, *f.City) {
		return false
	}
	if f.State != nil && !equalFold(r.State, *f.State) {
		return false
	}
	if len(f.CategoriesAny) > 0 && !containsAny(r.Categories, f.CategoriesAny) {
		return false
	}
	if f.MinRating != nil {
		if v, ok := r.Rating.Float(); ok && v < *f.MinRating {
			return false
		}
	}
	if f.MaxPrice != nil {
		if level, ok := r.Price.Level(); ok && level > *f.MaxPrice {
			return false
		}
	}
	if f.ConfidenceMin != nil {
		if v, ok := r.Confidence.Float(); ok && v < *f.ConfidenceMin {
			return false
		}
	}
	return true
}

// equalFold compares trimmed values case-insensitively. An empty record
// value never matches.
func equalFold(have, want string) bool {
	have = strings.TrimSpace(have)
	if have == "" {
		return false
	}
	return strings.EqualFold(have, strings.TrimSpace(want))
}

func containsAny(haystack string, terms []string) bool {
	h := strings.ToLower(haystack)
	for _, t := range terms {
		if strings.Contains(h, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
