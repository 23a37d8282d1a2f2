package retriever

import (
	"regexp"
	"strings"

	"restaurantbot/internal/domain"
)

var nearMeRe = regexp.MustCompile(`(?i)\bnear\s+me\b`)

// Rewrite strips a "near me" phrase from query and, when autoCity is set and
// the caller gave no city (or asked for "near me"), fills in defaultCity.
// An explicit city in f always wins. f itself is not modified.
func Rewrite(query string, f domain.FilterSpec, defaultCity string, autoCity bool) (string, domain.FilterSpec) {
	out := f.Clone()
	if out.City != nil && strings.TrimSpace(*out.City) == "" {
		out.City = nil
	}
	needsDefault := nearMeRe.MatchString(query)
	cleaned := strings.Join(strings.Fields(nearMeRe.ReplaceAllString(query, " ")), " ")
	if out.City == nil {
		needsDefault = true
	}
	if autoCity && needsDefault && out.City == nil && strings.TrimSpace(defaultCity) != "" {
		out.City = domain.Ptr(strings.TrimSpace(defaultCity))
	}
	return cleaned, out
}
