// Package analytics computes aggregate figures over the restaurant records.
package analytics

import (
	"strings"

	"restaurantbot/internal/domain"
)

// GroupPrice is the average price level of the records matching a set of
// category terms. AvgPrice is absent when no matching record had a price.
type GroupPrice struct {
	Terms    []string      `json:"terms"`
	AvgPrice domain.Number `json:"avg_price"`
	Matched  int           `json:"matched"`
	Priced   int           `json:"priced"`
}

// PriceComparison compares two category groups within one city.
type PriceComparison struct {
	City string     `json:"city"`
	A    GroupPrice `json:"a"`
	B    GroupPrice `json:"b"`
}

// ComparePrices averages the price level of two category groups in city.
func ComparePrices(records []domain.Record, city string, a, b []string) PriceComparison {
	return PriceComparison{
		City: city,
		A:    AveragePrice(records, city, a),
		B:    AveragePrice(records, city, b),
	}
}

// AveragePrice averages the price level of records whose city contains city
// and whose categories contain any of terms, all case-insensitive. "$"-runs
// count as their length.
func AveragePrice(records []domain.Record, city string, terms []string) GroupPrice {
	g := GroupPrice{Terms: append([]string(nil), terms...)}
	wantCity := strings.ToLower(strings.TrimSpace(city))
	var sum float64
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.City), wantCity) {
			continue
		}
		if !matchesCategory(r.Categories, terms) {
			continue
		}
		g.Matched++
		if level, ok := r.Price.Level(); ok {
			sum += level
			g.Priced++
		}
	}
	if g.Priced > 0 {
		g.AvgPrice = domain.NumberOf(sum / float64(g.Priced))
	}
	return g
}

func matchesCategory(categories string, terms []string) bool {
	rc := strings.ToLower(strings.TrimSpace(categories))
	for _, t := range terms {
		if strings.Contains(rc, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
