package service

import (
	"fmt"

	"restaurantbot/internal/domain"
)

// Citations tags internal hits IN-1.. and external hits EX-1.. in bundle order.
func Citations(b domain.Bundle) []domain.Citation {
	out := make([]domain.Citation, 0, len(b.Internal)+len(b.External))
	for i, h := range b.Internal {
		out = append(out, domain.Citation{
			Tag:            fmt.Sprintf("IN-%d", i+1),
			Source:         "internal",
			RestaurantName: h.RestaurantName,
			City:           h.City,
			State:          h.State,
			ItemID:         h.SourceID,
		})
	}
	for i, h := range b.External {
		src := h.Source
		if src == "" {
			src = "external"
		}
		out = append(out, domain.Citation{
			Tag:       fmt.Sprintf("EX-%d", i+1),
			Source:    src,
			Title:     h.Title,
			URL:       h.URL,
			Published: h.Published,
		})
	}
	return out
}
