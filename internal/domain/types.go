package domain

import (
	"encoding/json"
	"math"
)

// Record is one indexed menu item. Its position in the metadata array is the
// row of its vector in the internal index; records carry no key of their own.
type Record struct {
	RestaurantName string `json:"restaurant_name"`
	Categories     string `json:"categories"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        Code   `json:"zip_code"`
	Rating         Number `json:"rating"`
	Price          Price  `json:"price"`
	ReviewCount    Number `json:"review_count"`
	ItemID         Code   `json:"item_id"`
	Confidence     Number `json:"confidence"`
	Text           string `json:"text"`
	Source         string `json:"source,omitempty"`
	SourceID       Code   `json:"source_id,omitempty"`
}

// Chunk is a bounded slice of a Wikipedia page or RSS article body.
// Published is nil when the feed entry carried no date.
type Chunk struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Published *string `json:"published"`
	Text      string  `json:"text"`
}

// FilterSpec constrains internal search results. A nil or empty field places
// no constraint on that dimension.
type FilterSpec struct {
	City          *string  `json:"city,omitempty"`
	State         *string  `json:"state,omitempty"`
	CategoriesAny []string `json:"categories_any,omitempty"`
	MinRating     *float64 `json:"min_rating,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	ConfidenceMin *float64 `json:"confidence_min,omitempty"`
}

// Clone returns a copy that shares no pointers with f.
func (f FilterSpec) Clone() FilterSpec {
	out := FilterSpec{
		City:          cloneString(f.City),
		State:         cloneString(f.State),
		MinRating:     cloneFloat(f.MinRating),
		MaxPrice:      cloneFloat(f.MaxPrice),
		ConfidenceMin: cloneFloat(f.ConfidenceMin),
	}
	if len(f.CategoriesAny) > 0 {
		out.CategoriesAny = append([]string(nil), f.CategoriesAny...)
	}
	return out
}

// Ptr returns a pointer to v. Handy for building filter specs.
func Ptr[T any](v T) *T { return &v }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Score is a similarity score. Non-finite values encode as JSON null.
type Score float64

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// RecordHit is an internal record matched by a query. Row is the record's
// position in the metadata array.
type RecordHit struct {
	Score Score `json:"score"`
	Row   int   `json:"-"`
	Record
}

// ChunkHit is an external chunk matched by a query.
type ChunkHit struct {
	Score Score `json:"score"`
	Row   int   `json:"-"`
	Chunk
}

// Bundle is the evidence returned by dual retrieval. Scores from the two
// lists come from different indexes and are not comparable.
type Bundle struct {
	Internal []RecordHit `json:"internal"`
	External []ChunkHit  `json:"external"`
}

// Citation is a tagged reference to a bundle entry (IN-n or EX-n).
type Citation struct {
	Tag            string  `json:"tag"`
	Source         string  `json:"source"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
	City           string  `json:"city,omitempty"`
	State          string  `json:"state,omitempty"`
	ItemID         Code    `json:"item_id,omitempty"`
	Title          string  `json:"title,omitempty"`
	URL            string  `json:"url,omitempty"`
	Published      *string `json:"published,omitempty"`
}

// Sample is a title and url kept as evidence for a trend bucket.
type Sample struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TrendBucket counts matching documents published in one calendar month.
type TrendBucket struct {
	Month   string   `json:"month"`
	Count   int      `json:"count"`
	Samples []Sample `json:"samples"`
}
