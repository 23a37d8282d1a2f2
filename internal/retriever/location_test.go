package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantbot/internal/domain"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		city     *string
		autoCity bool
		wantQ    string
		wantCity *string
	}{
		{"near me injects default", "tacos near me", nil, true, "tacos", domain.Ptr("San Francisco")},
		{"near me case and spacing", "best  Ramen NEAR   Me tonight", nil, true, "best Ramen tonight", domain.Ptr("San Francisco")},
		{"no city injects default", "dim sum", nil, true, "dim sum", domain.Ptr("San Francisco")},
		{"explicit city wins", "sushi near me", domain.Ptr("Oakland"), true, "sushi", domain.Ptr("Oakland")},
		{"blank city treated as unset", "pho", domain.Ptr("  "), true, "pho", domain.Ptr("San Francisco")},
		{"auto city off", "tacos near me", nil, false, "tacos", nil},
		{"word boundary", "nearmeadow bistro", nil, false, "nearmeadow bistro", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domain.FilterSpec{City: tt.city, CategoriesAny: []string{"mexican"}}
			q, f := Rewrite(tt.query, in, "San Francisco", tt.autoCity)
			assert.Equal(t, tt.wantQ, q)
			if tt.wantCity == nil {
				assert.Nil(t, f.City)
			} else {
				require.NotNil(t, f.City)
				assert.Equal(t, *tt.wantCity, *f.City)
			}
			assert.Equal(t, []string{"mexican"}, f.CategoriesAny)
		})
	}
}

func TestRewriteLeavesInputUntouched(t *testing.T) {
	in := domain.FilterSpec{MinRating: domain.Ptr(4.0)}
	_, out := Rewrite("near me", in, "San Francisco", true)
	assert.Nil(t, in.City)
	*out.MinRating = 1
	assert.Equal(t, 4.0, *in.MinRating)
}

func TestRewriteIsIdempotent(t *testing.T) {
	q1, f1 := Rewrite("ramen near me", domain.FilterSpec{}, "San Francisco", true)
	q2, f2 := Rewrite(q1, f1, "San Francisco", true)
	assert.Equal(t, q1, q2)
	assert.Equal(t, f1, f2)
}
