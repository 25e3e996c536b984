package intent

import (
	"errors"
	"testing"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(logger.NewTestLogger(t))

	tests := []struct {
		name         string
		query        string
		explicit     models.Category
		wantCategory models.Category
		wantItem     string
		wantBudget   *float64
		wantMinutes  *int
		wantLocation string
	}{
		{
			name:         "food with budget and location",
			query:        "find me the cheapest pizza in Brooklyn under $20",
			wantCategory: models.CategoryFood,
			wantItem:     "pizza",
			wantBudget:   models.Float64Ptr(20),
			wantLocation: "Brooklyn",
		},
		{
			name:         "ride with time limit",
			query:        "ride to the airport within 15 minutes",
			wantCategory: models.CategoryRide,
			wantItem:     "ride to the airport",
			wantMinutes:  models.IntPtr(15),
			wantLocation: "airport",
		},
		{
			name:         "hotel with max budget",
			query:        "hotel near Central Park for 2 nights max $200",
			wantCategory: models.CategoryHotel,
			wantItem:     "hotel",
			wantBudget:   models.Float64Ptr(200),
			wantLocation: "Central Park",
		},
		{
			name:         "minutes are not a budget",
			query:        "tacos delivered in under 30 minutes",
			wantCategory: models.CategoryFood,
			wantItem:     "tacos delivered",
			wantMinutes:  models.IntPtr(30),
		},
		{
			name:         "product with decimal budget",
			query:        "search for wireless headphones up to $89.99",
			wantCategory: models.CategoryProduct,
			wantItem:     "wireless headphones",
			wantBudget:   models.Float64Ptr(89.99),
		},
		{
			name:         "explicit category skips detection",
			query:        "something for the weekend",
			explicit:     models.CategoryHotel,
			wantCategory: models.CategoryHotel,
			wantItem:     "something",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.query, tt.explicit)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCategory, res.Category)
			assert.Equal(t, tt.wantItem, res.Item)
			assert.Equal(t, tt.wantBudget, res.MaxPrice)
			assert.Equal(t, tt.wantMinutes, res.MaxTimeMinutes)
			assert.Equal(t, tt.wantLocation, res.Location)
			if tt.explicit != "" {
				assert.Zero(t, res.KeywordHits)
			} else {
				assert.Positive(t, res.KeywordHits)
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	p := NewParser(logger.NewNoOpLogger())

	_, err := p.Parse("xyzzy plugh", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnresolvedCategory))

	_, err = p.Parse("   ", "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))

	_, err = p.Parse("pizza", models.Category("groceries"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		query string
		want  models.Category
		hits  int
	}{
		{"price check headphones", models.CategoryProduct, 2},
		{"cheapest sushi", models.CategoryFood, 1},
		{"Uber or Lyft to the airport", models.CategoryRide, 3},
		{"bed and breakfast check-in friday", models.CategoryHotel, 2},
		{"bubble tea", models.CategoryFood, 1},
		{"nothing relevant", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, hits := detectCategory(tt.query)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.hits, hits)
		})
	}
}

func TestResult_Constraints(t *testing.T) {
	parsed := Result{
		MaxPrice:       models.Float64Ptr(25),
		MaxTimeMinutes: models.IntPtr(40),
		Location:       "Boston",
	}

	merged := parsed.Constraints(models.Constraints{MaxPrice: models.Float64Ptr(15), MaxResults: 5})
	assert.Equal(t, 15.0, *merged.MaxPrice)
	assert.Equal(t, 40, *merged.MaxTimeMinutes)
	assert.Equal(t, "Boston", merged.Location)
	assert.Equal(t, 5, merged.MaxResults)
}
