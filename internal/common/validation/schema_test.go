package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequestSchema(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantField string
	}{
		{name: "query only", body: `{"query": "pizza"}`, wantValid: true},
		{name: "full request", body: `{"query": "pizza", "category": "food", "max_price": 25, "max_results": 5, "platforms": ["doordash"]}`, wantValid: true},
		{name: "missing query", body: `{"category": "food"}`, wantValid: false, wantField: "(root)"},
		{name: "empty query", body: `{"query": ""}`, wantValid: false, wantField: "query"},
		{name: "unknown category", body: `{"query": "x", "category": "flights"}`, wantValid: false, wantField: "category"},
		{name: "zero max price", body: `{"query": "x", "max_price": 0}`, wantValid: false, wantField: "max_price"},
		{name: "too many results", body: `{"query": "x", "max_results": 500}`, wantValid: false, wantField: "max_results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := SearchRequest.Validate([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid, res.Summary())
			if tt.wantField != "" {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
			}
		})
	}
}

func TestProfileUpdateSchema(t *testing.T) {
	res, err := ProfileUpdate.Validate([]byte(`{"weights": {"price": 0.5, "time": 0.2, "rating": 0.2, "fee": 0.1, "preference": 0}}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = ProfileUpdate.Validate([]byte(`{"preferred_platforms": {"doordash": 1.5}}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Summary(), "preferred_platforms.doordash")
}

func TestValidate_MalformedDocument(t *testing.T) {
	_, err := SearchRequest.Validate([]byte(`{"query":`))
	assert.Error(t, err)
}
