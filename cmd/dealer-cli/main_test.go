package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"smart-dealer/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"dealer-cli"}, args...))
	return out.String(), err
}

func TestSearchCommand_Table(t *testing.T) {
	out, err := run(t, "search", "--limit", "50", "pizza", "in", "Brooklyn")
	require.NoError(t, err)
	assert.Contains(t, out, `food search "pizza in Brooklyn"`)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "Uber Eats")
}

func TestSearchCommand_JSON(t *testing.T) {
	out, err := run(t, "search", "--category", "ride", "--limit", "3", "--format", "json", "to", "JFK")
	require.NoError(t, err)

	var resp search.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ride", string(resp.Category))
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Results[0].Rank)
}

func TestSearchCommand_Errors(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)

	_, err = run(t, "search", "something", "vague")
	assert.ErrorContains(t, err, "UNRESOLVED_CATEGORY")

	_, err = run(t, "search", "--platform", "zomato", "pizza")
	assert.Error(t, err)
}

func TestPlatformsCommand(t *testing.T) {
	out, err := run(t, "platforms")
	require.NoError(t, err)
	for _, want := range []string{"uber_eats", "bestbuy", "lyft", "hotels_com"} {
		assert.Contains(t, out, want)
	}
}

func TestDealsCommand(t *testing.T) {
	out, err := run(t, "deals", "--category", "ride")
	require.NoError(t, err)
	assert.Contains(t, out, "RIDE10")
	assert.NotContains(t, out, "EAT20OFF")
}

func TestDealsCommand_CatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1"
deals:
  - id: grubhub-free-delivery
    description: Free delivery weekend
    type: seasonal
    category: food
    platform: grubhub
    discount_amount: 3.99
`), 0o600))

	out, err := run(t, "--deals-file", path, "deals", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "grubhub-free-delivery")
	assert.NotContains(t, out, "EAT20OFF")
}
