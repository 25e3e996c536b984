package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smart-dealer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogV1 = `
version: "1"
deals:
  - id: deal-doordash-dash5
    description: $5 off orders over $25
    code: DASH5
    type: promo_code
    category: food
    platform: doordash
    discount_amount: 5
    min_order: 25
  - id: deal-booking-seasonal
    description: "Summer sale: 15% off hotels"
    type: seasonal
    category: hotel
    platform: booking
    discount_percent: 15
    valid_until: 2030-09-01T00:00:00Z
`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "deals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDeals(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogV1)

	deals, err := LoadDeals(path)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	assert.Equal(t, "DASH5", deals[0].Code)
	assert.Equal(t, models.PlatformDoorDash, deals[0].Platform)
	require.NotNil(t, deals[0].MinOrder)
	assert.Equal(t, 25.0, *deals[0].MinOrder)

	require.NotNil(t, deals[1].ValidUntil)
	assert.Equal(t, 2030, deals[1].ValidUntil.Year())
}

func TestLoadDeals_ShippedCatalog(t *testing.T) {
	deals, err := LoadDeals(filepath.Join("..", "..", "configs", "deals.yaml"))
	require.NoError(t, err)
	assert.Len(t, deals, 8)

	byCategory := map[models.Category]int{}
	for _, d := range deals {
		byCategory[d.Category]++
	}
	assert.Equal(t, map[models.Category]int{
		models.CategoryFood:    2,
		models.CategoryProduct: 2,
		models.CategoryRide:    2,
		models.CategoryHotel:   2,
	}, byCategory)
}

func TestLoadDeals_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "deals: [\n"},
		{"platform outside category", "deals:\n  - id: x\n    category: food\n    platform: uber\n    discount_amount: 1\n"},
		{"duplicate id", "deals:\n  - id: x\n    category: food\n    discount_amount: 1\n  - id: x\n    category: food\n    discount_amount: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDeals(writeCatalog(t, t.TempDir(), tt.body))
			assert.Error(t, err)
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogV1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []models.Deal, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(d []models.Deal) { changes <- d }, func(error) {})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeCatalog(t, dir, "deals:\n  - id: only\n    category: ride\n    platform: uber\n    discount_amount: 10\n")

	select {
	case deals := <-changes:
		require.Len(t, deals, 1)
		assert.Equal(t, "only", deals[0].ID)
	case <-time.After(3 * time.Second):
		t.Fatal("catalog reload not observed")
	}

	cancel()
	assert.NoError(t, <-done)
}
