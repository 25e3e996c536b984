package deals

import (
	"context"
	"database/sql"
	"time"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
)

const activeDealsQuery = `
	SELECT id, description, code, deal_type, category, platform,
	       discount_percent, discount_amount, min_order, max_discount,
	       valid_from, valid_until
	FROM deals
	WHERE is_active
	  AND category = $1
	  AND (valid_from IS NULL OR valid_from <= $2)
	  AND (valid_until IS NULL OR valid_until > $2)
	ORDER BY id`

// PostgresSource reads deals from the deals table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) ActiveDeals(ctx context.Context, category models.Category, at time.Time) ([]models.Deal, error) {
	rows, err := s.db.QueryContext(ctx, activeDealsQuery, string(category), at)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError("deal lookup", err)
	}
	defer rows.Close()

	var out []models.Deal
	for rows.Next() {
		var (
			d                                  models.Deal
			dealType, cat, platform            string
			percent, amount, minOrder, maxDisc sql.NullFloat64
			validFrom, validUntil              sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Description, &d.Code, &dealType, &cat, &platform,
			&percent, &amount, &minOrder, &maxDisc, &validFrom, &validUntil); err != nil {
			return nil, apperrors.NewDatabaseQueryError("deal scan", err)
		}
		d.Type = models.DealType(dealType)
		d.Category = models.Category(cat)
		d.Platform = models.Platform(platform)
		d.DiscountPercent = nullFloat(percent)
		d.DiscountAmount = nullFloat(amount)
		d.MinOrder = nullFloat(minOrder)
		d.MaxDiscount = nullFloat(maxDisc)
		d.ValidFrom = nullTime(validFrom)
		d.ValidUntil = nullTime(validUntil)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryError("deal iteration", err)
	}
	return out, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
