package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
)

const (
	selectProfileQuery = `SELECT user_id, weights, preferred_platforms, budget_max, default_location, updated_at FROM user_profiles WHERE user_id = $1`

	upsertProfileQuery = `
	INSERT INTO user_profiles (user_id, weights, preferred_platforms, budget_max, default_location, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (user_id) DO UPDATE SET
		weights = EXCLUDED.weights,
		preferred_platforms = EXCLUDED.preferred_platforms,
		budget_max = EXCLUDED.budget_max,
		default_location = EXCLUDED.default_location,
		updated_at = now()`
)

// PostgresStore keeps profiles in the user_profiles table. Weights and
// preferences are JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (Profile, error) {
	var (
		p                    Profile
		weights, preferences []byte
		budget               sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, selectProfileQuery, userID).Scan(
		&p.UserID, &weights, &preferences, &budget, &p.DefaultLocation, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, apperrors.NewProfileNotFoundError(userID)
		}
		return Profile{}, apperrors.NewDatabaseQueryError("profile lookup", err)
	}

	if err := json.Unmarshal(weights, &p.Weights); err != nil {
		return Profile{}, apperrors.NewDatabaseQueryError("profile decode", fmt.Errorf("weights: %w", err))
	}
	if len(preferences) > 0 {
		if err := json.Unmarshal(preferences, &p.PreferredPlatforms); err != nil {
			return Profile{}, apperrors.NewDatabaseQueryError("profile decode", fmt.Errorf("preferred_platforms: %w", err))
		}
	}
	if p.PreferredPlatforms == nil {
		p.PreferredPlatforms = map[models.Platform]float64{}
	}
	if budget.Valid {
		v := budget.Float64
		p.BudgetMax = &v
	}
	return p, nil
}

func (s *PostgresStore) Put(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	weights, err := json.Marshal(p.Weights)
	if err != nil {
		return err
	}
	preferences, err := json.Marshal(p.PreferredPlatforms)
	if err != nil {
		return err
	}

	var budget interface{}
	if p.BudgetMax != nil {
		budget = *p.BudgetMax
	}

	if _, err := s.db.ExecContext(ctx, upsertProfileQuery,
		p.UserID, weights, preferences, budget, p.DefaultLocation); err != nil {
		return apperrors.NewDatabaseQueryError("profile upsert", err)
	}
	return nil
}
