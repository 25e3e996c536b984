package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/validation"
	"smart-dealer/internal/models"
	"smart-dealer/internal/profile"
)

// profileUpdate is a partial update; absent fields keep their stored value.
type profileUpdate struct {
	Weights            *models.WeightVector `json:"weights"`
	PreferredPlatforms map[string]float64   `json:"preferred_platforms"`
	BudgetMax          *float64             `json:"budget_max"`
	DefaultLocation    *string              `json:"default_location"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, apperrors.NewProfileNotFoundError(r.PathValue("id")))
		return
	}

	p, err := s.profiles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.profiles == nil {
		writeError(w, apperrors.NewConfigurationError("no profile store configured"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, invalidRequest("could not read request body"))
		return
	}
	result, err := validation.ProfileUpdate.Validate(body)
	if err != nil {
		writeError(w, invalidRequest("body is not valid JSON"))
		return
	}
	if !result.Valid {
		writeError(w, invalidRequest(result.Summary()))
		return
	}

	var update profileUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		writeError(w, invalidRequest(err.Error()))
		return
	}

	current, err := s.profiles.Get(r.Context(), userID)
	switch {
	case errors.Is(err, apperrors.ErrProfileNotFound):
		current = profile.Default(userID)
	case err != nil:
		writeError(w, err)
		return
	}

	if update.Weights != nil {
		current.Weights = *update.Weights
	}
	if update.PreferredPlatforms != nil {
		prefs := make(map[models.Platform]float64, len(update.PreferredPlatforms))
		for id, v := range update.PreferredPlatforms {
			p, err := models.ParsePlatform(id)
			if err != nil {
				writeError(w, invalidRequest(err.Error()).WithMetadata("platform", id))
				return
			}
			prefs[p] = v
		}
		current.PreferredPlatforms = prefs
	}
	if update.BudgetMax != nil {
		current.BudgetMax = update.BudgetMax
	}
	if update.DefaultLocation != nil {
		current.DefaultLocation = *update.DefaultLocation
	}

	if err := s.profiles.Put(r.Context(), current); err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("profile updated", map[string]interface{}{"userId": userID})
	writeJSON(w, http.StatusOK, saved)
}
