package api

import (
	"encoding/json"
	"net/http"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/metrics"
)

type errorBody struct {
	Error *apperrors.StandardError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err with the status for its code. Errors outside the
// standard set are reported as INTERNAL_ERROR without their text.
func writeError(w http.ResponseWriter, err error) {
	se, ok := apperrors.AsStandard(err)
	if !ok {
		se = apperrors.NewInternalError(err)
	}
	metrics.ErrorsTotal.WithLabelValues(apperrors.GetErrorCategory(se.Code), string(se.Code)).Inc()
	writeJSON(w, apperrors.HTTPStatus(se.Code), errorBody{Error: se})
}

func invalidRequest(details string) *apperrors.StandardError {
	return apperrors.NewInvalidRequestError(details)
}

func internalError() *apperrors.StandardError {
	return apperrors.NewInternalError(nil)
}
