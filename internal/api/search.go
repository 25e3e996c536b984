package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/validation"
	"smart-dealer/internal/models"
	"smart-dealer/internal/search"
)

// searchRequest is the POST /api/search/ body. The quick endpoint builds the
// same struct from query parameters.
type searchRequest struct {
	Query      string   `json:"query"`
	Category   string   `json:"category,omitempty"`
	UserID     string   `json:"user_id,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	MaxTime    *int     `json:"max_time,omitempty"`
	Location   string   `json:"location,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	Platforms  []string `json:"platforms,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, invalidRequest("could not read request body"))
		return
	}

	result, err := validation.SearchRequest.Validate(body)
	if err != nil {
		writeError(w, invalidRequest("body is not valid JSON"))
		return
	}
	if !result.Valid {
		writeError(w, invalidRequest(result.Summary()))
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, invalidRequest(err.Error()))
		return
	}
	s.serveSearch(w, r, req)
}

func (s *Server) handleQuickSearch(w http.ResponseWriter, r *http.Request) {
	req, err := quickRequest(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	s.serveSearch(w, r, req)
}

func quickRequest(q url.Values) (searchRequest, error) {
	req := searchRequest{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		UserID:   q.Get("user_id"),
		Location: q.Get("location"),
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, invalidRequest("q is required")
	}

	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price <= 0 {
			return req, invalidRequest("max_price must be a positive number")
		}
		req.MaxPrice = &price
	}
	if v := q.Get("max_time"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return req, invalidRequest("max_time must be a positive integer")
		}
		req.MaxTime = &minutes
	}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			return req, invalidRequest("max_results must be between 1 and 100")
		}
		req.MaxResults = n
	}
	if v := q.Get("platforms"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				req.Platforms = append(req.Platforms, p)
			}
		}
	}
	return req, nil
}

func (s *Server) serveSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, apperrors.NewRateLimitedError(s.perMinute))
		return
	}

	searchIntent, err := s.buildIntent(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.searcher.Search(r.Context(), searchIntent)
	switch {
	case err == nil:
		resp.Query = req.Query
		writeJSON(w, http.StatusOK, resp)
	case resp != nil && errors.Is(err, apperrors.ErrNoOffersFound):
		resp.Query = req.Query
		writeJSON(w, http.StatusServiceUnavailable, resp)
	case errors.Is(err, context.Canceled):
		s.logger.Info("client went away during search", map[string]interface{}{"query": req.Query})
	default:
		s.logger.Error("search failed", map[string]interface{}{"query": req.Query, "error": err.Error()})
		writeError(w, err)
	}
}

// buildIntent parses the free text query and overlays the explicit fields.
// A known user's profile fills in location and budget when the request
// leaves them out.
func (s *Server) buildIntent(ctx context.Context, req searchRequest) (models.SearchIntent, error) {
	var explicit models.Category
	if req.Category != "" {
		c, err := models.ParseCategory(req.Category)
		if err != nil {
			return models.SearchIntent{}, invalidRequest(err.Error())
		}
		explicit = c
	}

	parsed, err := s.parser.Parse(req.Query, explicit)
	if err != nil {
		return models.SearchIntent{}, err
	}

	constraints := models.Constraints{
		MaxPrice:       req.MaxPrice,
		MaxTimeMinutes: req.MaxTime,
		Location:       strings.TrimSpace(req.Location),
		MaxResults:     req.MaxResults,
	}
	for _, id := range req.Platforms {
		p, err := models.ParsePlatform(id)
		if err != nil {
			return models.SearchIntent{}, invalidRequest(err.Error()).WithMetadata("platform", id)
		}
		constraints.Platforms = append(constraints.Platforms, p)
	}
	constraints = parsed.Constraints(constraints)

	if req.UserID != "" && s.profiles != nil {
		if p, err := s.profiles.Get(ctx, req.UserID); err == nil {
			if constraints.Location == "" {
				constraints.Location = p.DefaultLocation
			}
			if constraints.MaxPrice == nil && p.BudgetMax != nil {
				budget := *p.BudgetMax
				constraints.MaxPrice = &budget
			}
		}
	}

	query := parsed.Item
	if query == "" {
		query = req.Query
	}
	searchIntent, err := models.NewSearchIntent(parsed.Category, query, constraints, req.UserID)
	if err != nil {
		return models.SearchIntent{}, invalidRequest(err.Error())
	}
	return searchIntent, nil
}

var _ Searcher = (*search.Orchestrator)(nil)
