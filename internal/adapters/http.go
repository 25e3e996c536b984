package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "smart-dealer/internal/common/errors"
	apphttp "smart-dealer/internal/common/http"
	"smart-dealer/internal/models"
)

// maxResponseBytes bounds how much of a platform response is read.
const maxResponseBytes = 4 << 20

type searchRequest struct {
	Query          string   `json:"query"`
	Category       string   `json:"category"`
	Location       string   `json:"location,omitempty"`
	MaxPrice       *float64 `json:"max_price,omitempty"`
	MaxTimeMinutes *int     `json:"max_time_minutes,omitempty"`
}

type searchResponse struct {
	Offers []models.Offer `json:"offers"`
}

// HTTPAdapter posts the intent to a platform endpoint and normalizes the JSON
// offers it returns.
type HTTPAdapter struct {
	platform models.Platform
	category models.Category
	endpoint string
	client   *apphttp.Client
}

func NewHTTPAdapter(p models.Platform, endpoint string, client *apphttp.Client) (*HTTPAdapter, error) {
	c, ok := p.Category()
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPlatform, p)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured for %s", p)
	}
	return &HTTPAdapter{platform: p, category: c, endpoint: endpoint, client: client}, nil
}

// RegisterHTTP registers one HTTPAdapter per configured endpoint.
func RegisterHTTP(r *Registry, endpoints map[string]string, client *apphttp.Client) error {
	for id, endpoint := range endpoints {
		p, err := models.ParsePlatform(id)
		if err != nil {
			return err
		}
		a, err := NewHTTPAdapter(p, endpoint, client)
		if err != nil {
			return err
		}
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPAdapter) Platform() models.Platform { return h.platform }

func (h *HTTPAdapter) Search(ctx context.Context, intent models.SearchIntent) ([]models.Offer, error) {
	body, err := json.Marshal(searchRequest{
		Query:          intent.Query,
		Category:       string(intent.Category),
		Location:       intent.Constraints.Location,
		MaxPrice:       intent.Constraints.MaxPrice,
		MaxTimeMinutes: intent.Constraints.MaxTimeMinutes,
	})
	if err != nil {
		return nil, apperrors.NewAdapterError(string(h.platform), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewAdapterError(string(h.platform), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewAdapterError(string(h.platform), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewAdapterError(string(h.platform), fmt.Errorf("platform returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, apperrors.NewAdapterError(string(h.platform), fmt.Errorf("decode response: %w", err))
	}

	offers := make([]models.Offer, 0, len(payload.Offers))
	for _, o := range payload.Offers {
		o.Platform = h.platform
		o.Category = h.category
		if o.DealsApplied == nil {
			o.DealsApplied = []string{}
		}
		if err := o.Validate(); err != nil {
			return nil, apperrors.NewAdapterError(string(h.platform), err)
		}
		// platforms report totals their own way; ours always reconcile
		offers = append(offers, o.Reconcile())
	}
	return offers, nil
}
