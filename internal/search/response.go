package search

import (
	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
)

// State is a search's position in the pipeline.
type State string

const (
	StateReceived    State = "received"
	StateDispatching State = "dispatching"
	StateCollecting  State = "collecting"
	StateEvaluating  State = "evaluating"
	StateRanking     State = "ranking"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Status summarizes adapter health for the caller.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Adapter outcomes, also used as metric labels.
const (
	OutcomeOK        = "ok"
	OutcomeCached    = "cached"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

type Stats struct {
	AdaptersTotal     int `json:"adapters_total"`
	AdaptersSucceeded int `json:"adapters_succeeded"`
	AdaptersFailed    int `json:"adapters_failed"`
	CacheHits         int `json:"cache_hits"`
}

// AdapterReport records how one adapter fared in a search.
type AdapterReport struct {
	Platform   models.Platform `json:"platform"`
	Outcome    string          `json:"outcome"`
	Offers     int             `json:"offers"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

func (r AdapterReport) succeeded() bool {
	return r.Outcome == OutcomeOK || r.Outcome == OutcomeCached
}

// Response is the outcome of one search.
type Response struct {
	SearchID     string                   `json:"search_id"`
	State        State                    `json:"state"`
	Status       Status                   `json:"status"`
	Category     models.Category          `json:"category"`
	Query        string                   `json:"query"`
	Results      []models.RankedResult    `json:"results"`
	DealsFound   []models.Deal            `json:"deals_found"`
	SearchTimeMs int64                    `json:"search_time_ms"`
	Stats        Stats                    `json:"stats"`
	Adapters     []AdapterReport          `json:"adapters"`
	Error        *apperrors.StandardError `json:"error,omitempty"`
}
