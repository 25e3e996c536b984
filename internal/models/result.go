package models

// ScoreBreakdown exposes the normalized sub-scores behind a value score.
type ScoreBreakdown struct {
	Price      float64 `json:"price"`
	Time       float64 `json:"time"`
	Rating     float64 `json:"rating"`
	Fee        float64 `json:"fee"`
	Preference float64 `json:"preference"`
}

// RankedResult is an offer annotated by the ranking engine.
type RankedResult struct {
	Offer
	ValueScore   float64        `json:"value_score"`
	Rank         int            `json:"rank"`
	SavingsVsMax float64        `json:"savings_vs_max"`
	Scores       ScoreBreakdown `json:"score_breakdown"`
}
