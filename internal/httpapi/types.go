package httpapi

import (
	"time"

	"kquant/internal/domain"
	"kquant/internal/tradeparams"
)

// OptimizeRequest is the body of POST /api/v1/optimize. Market is optional;
// when absent it is inferred from the symbol's listing suffix.
type OptimizeRequest struct {
	Symbol string `json:"symbol"`
	Market string `json:"market,omitempty"`
}

// OutcomesResponse lists a symbol's stored outcomes, newest first.
type OutcomesResponse struct {
	Symbol   string                       `json:"symbol"`
	Outcomes []domain.OptimizationOutcome `json:"outcomes"`
}

// ParamsResponse maps symbols to their published best parameters.
type ParamsResponse struct {
	Params map[string]tradeparams.Entry `json:"params"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
