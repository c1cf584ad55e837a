package gather

import (
	"context"

	"kquant/internal/domain"
)

// Compile-time interface check.
var _ Source = (*MarketRouter)(nil)

// MarketRouter dispatches per-symbol fetches to the provider for the symbol's
// market: ".KS"/".KQ" suffixed symbols go to the Korean source, everything
// else to the US source. It lets callers that work across markets (the
// optimizer, the HTTP server) depend on a single Source.
type MarketRouter struct {
	kr Source
	us Source
}

// NewMarketRouter creates a MarketRouter over the two market providers.
func NewMarketRouter(kr, us Source) *MarketRouter {
	return &MarketRouter{kr: kr, us: us}
}

// FetchDailyBars routes the fetch to the provider for the symbol's market.
func (r *MarketRouter) FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	if domain.MarketForSymbol(symbol).IsKorean() {
		return r.kr.FetchDailyBars(ctx, symbol, days)
	}
	return r.us.FetchDailyBars(ctx, symbol, days)
}
