// Package kquant is a Go SDK for the kquant-server HTTP API. The types here
// mirror the server's JSON payloads so consumers stay decoupled from the
// server internals.
package kquant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the server has nothing for the requested
// symbol.
var ErrNotFound = errors.New("kquant: not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kquant: server returned %d: %s", e.Status, e.Message)
}

// ---------------------------------------------------------------------------
// Payload types
// ---------------------------------------------------------------------------

// ParameterSet is one strategy parameter configuration.
type ParameterSet struct {
	RSIOversold int     `json:"rsi_oversold"`
	BBPeriod    int     `json:"bb_period"`
	BBStd       float64 `json:"bb_std"`
	EMAFast     int     `json:"ema_fast"`
	EMASlow     int     `json:"ema_slow"`
	TargetPct   float64 `json:"target_pct"`
	StopPct     float64 `json:"stop_pct"`
}

// Outcome is one stored optimization outcome.
type Outcome struct {
	Symbol              string       `json:"symbol"`
	Market              string       `json:"market"`
	Best                ParameterSet `json:"best"`
	TrainSharpe         float64      `json:"train_sharpe"`
	TestSharpe          float64      `json:"test_sharpe"`
	TestWinRate         float64      `json:"test_win_rate"`
	SharpeDivergencePct float64      `json:"sharpe_divergence_pct"`
	Verdict             string       `json:"verdict"`
	CreatedAt           time.Time    `json:"created_at"`
}

// MonteCarloResult is the bootstrap return distribution of a run.
type MonteCarloResult struct {
	Simulations       int     `json:"simulations"`
	TradesPerSim      int     `json:"trades_per_sim"`
	MedianReturnPct   float64 `json:"median_return_pct"`
	MeanReturnPct     float64 `json:"mean_return_pct"`
	StdReturnPct      float64 `json:"std_return_pct"`
	Percentile5       float64 `json:"percentile_5"`
	Percentile25      float64 `json:"percentile_25"`
	Percentile75      float64 `json:"percentile_75"`
	Percentile95      float64 `json:"percentile_95"`
	ProbPositive      float64 `json:"prob_positive"`
	ProbTarget        float64 `json:"prob_target"`
	MedianMaxDrawdown float64 `json:"median_max_drawdown"`
	VaR95             float64 `json:"var_95"`
}

// RiskMetrics are risk-adjusted performance measures of a run.
type RiskMetrics struct {
	Sharpe               float64 `json:"sharpe"`
	Sortino              float64 `json:"sortino"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	Calmar               float64 `json:"calmar"`
	Omega                float64 `json:"omega"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	RecoveryFactor       float64 `json:"recovery_factor"`
}

// OptimizeResult is the response of an on-demand optimization.
type OptimizeResult struct {
	Outcome    *Outcome          `json:"outcome"`
	MonteCarlo *MonteCarloResult `json:"monte_carlo,omitempty"`
	Risk       *RiskMetrics      `json:"risk_metrics,omitempty"`
}

// ParamsEntry is the active parameter assignment for one symbol.
type ParamsEntry struct {
	Symbol    string       `json:"symbol"`
	Market    string       `json:"market"`
	Params    ParameterSet `json:"params"`
	Verdict   string       `json:"verdict"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IndicatorSnapshot summarizes the latest indicator values for one symbol.
type IndicatorSnapshot struct {
	Symbol        string  `json:"symbol"`
	RSI           float64 `json:"rsi"`
	BBPercentB    float64 `json:"bb_pctb"`
	BBBandwidth   float64 `json:"bb_bandwidth"`
	MACDHistogram float64 `json:"macd_histogram"`
	MACDCross     int     `json:"macd_signal_cross"`
	ATR           float64 `json:"atr"`
	ATRPct        float64 `json:"atr_pct"`
	EMA50         float64 `json:"ema_50"`
	EMA200        float64 `json:"ema_200"`
	GoldenCross   bool    `json:"golden_cross"`
	DeadCross     bool    `json:"dead_cross"`
	High52W       float64 `json:"high_52w"`
	High20D       float64 `json:"high_20d"`
	VolumeRatio   float64 `json:"volume_ratio"`
	BBSqueeze     bool    `json:"bb_squeeze"`
	Return3MPct   float64 `json:"return_3m_pct"`
}

type optimizeRequest struct {
	Symbol string `json:"symbol"`
	Market string `json:"market,omitempty"`
}

type outcomesResponse struct {
	Symbol   string    `json:"symbol"`
	Outcomes []Outcome `json:"outcomes"`
}

type paramsResponse struct {
	Params map[string]ParamsEntry `json:"params"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client talks to a kquant-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8090".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Optimize runs the optimization pipeline for a symbol. market may be empty,
// in which case the server infers it from the symbol suffix.
func (c *Client) Optimize(ctx context.Context, symbol, market string) (*OptimizeResult, error) {
	var res OptimizeResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/optimize", optimizeRequest{Symbol: symbol, Market: market}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Outcomes lists a symbol's stored outcomes, newest first. limit 0 uses the
// server default.
func (c *Client) Outcomes(ctx context.Context, symbol string, limit int) ([]Outcome, error) {
	path := "/api/v1/outcomes/" + url.PathEscape(symbol)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp outcomesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Outcomes, nil
}

// LatestOutcome returns the symbol's most recent outcome, or ErrNotFound.
func (c *Client) LatestOutcome(ctx context.Context, symbol string) (*Outcome, error) {
	outcomes, err := c.Outcomes(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: no outcome for %s", ErrNotFound, symbol)
	}
	return &outcomes[0], nil
}

// Params returns the active parameter assignment for every symbol.
func (c *Client) Params(ctx context.Context) (map[string]ParamsEntry, error) {
	var resp paramsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/params", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Params, nil
}

// ParamsFor returns one symbol's active parameters, or ErrNotFound.
func (c *Client) ParamsFor(ctx context.Context, symbol string) (*ParamsEntry, error) {
	var entry ParamsEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/params/"+url.PathEscape(symbol), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Indicators returns the latest indicator snapshot for a symbol.
func (c *Client) Indicators(ctx context.Context, symbol string) (*IndicatorSnapshot, error) {
	var snap IndicatorSnapshot
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/indicators/"+url.PathEscape(symbol), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("kquant: unexpected health status %q", resp.Status)
	}
	return nil
}

// doJSON performs one request/response cycle with JSON bodies on both ends.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
