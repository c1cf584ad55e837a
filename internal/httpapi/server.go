// Package httpapi serves the optimization REST API: on-demand runs, outcome
// history, published parameters (polled or streamed), and indicator
// snapshots.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kquant/internal/domain"
	"kquant/internal/gather"
	"kquant/internal/indicator"
	"kquant/internal/service"
	"kquant/internal/store"
	"kquant/internal/tradeparams"
)

// snapshotHistoryDays is the bar history fetched for an indicator snapshot:
// enough for the 52-week high and the 200-day EMA.
const snapshotHistoryDays = 260

// Server serves the kquant HTTP API.
type Server struct {
	optimizer *service.Optimizer
	outcomes  store.OutcomeStore
	params    *tradeparams.Store
	source    gather.Source
	log       *slog.Logger
}

// NewServer creates a Server wired with the given dependencies.
func NewServer(
	optimizer *service.Optimizer,
	outcomes store.OutcomeStore,
	params *tradeparams.Store,
	source gather.Source,
) *Server {
	return &Server{
		optimizer: optimizer,
		outcomes:  outcomes,
		params:    params,
		source:    source,
		log:       slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/optimize", s.handleOptimize)
	mux.HandleFunc("GET /api/v1/outcomes/{symbol}", s.handleOutcomes)
	mux.HandleFunc("GET /api/v1/params", s.handleParamsList)
	mux.HandleFunc("GET /api/v1/params/events", s.handleParamsEvents)
	mux.HandleFunc("GET /api/v1/params/{symbol}", s.handleParamsGet)
	mux.HandleFunc("GET /api/v1/indicators/{symbol}", s.handleIndicators)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	market := domain.MarketForSymbol(req.Symbol)
	if req.Market != "" {
		m, err := domain.ParseMarket(req.Market)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		market = m
	}

	res, err := s.optimizer.Run(r.Context(), req.Symbol, market)
	switch {
	case errors.Is(err, service.ErrNoUsableResult):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.log.Error("optimize failed", "symbol", req.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "optimization failed")
	default:
		writeJSON(w, res)
	}
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	outcomes, err := s.outcomes.ListOutcomes(r.Context(), symbol, limit)
	if err != nil {
		s.log.Error("listing outcomes", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}
	if outcomes == nil {
		outcomes = []domain.OptimizationOutcome{}
	}
	writeJSON(w, OutcomesResponse{Symbol: symbol, Outcomes: outcomes})
}

func (s *Server) handleParamsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ParamsResponse{Params: s.params.Snapshot()})
}

func (s *Server) handleParamsGet(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	entry, found := s.params.Get(symbol)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no parameters for %s", symbol))
		return
	}
	writeJSON(w, entry)
}

// handleParamsEvents streams parameter updates as server-sent events: one
// snapshot event on connect, then a set/delete event per store change.
func (s *Server) handleParamsEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id, events := s.params.Subscribe(16)
	defer s.params.Unsubscribe(id)

	sendEvent(w, tradeparams.Event{Type: "snapshot", Data: s.params.Snapshot()})
	flusher.Flush()

	s.log.Info("params stream connected", "remote", r.RemoteAddr)
	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("params stream disconnected", "remote", r.RemoteAddr)
			return
		case ev, open := <-events:
			if !open {
				return
			}
			sendEvent(w, ev)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func sendEvent(w http.ResponseWriter, ev tradeparams.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encoding stream event", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	bars, err := s.source.FetchDailyBars(r.Context(), symbol, snapshotHistoryDays)
	if err != nil {
		s.log.Warn("snapshot bar fetch failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("no bars for %s", symbol))
		return
	}

	snap, err := indicator.ComputeSnapshot(bars)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}
