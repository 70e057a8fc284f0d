package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stableyield/autopilot/internal/config"
	"github.com/stableyield/autopilot/internal/datafetcher"
	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/planner"
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/state"
	"github.com/stableyield/autopilot/internal/types"
	"github.com/stableyield/autopilot/internal/wallet"
)

var webLogger = logger.GetForComponent("web_server")

// StrategyEngine is the surface the handlers need from the engine.
type StrategyEngine interface {
	RankFromFeed(ctx context.Context, preferences types.Preferences) types.RankResult
	RankRows(rows []types.RawRow, preferences types.Preferences) types.RankResult
	ScoreCandidate(candidate types.Candidate, preferences types.Preferences) types.RankedCandidate
	CompilePlan(ctx context.Context, req planner.PlanRequest) (types.PlanResponse, error)
	PoolHistory(ctx context.Context, poolID string, days int) (datafetcher.PoolHistory, bool)
}

// WebServer handles HTTP requests for the strategy API
type WebServer struct {
	router *mux.Router
	engine StrategyEngine
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, engine StrategyEngine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: engine,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// Router exposes the configured router for tests.
func (ws *WebServer) Router() http.Handler {
	return ws.router
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health and metrics (direct routes)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/strategy/rank", ws.handleRank).Methods("GET", "POST")
	api.HandleFunc("/strategy/score", ws.handleScore).Methods("POST")
	api.HandleFunc("/strategy/plan", ws.handlePlan).Methods("POST")
	api.HandleFunc("/yields", ws.handleYields).Methods("GET")
	api.HandleFunc("/yields/pool-history", ws.handlePoolHistory).Methods("GET")
	api.HandleFunc("/preferences", ws.handleListPreferences).Methods("GET")
	api.HandleFunc("/preferences/{name}", ws.handleGetPreferences).Methods("GET")
	api.HandleFunc("/preferences/{name}", ws.handlePutPreferences).Methods("PUT")
	api.HandleFunc("/preferences/{name}/snapshots", ws.handleRankSnapshots).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if state.DB == nil || state.DB.Ping() != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "stablecoin-yield-autopilot",
			"version": "1.0.0",
		},
		"autopilot_status": map[string]interface{}{
			"database_healthy": dbHealthy,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

type rankRequest struct {
	Preferences *types.Preferences `json:"preferences"`
	Profile     string             `json:"profile"`
	Rows        []types.RawRow     `json:"rows"`
}

// handleRank ranks the current market (or caller-supplied rows) under the
// resolved preferences: explicit body preferences win, then a named stored
// profile, then the defaults. The GET variant takes its preferences from the
// query string instead of a body.
func (ws *WebServer) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.Profile = r.URL.Query().Get("profile")
		if prefs, ok := queryPreferences(r.URL.Query()); ok {
			req.Preferences = &prefs
		}
	}

	preferences, err := ws.resolvePreferences(req.Preferences, req.Profile)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Preference profile not found")
		return
	}

	var result types.RankResult
	if len(req.Rows) > 0 {
		result = ws.engine.RankRows(req.Rows, preferences)
	} else {
		result = ws.engine.RankFromFeed(r.Context(), preferences)
	}

	rankRequestsTotal.WithLabelValues(result.DataQuality).Inc()

	if req.Profile != "" && state.DB != nil {
		if err := state.SaveRankSnapshot(req.Profile, result); err != nil {
			webLogger.Warn().Err(err).Str("profile", req.Profile).Msg("Failed to persist rank snapshot")
		}
	}

	ws.writeJSONResponse(w, http.StatusOK, result)
}

// queryPreferences maps rank query parameters onto the defaults. ok is false
// when the query carries none of the recognized keys, so profile and default
// resolution still apply.
func queryPreferences(q url.Values) (types.Preferences, bool) {
	prefs := config.DefaultPreferences
	found := false

	if risk := q.Get("risk"); risk != "" {
		prefs.Risk = types.RiskLevel(risk)
		found = true
	}
	if raw := q.Get("chains"); raw != "" {
		var chains []types.ChainID
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && id != 0 {
				chains = append(chains, types.ChainID(id))
			}
		}
		prefs.Chains = chains
		found = true
	}
	if raw := q.Get("stables"); raw != "" {
		var stables []types.Stablecoin
		for _, part := range strings.Split(raw, ",") {
			if s, ok := types.ParseStablecoin(part); ok {
				stables = append(stables, s)
			}
		}
		prefs.Stables = stables
		found = true
	}
	if raw := q.Get("minTvlUsd"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			prefs.MinTvlUSD = v
			found = true
		}
	}
	if raw := q.Get("slippageBps"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			prefs.SlippageBps = v
			found = true
		}
	}
	if raw := q.Get("maxCandidates"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			prefs.MaxCandidates = v
			found = true
		}
	}

	return prefs, found
}

type scoreRequest struct {
	Candidate   types.Candidate    `json:"candidate"`
	Preferences *types.Preferences `json:"preferences"`
}

// handleScore assesses a single candidate without ranking
func (ws *WebServer) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Candidate.PoolID == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Candidate poolId is required")
		return
	}

	preferences := config.DefaultPreferences
	if req.Preferences != nil {
		preferences = *req.Preferences
	}

	ws.writeJSONResponse(w, http.StatusOK, ws.engine.ScoreCandidate(req.Candidate, preferences))
}

type planRequest struct {
	Candidate   types.Candidate `json:"candidate"`
	StartAsset  string          `json:"startAsset"`
	Amount      string          `json:"amount"`
	SlippageBps *int64          `json:"slippageBps"`
	Wallet      string          `json:"wallet"`
	ChainID     *int64          `json:"chainId"`
}

// handlePlan compiles an execution plan for one candidate
func (ws *WebServer) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	startAsset, ok := types.ParseAssetSymbol(req.StartAsset)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Unknown start asset: "+req.StartAsset)
		return
	}

	sessionChain := registry.EthereumChainID
	if req.ChainID != nil {
		sessionChain = types.ChainID(*req.ChainID)
	}
	session, err := wallet.NewSession(req.Wallet, sessionChain)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}

	slippageBps := config.DefaultPreferences.SlippageBps
	if req.SlippageBps != nil {
		slippageBps = *req.SlippageBps
	}

	plan, err := ws.engine.CompilePlan(r.Context(), planner.PlanRequest{
		Candidate:   req.Candidate,
		StartAsset:  startAsset,
		AmountInput: req.Amount,
		SlippageBps: slippageBps,
		Session:     session,
	})
	if err != nil {
		plansCompiledTotal.WithLabelValues("error").Inc()
		ws.writePlanError(w, err)
		return
	}

	plansCompiledTotal.WithLabelValues("ok").Inc()
	ws.writeJSONResponse(w, http.StatusOK, plan)
}

// writePlanError maps compiler failures onto HTTP status codes.
func (ws *WebServer) writePlanError(w http.ResponseWriter, err error) {
	webLogger.Error().Err(err).Msg("Plan compilation failed")

	switch {
	case errors.Is(err, planner.ErrInvalidAmount), errors.Is(err, planner.ErrInvalidSlippage):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, planner.ErrChainMismatch), errors.Is(err, planner.ErrUnsupportedToken):
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, planner.ErrQuoteUnavailable), errors.Is(err, planner.ErrPoolUnavailable):
		ws.writeErrorResponse(w, http.StatusBadGateway, err.Error())
	default:
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Plan compilation failed")
	}
}

// handleYields returns the raw market view ranked under default preferences
func (ws *WebServer) handleYields(w http.ResponseWriter, r *http.Request) {
	preferences := config.DefaultPreferences
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			preferences.MaxCandidates = parsed
		}
	}

	result := ws.engine.RankFromFeed(r.Context(), preferences)
	rankRequestsTotal.WithLabelValues(result.DataQuality).Inc()
	ws.writeJSONResponse(w, http.StatusOK, result)
}

// handlePoolHistory returns the history series for one pool
func (ws *WebServer) handlePoolHistory(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("poolId")
	if poolID == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "poolId query parameter is required")
		return
	}

	days := 30
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	history, ok := ws.engine.PoolHistory(r.Context(), poolID, days)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, history)
}

// handleListPreferences returns all stored profile names
func (ws *WebServer) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	names, err := state.ListProfiles()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list preference profiles")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list preference profiles")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"profiles": names,
		"count":    len(names),
	})
}

// handleGetPreferences returns one stored profile
func (ws *WebServer) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	preferences, err := state.LoadPreferences(name)
	if errors.Is(err, state.ErrProfileNotFound) {
		ws.writeErrorResponse(w, http.StatusNotFound, "Preference profile not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("profile", name).Msg("Failed to load preference profile")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load preference profile")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, preferences)
}

// handlePutPreferences stores a named profile
func (ws *WebServer) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var preferences types.Preferences
	if err := json.NewDecoder(r.Body).Decode(&preferences); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := state.SavePreferences(name, preferences); err != nil {
		webLogger.Error().Err(err).Str("profile", name).Msg("Failed to save preference profile")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to save preference profile")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"profile": name,
		"saved":   true,
	})
}

// handleRankSnapshots returns recent persisted ranking results for a profile
func (ws *WebServer) handleRankSnapshots(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	snapshots, err := state.RecentRankSnapshots(name, limit)
	if err != nil {
		webLogger.Error().Err(err).Str("profile", name).Msg("Failed to load rank snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load rank snapshots")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"profile":   name,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// resolvePreferences applies the precedence: explicit body, stored profile,
// compiled-in defaults.
func (ws *WebServer) resolvePreferences(explicit *types.Preferences, profile string) (types.Preferences, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if profile != "" && state.DB != nil {
		return state.LoadPreferences(profile)
	}
	return config.DefaultPreferences, nil
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapper.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
