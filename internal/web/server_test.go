package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/autopilot/internal/datafetcher"
	"github.com/stableyield/autopilot/internal/planner"
	"github.com/stableyield/autopilot/internal/types"
)

type stubEngine struct {
	rankResult  types.RankResult
	scored      types.RankedCandidate
	plan        types.PlanResponse
	planErr     error
	history     datafetcher.PoolHistory
	historyOK   bool
	lastPlanReq planner.PlanRequest
	rankedRows  []types.RawRow
}

func (s *stubEngine) RankFromFeed(ctx context.Context, preferences types.Preferences) types.RankResult {
	s.rankResult.Preferences = preferences
	return s.rankResult
}

func (s *stubEngine) RankRows(rows []types.RawRow, preferences types.Preferences) types.RankResult {
	s.rankedRows = rows
	s.rankResult.Preferences = preferences
	return s.rankResult
}

func (s *stubEngine) ScoreCandidate(candidate types.Candidate, preferences types.Preferences) types.RankedCandidate {
	return s.scored
}

func (s *stubEngine) CompilePlan(ctx context.Context, req planner.PlanRequest) (types.PlanResponse, error) {
	s.lastPlanReq = req
	return s.plan, s.planErr
}

func (s *stubEngine) PoolHistory(ctx context.Context, poolID string, days int) (datafetcher.PoolHistory, bool) {
	return s.history, s.historyOK
}

func serve(t *testing.T, engine StrategyEngine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	NewWebServer("0", engine).Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHandleRankWithExplicitPreferences(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{Count: 1, DataQuality: "live"}}

	resp := serve(t, engine, http.MethodPost, "/api/strategy/rank", map[string]any{
		"preferences": types.Preferences{Risk: types.RiskAggressive},
	})

	require.Equal(t, http.StatusOK, resp.Code)

	var result types.RankResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, types.RiskAggressive, result.Preferences.Risk)
	assert.Equal(t, 1, result.Count)
}

func TestHandleRankWithInlineRows(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{DataQuality: "live"}}

	apy := 4.5
	tvl := 250_000_000.0
	resp := serve(t, engine, http.MethodPost, "/api/strategy/rank", map[string]any{
		"rows": []types.RawRow{{Chain: "Ethereum", Stablecoin: "USDC", PoolID: "p1", APYNet: &apy, TvlUSD: &tvl}},
	})

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, engine.rankedRows, 1)
	assert.Equal(t, "p1", engine.rankedRows[0].PoolID)
}

func TestHandleRankGetUsesDefaults(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{DataQuality: "live"}}

	resp := serve(t, engine, http.MethodGet, "/api/strategy/rank", nil)

	require.Equal(t, http.StatusOK, resp.Code)

	var result types.RankResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, types.RiskConservative, result.Preferences.Risk)
}

func TestHandleRankGetParsesQueryPreferences(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{DataQuality: "live"}}

	resp := serve(t, engine, http.MethodGet,
		"/api/strategy/rank?risk=Aggressive&chains=1,8453&stables=usdc,dai&minTvlUsd=1000000&slippageBps=75&maxCandidates=3", nil)

	require.Equal(t, http.StatusOK, resp.Code)

	var result types.RankResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, types.RiskAggressive, result.Preferences.Risk)
	assert.Equal(t, []types.ChainID{1, 8453}, result.Preferences.Chains)
	assert.Equal(t, []types.Stablecoin{types.StableUSDC, types.StableDAI}, result.Preferences.Stables)
	assert.Equal(t, 1_000_000.0, result.Preferences.MinTvlUSD)
	assert.Equal(t, int64(75), result.Preferences.SlippageBps)
	assert.Equal(t, 3, result.Preferences.MaxCandidates)
}

func TestHandleRankGetPartialQueryKeepsDefaults(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{DataQuality: "live"}}

	resp := serve(t, engine, http.MethodGet, "/api/strategy/rank?risk=Balanced", nil)

	require.Equal(t, http.StatusOK, resp.Code)

	var result types.RankResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, types.RiskBalanced, result.Preferences.Risk)
	// Unspecified keys keep the compiled-in defaults.
	assert.Equal(t, 5_000_000.0, result.Preferences.MinTvlUSD)
	assert.Equal(t, int64(50), result.Preferences.SlippageBps)
}

func TestHandleRankRejectsBadBody(t *testing.T) {
	engine := &stubEngine{}

	req := httptest.NewRequest(http.MethodPost, "/api/strategy/rank", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	NewWebServer("0", engine).Router().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleScore(t *testing.T) {
	engine := &stubEngine{scored: types.RankedCandidate{RiskScore: 0.283, Eligible: true}}

	resp := serve(t, engine, http.MethodPost, "/api/strategy/score", map[string]any{
		"candidate": types.Candidate{PoolID: "p1", ChainID: 1, Token: types.StableUSDC},
	})

	require.Equal(t, http.StatusOK, resp.Code)

	var scored types.RankedCandidate
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &scored))
	assert.True(t, scored.Eligible)
	assert.InDelta(t, 0.283, scored.RiskScore, 1e-9)
}

func TestHandleScoreRequiresPoolID(t *testing.T) {
	resp := serve(t, &stubEngine{}, http.MethodPost, "/api/strategy/score", map[string]any{
		"candidate": types.Candidate{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func validPlanBody() map[string]any {
	return map[string]any{
		"candidate":  types.Candidate{PoolID: "p1", ChainID: 1, Token: types.StableUSDC},
		"startAsset": "USDC",
		"amount":     "2500",
		"wallet":     "0x1111111111111111111111111111111111111111",
	}
}

func TestHandlePlan(t *testing.T) {
	engine := &stubEngine{plan: types.PlanResponse{
		Candidate: types.CandidateSummary{PoolID: "p1"},
		Steps:     []types.ExecutionStep{{Type: types.StepApprove, ChainID: 1}},
	}}

	resp := serve(t, engine, http.MethodPost, "/api/strategy/plan", validPlanBody())

	require.Equal(t, http.StatusOK, resp.Code)

	var plan types.PlanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &plan))
	assert.Equal(t, "p1", plan.Candidate.PoolID)
	require.Len(t, plan.Steps, 1)

	// Defaults applied where the request was silent.
	assert.Equal(t, int64(50), engine.lastPlanReq.SlippageBps)
	assert.Equal(t, types.ChainID(1), engine.lastPlanReq.Session.ChainID)
}

func TestHandlePlanRejectsUnknownStartAsset(t *testing.T) {
	body := validPlanBody()
	body["startAsset"] = "DOGE"

	resp := serve(t, &stubEngine{}, http.MethodPost, "/api/strategy/plan", body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandlePlanRejectsBadWallet(t *testing.T) {
	body := validPlanBody()
	body["wallet"] = "not-an-address"

	resp := serve(t, &stubEngine{}, http.MethodPost, "/api/strategy/plan", body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandlePlanErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid amount", planner.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid slippage", planner.ErrInvalidSlippage, http.StatusBadRequest},
		{"chain mismatch", planner.ErrChainMismatch, http.StatusUnprocessableEntity},
		{"unsupported token", planner.ErrUnsupportedToken, http.StatusUnprocessableEntity},
		{"quote unavailable", planner.ErrQuoteUnavailable, http.StatusBadGateway},
		{"pool unavailable", planner.ErrPoolUnavailable, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &stubEngine{planErr: tc.err}
			resp := serve(t, engine, http.MethodPost, "/api/strategy/plan", validPlanBody())
			assert.Equal(t, tc.expected, resp.Code)
		})
	}
}

func TestHandlePoolHistory(t *testing.T) {
	engine := &stubEngine{
		history:   datafetcher.PoolHistory{PoolID: "p1", DataQuality: "synthetic"},
		historyOK: true,
	}

	resp := serve(t, engine, http.MethodGet, "/api/yields/pool-history?poolId=p1&days=7", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var history datafetcher.PoolHistory
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &history))
	assert.Equal(t, "synthetic", history.DataQuality)
}

func TestHandlePoolHistoryRequiresPoolID(t *testing.T) {
	resp := serve(t, &stubEngine{}, http.MethodGet, "/api/yields/pool-history", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandlePoolHistoryNotFound(t *testing.T) {
	resp := serve(t, &stubEngine{historyOK: false}, http.MethodGet, "/api/yields/pool-history?poolId=nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleYields(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{Count: 2, DataQuality: "live"}}

	resp := serve(t, engine, http.MethodGet, "/api/yields?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var result types.RankResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, 5, result.Preferences.MaxCandidates)
}

func TestHealthDegradesWithoutDatabase(t *testing.T) {
	resp := serve(t, &stubEngine{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "DEGRADED")
}

func TestCORSHeadersPresent(t *testing.T) {
	engine := &stubEngine{rankResult: types.RankResult{DataQuality: "live"}}

	resp := serve(t, engine, http.MethodGet, "/api/strategy/rank", nil)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
