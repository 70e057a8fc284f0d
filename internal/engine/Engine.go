/*

This file contains the engine: the facade the web layer talks to. It owns the
feed client and the plan compiler and enforces the two failure postures the
system guarantees. Ranking degrades (a dead feed yields an empty, clearly
labeled result) while planning is strict (any unresolved dependency fails the
whole plan).

*/

package engine

import (
	"context"
	"time"

	"github.com/stableyield/autopilot/internal/datafetcher"
	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/planner"
	"github.com/stableyield/autopilot/internal/ranker"
	"github.com/stableyield/autopilot/internal/risk"
	"github.com/stableyield/autopilot/internal/types"
)

var engineLogger = logger.GetForComponent("engine")

// Feed abstracts the yield feed so tests can stub it.
type Feed interface {
	FetchRows(ctx context.Context) ([]types.RawRow, error)
}

// Planner abstracts the plan compiler so tests can stub it.
type Planner interface {
	CompilePlan(ctx context.Context, req planner.PlanRequest) (types.PlanResponse, error)
}

// Engine wires the feed, ranking pipeline and plan compiler together.
type Engine struct {
	feed    Feed
	planner Planner
}

func New(feed Feed, p Planner) *Engine {
	return &Engine{feed: feed, planner: p}
}

// RankFromFeed fetches the current rows and ranks them under the given
// preferences. Feed failures never propagate: the result degrades to an empty
// candidate list flagged "degraded" so callers can tell it from a genuinely
// empty market.
func (e *Engine) RankFromFeed(ctx context.Context, preferences types.Preferences) types.RankResult {
	rows, err := e.feed.FetchRows(ctx)
	if err != nil {
		engineLogger.Error().Err(err).Msg("Yield feed unavailable, serving degraded empty result")
		return types.RankResult{
			Preferences: preferences,
			Count:       0,
			Candidates:  []types.RankedCandidate{},
			UpdatedAt:   time.Now().UTC(),
			DataQuality: "degraded",
		}
	}
	return ranker.Rank(rows, preferences)
}

// RankRows ranks caller-supplied rows without touching the feed.
func (e *Engine) RankRows(rows []types.RawRow, preferences types.Preferences) types.RankResult {
	return ranker.Rank(rows, preferences)
}

// ScoreCandidate exposes a single risk assessment without ranking.
func (e *Engine) ScoreCandidate(candidate types.Candidate, preferences types.Preferences) types.RankedCandidate {
	return risk.ScoreCandidate(candidate, preferences)
}

// CompilePlan is a strict passthrough: any compiler error is the caller's
// problem, no partial plans.
func (e *Engine) CompilePlan(ctx context.Context, req planner.PlanRequest) (types.PlanResponse, error) {
	return e.planner.CompilePlan(ctx, req)
}

// PoolHistory returns the (synthetic, clearly labeled) history series for a
// candidate the feed currently knows about.
func (e *Engine) PoolHistory(ctx context.Context, poolID string, days int) (datafetcher.PoolHistory, bool) {
	rows, err := e.feed.FetchRows(ctx)
	if err != nil {
		engineLogger.Warn().Err(err).Str("poolId", poolID).Msg("Feed unavailable for pool history")
		return datafetcher.PoolHistory{}, false
	}
	for _, row := range rows {
		candidate, ok := ranker.NormalizeRow(row)
		if !ok || candidate.PoolID != poolID {
			continue
		}
		return datafetcher.SynthesizeHistory(candidate, days, time.Now()), true
	}
	return datafetcher.PoolHistory{}, false
}
