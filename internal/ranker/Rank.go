/*

This file contains the ranking pipeline: normalize raw feed rows, score every
candidate against the caller's preferences, keep the eligible ones, and order
them by ascending risk with APY as the tie breaker.

*/

package ranker

import (
	"sort"
	"time"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/risk"
	"github.com/stableyield/autopilot/internal/types"
)

var rankLogger = logger.GetForComponent("ranker")

// DefaultMaxCandidates bounds the result when preferences leave the limit unset.
const DefaultMaxCandidates = 10

// Rank runs the full pipeline over raw feed rows. It never fails: unusable
// rows are dropped during normalization and an empty feed yields an empty
// result.
func Rank(rows []types.RawRow, preferences types.Preferences) types.RankResult {
	candidates := make([]types.Candidate, 0, len(rows))
	for _, row := range rows {
		candidate, ok := NormalizeRow(row)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	eligible := make([]types.RankedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		scored := risk.ScoreCandidate(candidate, preferences)
		if scored.Eligible {
			eligible = append(eligible, scored)
		}
	}

	// Lower risk wins; equal risk prefers higher APY; remaining ties keep
	// feed order.
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].RiskScore != eligible[j].RiskScore {
			return eligible[i].RiskScore < eligible[j].RiskScore
		}
		return eligible[i].APY > eligible[j].APY
	})

	limit := preferences.MaxCandidates
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	rankLogger.Info().
		Int("rows", len(rows)).
		Int("normalized", len(candidates)).
		Int("eligible", len(eligible)).
		Msg("Ranking complete")

	return types.RankResult{
		Preferences: preferences,
		Count:       len(eligible),
		Candidates:  eligible,
		UpdatedAt:   time.Now().UTC(),
		DataQuality: "live",
	}
}
