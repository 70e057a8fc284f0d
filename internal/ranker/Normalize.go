/*

This file contains the feed-row normalizer. It converts loosely-typed yield
feed rows into strict candidates, dropping rows that cannot be made safe for
the risk model.

*/

package ranker

import (
	"math"
	"strings"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/types"
)

var normalizeLogger = logger.GetForComponent("normalizer")

// NormalizeRow converts one raw feed row into a candidate. The second return
// is false when the row is unusable: unknown chain name, unrecognized
// stablecoin symbol, or missing pool id. Missing or non-finite APY values
// coerce to zero rather than dropping the row.
func NormalizeRow(row types.RawRow) (types.Candidate, bool) {
	chainID, ok := registry.ChainIDOf(row.Chain)
	if !ok {
		normalizeLogger.Debug().Str("chain", row.Chain).Str("poolId", row.PoolID).Msg("Dropping row with unknown chain")
		return types.Candidate{}, false
	}

	token, ok := types.ParseStablecoin(row.Stablecoin)
	if !ok {
		normalizeLogger.Debug().Str("symbol", row.Stablecoin).Str("poolId", row.PoolID).Msg("Dropping row with unrecognized stablecoin")
		return types.Candidate{}, false
	}

	poolID := strings.TrimSpace(row.PoolID)
	if poolID == "" {
		normalizeLogger.Debug().Str("chain", row.Chain).Msg("Dropping row with empty pool id")
		return types.Candidate{}, false
	}

	apy := effectiveAPY(row)

	tvl := 0.0
	if row.TvlUSD != nil && isFinite(*row.TvlUSD) && *row.TvlUSD > 0 {
		tvl = *row.TvlUSD
	}

	meta := map[string]any{"chain": row.Chain}
	if row.PoolAddress != "" {
		meta["poolAddress"] = row.PoolAddress
	}
	if row.Link != "" {
		meta["link"] = row.Link
	}

	return types.Candidate{
		PoolID:   poolID,
		ChainID:  chainID,
		Protocol: strings.ToLower(strings.TrimSpace(row.Protocol)),
		Token:    token,
		APY:      apy,
		TvlUSD:   tvl,
		Meta:     meta,
	}, true
}

// effectiveAPY prefers the feed's net figure, otherwise base plus reward.
// Missing and non-finite parts count as zero.
func effectiveAPY(row types.RawRow) float64 {
	if row.APYNet != nil && isFinite(*row.APYNet) {
		return *row.APYNet
	}
	base, _ := finitePtr(row.APYBase)
	reward, _ := finitePtr(row.APYReward)
	return base + reward
}

func finitePtr(p *float64) (float64, bool) {
	if p == nil || !isFinite(*p) {
		return 0, false
	}
	return *p, true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
