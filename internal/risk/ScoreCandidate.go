/*

This file contains the risk model: a pure, total scoring function from one
candidate and one preferences policy to a bounded risk score plus an
eligibility verdict with complete violation reasons.

*/

package risk

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/types"
)

var riskLogger = logger.GetForComponent("risk_model")

// TVL at or above this cap contributes zero risk.
const tvlRiskCapUSD = 500_000_000

// Composite weights. Fixed policy constants, sum to 1.0.
const (
	weightTVL      = 0.50
	weightProtocol = 0.25
	weightChain    = 0.15
	weightAsset    = 0.10
)

const (
	defaultProtocolRisk = 0.5
	defaultChainRisk    = 0.1
)

// Per-protocol baseline risk, keyed by lower-cased protocol slug.
// Unlisted protocols score the medium default.
var protocolRiskTable = map[string]float64{
	"aave-v3":         0.10,
	"aave-v2":         0.18,
	"compound-v3":     0.15,
	"compound":        0.22,
	"spark":           0.18,
	"morpho-blue":     0.25,
	"morpho-aave":     0.28,
	"fluid-lending":   0.30,
	"curve-dex":       0.32,
	"venus-core-pool": 0.38,
	"radiant-v2":      0.55,
	"benqi-lending":   0.40,
	"moonwell":        0.35,
	"goldfinch":       0.60,
}

// Per-chain bias, keyed by human chain name (resolved by reverse lookup of
// the chain-id table). Unresolvable chains score the default.
var chainBiasTable = map[string]float64{
	"Ethereum":  0.02,
	"Arbitrum":  0.05,
	"Base":      0.05,
	"Optimism":  0.05,
	"Polygon":   0.08,
	"Avalanche": 0.10,
	"Bsc":       0.12,
	"Linea":     0.12,
	"Scroll":    0.12,
	"Mantle":    0.15,
	"Blast":     0.18,
	"Mode":      0.18,
}

// Threshold returns the maximum eligible risk score for a risk tier.
// Unrecognized tiers fall back to the Balanced threshold.
func Threshold(level types.RiskLevel) float64 {
	switch level {
	case types.RiskConservative:
		return 0.4
	case types.RiskBalanced:
		return 0.6
	case types.RiskAggressive:
		return 0.8
	default:
		return 0.6
	}
}

// ScoreCandidate assigns the composite risk score and decides eligibility.
// It is pure and total: unknown protocols, chains and assets degrade to
// default sub-scores, non-finite numerics degrade to zero, and every violated
// constraint appends its reason independently of the others.
func ScoreCandidate(candidate types.Candidate, preferences types.Preferences) types.RankedCandidate {
	tvl := finiteOrZero(candidate.TvlUSD)

	rTVL := tvlRisk(tvl)
	rProtocol := protocolRisk(candidate.Protocol)
	rChain := chainRisk(candidate.ChainID)
	rAsset := assetRisk(candidate.Token)

	score := clamp01(weightTVL*rTVL + weightProtocol*rProtocol + weightChain*rChain + weightAsset*rAsset)

	// Reason order is part of the contract: TVL, chain, stable, protocol
	// exclusion, pool exclusion, risk threshold.
	var reasons []string
	if tvl < preferences.MinTvlUSD {
		reasons = append(reasons, fmt.Sprintf("Below min TVL (%.0f < %s)", tvl, formatFloat(preferences.MinTvlUSD)))
	}
	if !preferences.AllowsChain(candidate.ChainID) {
		reasons = append(reasons, "Chain not allowed")
	}
	if !preferences.AllowsStable(candidate.Token) {
		reasons = append(reasons, "Stable not allowed")
	}
	if protocolExcluded(candidate.Protocol, preferences.Exclusions.Protocols) {
		reasons = append(reasons, "Protocol excluded")
	}
	if poolExcluded(candidate.PoolID, preferences.Exclusions.Pools) {
		reasons = append(reasons, "Pool excluded")
	}
	threshold := Threshold(preferences.Risk)
	if score > threshold {
		reasons = append(reasons, fmt.Sprintf("Risk above threshold (%.2f > %s)", score, formatFloat(threshold)))
	}

	eligible := len(reasons) == 0

	riskLogger.Debug().
		Str("poolId", candidate.PoolID).
		Str("protocol", candidate.Protocol).
		Float64("tvlRisk", rTVL).
		Float64("protocolRisk", rProtocol).
		Float64("chainRisk", rChain).
		Float64("assetRisk", rAsset).
		Float64("riskScore", score).
		Bool("eligible", eligible).
		Msg("Candidate scored")

	return types.RankedCandidate{
		Candidate: candidate,
		RiskScore: score,
		Eligible:  eligible,
		Reasons:   reasons,
	}
}

// tvlRisk maps TVL to risk: 1 at zero TVL, saturating to 0 at the cap.
func tvlRisk(tvlUSD float64) float64 {
	x := math.Min(math.Max(tvlUSD, 0), tvlRiskCapUSD)
	return clamp01(1 - x/tvlRiskCapUSD)
}

func protocolRisk(protocol string) float64 {
	score, ok := protocolRiskTable[strings.ToLower(protocol)]
	if !ok {
		return defaultProtocolRisk
	}
	return clamp01(finiteOr(score, defaultProtocolRisk))
}

func chainRisk(chainID types.ChainID) float64 {
	name, ok := registry.ChainNameOf(chainID)
	if !ok {
		return defaultChainRisk
	}
	bias, ok := chainBiasTable[name]
	if !ok {
		return defaultChainRisk
	}
	return clamp01(finiteOr(bias, defaultChainRisk))
}

func assetRisk(token types.Stablecoin) float64 {
	switch token {
	case types.StableUSDC:
		return 0.05
	case types.StableDAI:
		return 0.08
	case types.StableUSDT:
		return 0.10
	default:
		return 0.12
	}
}

func protocolExcluded(protocol string, excluded []string) bool {
	for _, p := range excluded {
		if strings.EqualFold(p, protocol) {
			return true
		}
	}
	return false
}

func poolExcluded(poolID string, excluded []string) bool {
	for _, p := range excluded {
		if p == poolID {
			return true
		}
	}
	return false
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func finiteOrZero(x float64) float64 {
	return finiteOr(x, 0)
}

func finiteOr(x, fallback float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fallback
	}
	return x
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
