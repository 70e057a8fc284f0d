/*

This is the canonical candidate type: one stablecoin yield opportunity as it
flows from the feed normalizer into the risk model and ranking engine.

*/

package types

import (
	"strings"
	"time"
)

// ChainID is a numeric EVM chain identifier.
type ChainID int64

// Stablecoin is a canonical supported stablecoin symbol.
type Stablecoin string

const (
	StableUSDC Stablecoin = "USDC"
	StableUSDT Stablecoin = "USDT"
	StableDAI  Stablecoin = "DAI"
)

// AssetSymbol is a fundable start asset: a supported stablecoin or the
// chain's native asset.
type AssetSymbol string

// NativeETH is the native-asset start symbol. Swap legs selling it use the
// aggregator's native sentinel address instead of a token contract.
const NativeETH AssetSymbol = "ETH"

// ParseAssetSymbol canonicalizes a free-form start-asset symbol.
func ParseAssetSymbol(symbol string) (AssetSymbol, bool) {
	if strings.EqualFold(strings.TrimSpace(symbol), string(NativeETH)) {
		return NativeETH, true
	}
	if s, ok := ParseStablecoin(symbol); ok {
		return AssetSymbol(s), true
	}
	return "", false
}

// ParseStablecoin canonicalizes a free-form symbol. ok is false for anything
// outside the supported set.
func ParseStablecoin(symbol string) (Stablecoin, bool) {
	switch Stablecoin(strings.ToUpper(strings.TrimSpace(symbol))) {
	case StableUSDC:
		return StableUSDC, true
	case StableUSDT:
		return StableUSDT, true
	case StableDAI:
		return StableDAI, true
	default:
		return "", false
	}
}

// RawRow is one loosely-typed record as returned by the yield feed. Numeric
// fields are pointers because upstream regularly omits or nulls them.
type RawRow struct {
	Protocol    string   `json:"protocol"`
	Chain       string   `json:"chain"`
	Stablecoin  string   `json:"stablecoin"`
	APYBase     *float64 `json:"apyBase"`
	APYReward   *float64 `json:"apyReward"`
	APYNet      *float64 `json:"apyNet"`
	TvlUSD      *float64 `json:"tvlUsd"`
	PoolID      string   `json:"poolId"`
	PoolAddress string   `json:"poolAddress,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// Candidate is a normalized yield opportunity. Rows that fail normalization
// never become Candidates; every field here is populated.
type Candidate struct {
	PoolID   string         `json:"poolId"`
	ChainID  ChainID        `json:"chainId"`
	Protocol string         `json:"protocol"`
	Token    Stablecoin     `json:"token"`
	APY      float64        `json:"apy"`
	TvlUSD   float64        `json:"tvlUsd"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// RankedCandidate is a Candidate with its risk assessment attached.
// Reasons is non-empty exactly when Eligible is false.
type RankedCandidate struct {
	Candidate
	RiskScore float64  `json:"riskScore"`
	Eligible  bool     `json:"eligible"`
	Reasons   []string `json:"reasons"`
}

// RankResult is the ranking engine's response envelope: the eligible
// candidates in final order plus the preferences that produced them.
type RankResult struct {
	Preferences Preferences       `json:"preferences"`
	Count       int               `json:"count"`
	Candidates  []RankedCandidate `json:"candidates"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	// DataQuality is "degraded" when the upstream feed was unreachable and
	// the result fell back to an empty set.
	DataQuality string `json:"dataQuality,omitempty"`
}
