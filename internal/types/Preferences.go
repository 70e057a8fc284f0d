/*

This file contains the user risk policy: immutable input to a single ranking
or planning request.

*/

package types

// RiskLevel selects the eligibility threshold applied by the risk model.
type RiskLevel string

const (
	RiskConservative RiskLevel = "Conservative"
	RiskBalanced     RiskLevel = "Balanced"
	RiskAggressive   RiskLevel = "Aggressive"
)

// Exclusions lists protocols (case-insensitive slugs) and pool ids that must
// never be ranked eligible.
type Exclusions struct {
	Protocols []string `json:"protocols,omitempty"`
	Pools     []string `json:"pools,omitempty"`
}

// Preferences is the risk policy for one request. Empty Chains or Stables
// slices mean "no restriction".
type Preferences struct {
	Risk          RiskLevel    `json:"risk"`
	Chains        []ChainID    `json:"chains"`
	Stables       []Stablecoin `json:"stables"`
	MinTvlUSD     float64      `json:"minTvlUsd"`
	SlippageBps   int64        `json:"slippageBps"`
	Exclusions    Exclusions   `json:"exclusions"`
	MaxCandidates int          `json:"maxCandidates"`
}

// AllowsChain reports whether the chain allow-list permits id.
func (p Preferences) AllowsChain(id ChainID) bool {
	if len(p.Chains) == 0 {
		return true
	}
	for _, c := range p.Chains {
		if c == id {
			return true
		}
	}
	return false
}

// AllowsStable reports whether the stablecoin allow-list permits token.
func (p Preferences) AllowsStable(token Stablecoin) bool {
	if len(p.Stables) == 0 {
		return true
	}
	for _, s := range p.Stables {
		if s == token {
			return true
		}
	}
	return false
}
