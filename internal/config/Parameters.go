/*

This file contains the default ranking preferences.

These defaults are deliberately conservative: execution currently settles on
Ethereum mainnet only, and a strict TVL floor keeps thin pools out of the
default view regardless of their headline APY.

*/

package config

import (
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/types"
)

// DefaultPreferences is the baseline policy used when a request carries no
// preferences and no stored profile applies.
var DefaultPreferences = types.Preferences{
	Risk: types.RiskConservative,

	// Mainnet only. Ranking tolerates other chains, but the plan compiler
	// settles on Ethereum, so the default view matches what is executable.
	Chains: []types.ChainID{registry.EthereumChainID},

	Stables: []types.Stablecoin{types.StableUSDC, types.StableUSDT, types.StableDAI},

	// Pools under $5M are too thin to absorb meaningful deposits without
	// moving their own APY.
	MinTvlUSD: 5_000_000,

	// 0.50% tolerance on any swap leg.
	SlippageBps: 50,

	MaxCandidates: 10,
}
