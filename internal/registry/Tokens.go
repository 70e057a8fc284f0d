/*

Static token registry: stablecoin contract addresses per chain plus base-unit
precision per symbol. Lookups never fail silently into a guessed address.

*/

package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/autopilot/internal/types"
)

var tokenAddresses = map[types.ChainID]map[types.Stablecoin]common.Address{
	1: {
		types.StableUSDC: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		types.StableUSDT: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
		types.StableDAI:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
	},
	137: {
		types.StableUSDC: common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		types.StableUSDT: common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"),
		types.StableDAI:  common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"),
	},
	42161: {
		types.StableUSDC: common.HexToAddress("0xaf88d065e77c8cC2239327C5edb3A432268e5831"),
		types.StableUSDT: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
		types.StableDAI:  common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
	},
	8453: {
		types.StableUSDC: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	},
	10: {
		types.StableUSDC: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		types.StableUSDT: common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"),
		types.StableDAI:  common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
	},
}

// Base-unit precision per supported stablecoin. DAI is the only 18-decimal one.
var stableDecimals = map[types.Stablecoin]int{
	types.StableUSDC: 6,
	types.StableUSDT: 6,
	types.StableDAI:  18,
}

// TokenAddress resolves the contract address for a stablecoin on a chain.
func TokenAddress(chainID types.ChainID, token types.Stablecoin) (common.Address, bool) {
	addr, ok := tokenAddresses[chainID][token]
	return addr, ok
}

// StableDecimals returns the base-unit precision for a supported stablecoin;
// ok is false for anything outside the supported set.
func StableDecimals(token types.Stablecoin) (int, bool) {
	d, ok := stableDecimals[token]
	return d, ok
}
