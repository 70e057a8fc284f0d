/*

Static chain registry: feed chain names to numeric EVM chain ids and back.
These tables are read-only reference data, never mutated at runtime.

*/

package registry

import "github.com/stableyield/autopilot/internal/types"

// EthereumChainID is the only chain the deposit-preparation path accepts.
const EthereumChainID types.ChainID = 1

// NativeSentinel is the reserved pseudo-address that swap aggregators use for
// the chain's native asset.
const NativeSentinel = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// NativeDecimals is the base-unit precision of the native asset.
const NativeDecimals = 18

var chainNameToID = map[string]types.ChainID{
	"Ethereum":  1,
	"Arbitrum":  42161,
	"Base":      8453,
	"Optimism":  10,
	"Polygon":   137,
	"Avalanche": 43114,
	"Bsc":       56,
	"Linea":     59144,
	"Scroll":    534352,
	"Mantle":    5000,
	"Blast":     81457,
	"Mode":      34443,
}

var chainIDToName = func() map[types.ChainID]string {
	m := make(map[types.ChainID]string, len(chainNameToID))
	for name, id := range chainNameToID {
		m[id] = name
	}
	return m
}()

// ChainIDOf resolves a human chain name to its numeric id.
func ChainIDOf(chainName string) (types.ChainID, bool) {
	id, ok := chainNameToID[chainName]
	return id, ok
}

// ChainNameOf is the reverse lookup used by the risk model's chain bias table.
func ChainNameOf(id types.ChainID) (string, bool) {
	name, ok := chainIDToName[id]
	return name, ok
}

// IsChainSupported reports whether the feed chain name maps to a known id.
func IsChainSupported(chainName string) bool {
	_, ok := chainNameToID[chainName]
	return ok
}
