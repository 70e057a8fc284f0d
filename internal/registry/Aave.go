/*

Aave v3 deployment addresses. The deposit path supports two resolution modes:
the hardcoded mainnet Pool constant, or a just-in-time getPool() read against
the PoolAddressesProvider (see datafetcher.PoolResolver).

*/

package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/autopilot/internal/types"
)

// EthereumPoolAddress is the Aave v3 Pool on Ethereum mainnet.
var EthereumPoolAddress = common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2")

var poolAddressesProviders = map[types.ChainID]common.Address{
	1:     common.HexToAddress("0x2f39d218133AFaB8F2B819B1066c7E434Ad94E9e"),
	137:   common.HexToAddress("0xa97684ead0e402dC232d5A977953DF7ECBaB3CDb"),
	42161: common.HexToAddress("0xa97684ead0e402dC232d5A977953DF7ECBaB3CDb"),
	8453:  common.HexToAddress("0xe20fCBdBfFC4Dd138cE8b2E6FBb6CB49777ad64D"),
	10:    common.HexToAddress("0xa97684ead0e402dC232d5A977953DF7ECBaB3CDb"),
}

// PoolAddressesProvider returns the addresses-provider contract for a chain.
func PoolAddressesProvider(chainID types.ChainID) (common.Address, bool) {
	addr, ok := poolAddressesProviders[chainID]
	return addr, ok
}
