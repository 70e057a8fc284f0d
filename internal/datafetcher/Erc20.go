/*

This file contains the on-chain ERC-20 metadata reader. The only metadata the
planner ever needs is decimals; unknown tokens default to 18, which matches
the native asset and the overwhelming majority of ERC-20 deployments.

*/

package datafetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/registry"
)

var erc20Logger = logger.GetForComponent("erc20_reader")

const erc20ABIJSON = `[{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("datafetcher: invalid erc20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// Erc20Reader reads token decimals over JSON-RPC with an in-process cache.
type Erc20Reader struct {
	eth *ethclient.Client

	mu    sync.Mutex
	cache map[common.Address]int
}

func NewErc20Reader(eth *ethclient.Client) *Erc20Reader {
	return &Erc20Reader{eth: eth, cache: make(map[common.Address]int)}
}

// DecimalsOf returns the token's decimals. The native-asset sentinel and any
// token that fails the on-chain read report the default of 18.
func (r *Erc20Reader) DecimalsOf(ctx context.Context, token common.Address) int {
	if strings.EqualFold(token.Hex(), registry.NativeSentinel) {
		return registry.NativeDecimals
	}

	r.mu.Lock()
	cached, ok := r.cache[token]
	r.mu.Unlock()
	if ok {
		return cached
	}

	decimals, err := r.readDecimals(ctx, token)
	if err != nil {
		erc20Logger.Warn().Err(err).Str("token", token.Hex()).Msg("Decimals read failed, defaulting to 18")
		return registry.NativeDecimals
	}

	r.mu.Lock()
	r.cache[token] = decimals
	r.mu.Unlock()
	return decimals
}

func (r *Erc20Reader) readDecimals(ctx context.Context, token common.Address) (int, error) {
	input, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	output, err := r.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return 0, err
	}
	results, err := erc20ABI.Unpack("decimals", output)
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("decimals returned %d values", len(results))
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned unexpected type %T", results[0])
	}
	return int(decimals), nil
}
