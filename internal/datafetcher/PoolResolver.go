/*

This file contains the lending-pool resolver. Static mode answers from the
pinned registry addresses; provider mode asks the on-chain PoolAddressesProvider
for the current pool so proxy upgrades are picked up without a redeploy.
Provider lookups are cached for a short TTL.

*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/types"
)

var resolverLogger = logger.GetForComponent("pool_resolver")

var (
	ErrPoolNotResolved = errors.New("lending pool not resolved")
	ErrBadResolution   = errors.New("invalid pool resolution mode")
)

// ResolutionMode selects how pool addresses are found.
type ResolutionMode string

const (
	ResolveStatic   ResolutionMode = "static"
	ResolveProvider ResolutionMode = "provider"
)

func ParseResolutionMode(raw string) (ResolutionMode, error) {
	switch ResolutionMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ResolveStatic, "":
		return ResolveStatic, nil
	case ResolveProvider:
		return ResolveProvider, nil
	default:
		return "", errors.Join(ErrBadResolution, fmt.Errorf("unknown mode %q", raw))
	}
}

const providerABIJSON = `[{"name":"getPool","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}]`

var providerABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(providerABIJSON))
	if err != nil {
		panic("datafetcher: invalid provider ABI: " + err.Error())
	}
	providerABI = parsed
}

const poolCacheTTL = 10 * time.Minute

type cachedPool struct {
	address   common.Address
	fetchedAt time.Time
}

// AavePoolResolver resolves the active Aave v3 pool per chain.
type AavePoolResolver struct {
	mode ResolutionMode
	eth  *ethclient.Client

	mu    sync.Mutex
	cache map[types.ChainID]cachedPool
}

// NewAavePoolResolver builds a resolver. The eth client may be nil in static
// mode; provider mode requires it.
func NewAavePoolResolver(mode ResolutionMode, eth *ethclient.Client) (*AavePoolResolver, error) {
	if mode == ResolveProvider && eth == nil {
		return nil, errors.Join(ErrBadResolution, errors.New("provider mode requires an RPC client"))
	}
	return &AavePoolResolver{
		mode:  mode,
		eth:   eth,
		cache: make(map[types.ChainID]cachedPool),
	}, nil
}

// LendingPool returns the pool contract to supply into on the given chain.
func (r *AavePoolResolver) LendingPool(ctx context.Context, chainID types.ChainID) (common.Address, error) {
	if r.mode == ResolveStatic {
		if chainID == registry.EthereumChainID {
			return registry.EthereumPoolAddress, nil
		}
		return common.Address{}, errors.Join(ErrPoolNotResolved, fmt.Errorf("no pinned pool for chain %d", chainID))
	}

	r.mu.Lock()
	cached, ok := r.cache[chainID]
	r.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < poolCacheTTL {
		return cached.address, nil
	}

	provider, ok := registry.PoolAddressesProvider(chainID)
	if !ok {
		return common.Address{}, errors.Join(ErrPoolNotResolved, fmt.Errorf("no addresses provider for chain %d", chainID))
	}

	address, err := r.queryProvider(ctx, provider)
	if err != nil {
		// A stale cache entry still beats failing the whole plan.
		if ok {
			resolverLogger.Warn().Err(err).Int64("chainId", int64(chainID)).Msg("Provider lookup failed, serving stale pool address")
			return cached.address, nil
		}
		return common.Address{}, errors.Join(ErrPoolNotResolved, err)
	}

	r.mu.Lock()
	r.cache[chainID] = cachedPool{address: address, fetchedAt: time.Now()}
	r.mu.Unlock()

	resolverLogger.Debug().Int64("chainId", int64(chainID)).Str("pool", address.Hex()).Msg("Resolved lending pool")
	return address, nil
}

func (r *AavePoolResolver) queryProvider(ctx context.Context, provider common.Address) (common.Address, error) {
	input, err := providerABI.Pack("getPool")
	if err != nil {
		return common.Address{}, err
	}

	output, err := r.eth.CallContract(ctx, ethereum.CallMsg{To: &provider, Data: input}, nil)
	if err != nil {
		return common.Address{}, err
	}

	results, err := providerABI.Unpack("getPool", output)
	if err != nil {
		return common.Address{}, err
	}
	if len(results) != 1 {
		return common.Address{}, fmt.Errorf("getPool returned %d values", len(results))
	}
	address, ok := results[0].(common.Address)
	if !ok || address == (common.Address{}) {
		return common.Address{}, errors.New("getPool returned empty address")
	}
	return address, nil
}
