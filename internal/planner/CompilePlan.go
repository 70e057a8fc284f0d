/*

This file contains the execution-plan compiler. It turns one ranked candidate
plus the caller's funding intent into an ordered list of declarative steps
(optional swap, allowance approval, lending-pool supply call). Compilation is
fail-fast: any unresolvable input aborts the whole plan rather than emitting a
partial one.

*/

package planner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/registry"
	"github.com/stableyield/autopilot/internal/types"
	"github.com/stableyield/autopilot/internal/utils"
	"github.com/stableyield/autopilot/internal/wallet"
)

var plannerLogger = logger.GetForComponent("planner")

var (
	ErrChainMismatch    = errors.New("candidate chain not supported for execution")
	ErrUnsupportedToken = errors.New("token not deployed on chain")
	ErrInvalidAmount    = errors.New("invalid deposit amount")
	ErrQuoteUnavailable = errors.New("swap quote unavailable")
	ErrPoolUnavailable  = errors.New("lending pool unavailable")
)

// maxAllowance is the full-scope ERC-20 approval amount (2^256 - 1).
var maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

const aavePoolABI = `[{"name":"supply","type":"function","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]}]`

var poolABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aavePoolABI))
	if err != nil {
		panic("planner: invalid pool ABI: " + err.Error())
	}
	poolABI = parsed
}

// QuoteOracle prices a prospective swap. Implementations return the expected
// buy amount in base units for selling the given amount.
type QuoteOracle interface {
	GetPrice(ctx context.Context, chainID types.ChainID, sellToken, buyToken common.Address, sellAmountWei sdkmath.Int) (sdkmath.Int, error)
}

// PoolResolver resolves the active lending pool for a chain.
type PoolResolver interface {
	LendingPool(ctx context.Context, chainID types.ChainID) (common.Address, error)
}

// DecimalsSource reads token precision, typically from the chain. A nil
// source falls back to the static registry table.
type DecimalsSource interface {
	DecimalsOf(ctx context.Context, token common.Address) int
}

// PlanRequest is everything the compiler needs: where funds start, how much,
// which candidate to enter, and who the resulting position belongs to.
type PlanRequest struct {
	Candidate   types.Candidate
	StartAsset  types.AssetSymbol
	AmountInput string
	SlippageBps int64
	Session     wallet.Session
}

// Compiler builds execution plans against injected market dependencies.
type Compiler struct {
	oracle   QuoteOracle
	pools    PoolResolver
	decimals DecimalsSource
}

func NewCompiler(oracle QuoteOracle, pools PoolResolver, decimals DecimalsSource) *Compiler {
	return &Compiler{oracle: oracle, pools: pools, decimals: decimals}
}

// CompilePlan validates the request and emits the ordered steps. Execution is
// limited to Ethereum mainnet; candidates on any other chain fail with
// ErrChainMismatch before any amount parsing or network calls happen.
func (c *Compiler) CompilePlan(ctx context.Context, req PlanRequest) (types.PlanResponse, error) {
	chainID := req.Candidate.ChainID
	if chainID != registry.EthereumChainID {
		return types.PlanResponse{}, errors.Join(ErrChainMismatch,
			fmt.Errorf("candidate is on chain %d, execution requires chain %d", chainID, registry.EthereumChainID))
	}
	if req.Session.ChainID != chainID {
		return types.PlanResponse{}, errors.Join(ErrChainMismatch,
			fmt.Errorf("wallet session is on chain %d, candidate is on chain %d", req.Session.ChainID, chainID))
	}

	startToken, startDecimals, err := c.resolveStartAsset(ctx, chainID, req.StartAsset)
	if err != nil {
		return types.PlanResponse{}, err
	}
	targetToken, ok := registry.TokenAddress(chainID, req.Candidate.Token)
	if !ok {
		return types.PlanResponse{}, errors.Join(ErrUnsupportedToken,
			fmt.Errorf("candidate token %s has no deployment on chain %d", req.Candidate.Token, chainID))
	}
	amountBase, err := utils.ToBaseUnits(req.AmountInput, startDecimals)
	if err != nil {
		return types.PlanResponse{}, errors.Join(ErrInvalidAmount, err)
	}
	amountWei, err := utils.ParseBaseUnits(amountBase)
	if err != nil {
		return types.PlanResponse{}, errors.Join(ErrInvalidAmount, err)
	}
	if !amountWei.IsPositive() {
		return types.PlanResponse{}, errors.Join(ErrInvalidAmount,
			fmt.Errorf("deposit amount must be positive, got %s", req.AmountInput))
	}

	var steps []types.ExecutionStep
	supplyAmount := amountWei

	if string(req.StartAsset) != string(req.Candidate.Token) {
		expected, err := c.oracle.GetPrice(ctx, chainID, startToken, targetToken, amountWei)
		if err != nil {
			return types.PlanResponse{}, errors.Join(ErrQuoteUnavailable, err)
		}
		if !expected.IsPositive() {
			return types.PlanResponse{}, errors.Join(ErrQuoteUnavailable,
				fmt.Errorf("oracle returned non-positive buy amount %s", expected.String()))
		}
		minOut, err := MinimumOut(expected, req.SlippageBps)
		if err != nil {
			return types.PlanResponse{}, err
		}
		steps = append(steps, types.ExecutionStep{
			Type:            types.StepSwap,
			ChainID:         chainID,
			SellToken:       startToken.Hex(),
			BuyToken:        targetToken.Hex(),
			SellAmountWei:   amountWei.String(),
			MinBuyAmountWei: minOut.String(),
			SlippageBps:     req.SlippageBps,
		})
		// Downstream steps budget only the guaranteed minimum from the swap.
		supplyAmount = minOut
	}

	pool, err := c.pools.LendingPool(ctx, chainID)
	if err != nil {
		return types.PlanResponse{}, errors.Join(ErrPoolUnavailable, err)
	}

	steps = append(steps, types.ExecutionStep{
		Type:      types.StepApprove,
		ChainID:   chainID,
		Token:     targetToken.Hex(),
		Spender:   pool.Hex(),
		AmountWei: maxAllowance.String(),
	})

	calldata, err := poolABI.Pack("supply", targetToken, supplyAmount.BigInt(), req.Session.Address, uint16(0))
	if err != nil {
		return types.PlanResponse{}, errors.Join(ErrPoolUnavailable, fmt.Errorf("encoding supply call: %w", err))
	}
	steps = append(steps, types.ExecutionStep{
		Type:        types.StepContractCall,
		ChainID:     chainID,
		To:          pool.Hex(),
		Data:        hexutil.Encode(calldata),
		ValueHex:    "0x0",
		Description: fmt.Sprintf("Supply %s to %s", req.Candidate.Token, req.Candidate.Protocol),
	})

	plannerLogger.Info().
		Str("poolId", req.Candidate.PoolID).
		Str("startAsset", string(req.StartAsset)).
		Str("amountWei", amountWei.String()).
		Int("steps", len(steps)).
		Msg("Plan compiled")

	return types.PlanResponse{
		Candidate: types.CandidateSummary{
			PoolID:   req.Candidate.PoolID,
			ChainID:  chainID,
			Protocol: req.Candidate.Protocol,
			Token:    req.Candidate.Token,
			APY:      req.Candidate.APY,
			TvlUSD:   req.Candidate.TvlUSD,
		},
		Steps: steps,
		Assumptions: types.PlanAssumptions{
			StartAsset:  string(req.StartAsset),
			AmountInput: req.AmountInput,
			SlippageBps: req.SlippageBps,
		},
	}, nil
}

// resolveStartAsset maps the funding asset to a sell address and precision.
// The native asset uses the aggregator sentinel and 18 decimals; stablecoins
// resolve through the registry, with the on-chain decimals source preferred
// when one is wired.
func (c *Compiler) resolveStartAsset(ctx context.Context, chainID types.ChainID, asset types.AssetSymbol) (common.Address, int, error) {
	if asset == types.NativeETH {
		return common.HexToAddress(registry.NativeSentinel), registry.NativeDecimals, nil
	}

	token, ok := registry.TokenAddress(chainID, types.Stablecoin(asset))
	if !ok {
		return common.Address{}, 0, errors.Join(ErrUnsupportedToken,
			fmt.Errorf("start asset %s has no deployment on chain %d", asset, chainID))
	}

	if c.decimals != nil {
		return token, c.decimals.DecimalsOf(ctx, token), nil
	}
	decimals, ok := registry.StableDecimals(types.Stablecoin(asset))
	if !ok {
		return common.Address{}, 0, errors.Join(ErrUnsupportedToken,
			fmt.Errorf("no decimals known for %s", asset))
	}
	return token, decimals, nil
}
