/*

This file contains the swap price oracle backed by the 0x aggregator API.
GetPrice is the indicative endpoint used while compiling plans; GetQuote is
the executable upgrade that also returns calldata for the settlement contract.

*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/types"
)

var oracleLogger = logger.GetForComponent("quote_oracle")

var ErrQuoteUnavailable = errors.New("aggregator quote unavailable")

// ZeroXClient talks to the 0x swap API. It satisfies the planner's
// QuoteOracle interface.
type ZeroXClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewZeroXClient(baseURL, apiKey string) *ZeroXClient {
	return &ZeroXClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

type priceResponse struct {
	BuyAmount string `json:"buyAmount"`
}

// ExecutableQuote is a firm quote with settlement calldata attached.
type ExecutableQuote struct {
	BuyAmount sdkmath.Int
	To        common.Address
	Data      string
	ValueHex  string
}

type quoteResponse struct {
	BuyAmount   string `json:"buyAmount"`
	Transaction struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"transaction"`
}

// GetPrice returns the indicative buy amount for the proposed sale. A missing,
// zero or unparsable buy amount is treated as no quote.
func (z *ZeroXClient) GetPrice(ctx context.Context, chainID types.ChainID, sellToken, buyToken common.Address, sellAmountWei sdkmath.Int) (sdkmath.Int, error) {
	body, err := z.call(ctx, "/swap/permit2/price", chainID, sellToken, buyToken, sellAmountWei)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return sdkmath.ZeroInt(), errors.Join(ErrQuoteUnavailable, err)
	}
	return parseBuyAmount(parsed.BuyAmount)
}

// GetQuote returns a firm, executable quote. Plans compiled from GetPrice can
// be re-priced through this path right before signing.
func (z *ZeroXClient) GetQuote(ctx context.Context, chainID types.ChainID, sellToken, buyToken common.Address, sellAmountWei sdkmath.Int) (ExecutableQuote, error) {
	body, err := z.call(ctx, "/swap/permit2/quote", chainID, sellToken, buyToken, sellAmountWei)
	if err != nil {
		return ExecutableQuote{}, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ExecutableQuote{}, errors.Join(ErrQuoteUnavailable, err)
	}
	buyAmount, err := parseBuyAmount(parsed.BuyAmount)
	if err != nil {
		return ExecutableQuote{}, err
	}
	if !common.IsHexAddress(parsed.Transaction.To) {
		return ExecutableQuote{}, errors.Join(ErrQuoteUnavailable, fmt.Errorf("quote has invalid settlement address %q", parsed.Transaction.To))
	}

	valueHex := parsed.Transaction.Value
	if valueHex == "" {
		valueHex = "0x0"
	}
	return ExecutableQuote{
		BuyAmount: buyAmount,
		To:        common.HexToAddress(parsed.Transaction.To),
		Data:      parsed.Transaction.Data,
		ValueHex:  valueHex,
	}, nil
}

func (z *ZeroXClient) call(ctx context.Context, path string, chainID types.ChainID, sellToken, buyToken common.Address, sellAmountWei sdkmath.Int) ([]byte, error) {
	if err := z.limiter.Wait(ctx); err != nil {
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}

	query := url.Values{}
	query.Set("chainId", strconv.FormatInt(int64(chainID), 10))
	query.Set("sellToken", sellToken.Hex())
	query.Set("buyToken", buyToken.Hex())
	query.Set("sellAmount", sellAmountWei.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, z.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}
	req.Header.Set("0x-api-key", z.apiKey)
	req.Header.Set("0x-version", "v2")

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		oracleLogger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Aggregator rejected quote request")
		return nil, errors.Join(ErrQuoteUnavailable, fmt.Errorf("aggregator returned status %d", resp.StatusCode))
	}
	return body, nil
}

func parseBuyAmount(raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.ZeroInt(), errors.Join(ErrQuoteUnavailable, errors.New("quote has no buy amount"))
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), errors.Join(ErrQuoteUnavailable, fmt.Errorf("unparsable buy amount %q", raw))
	}
	if !amount.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(ErrQuoteUnavailable, fmt.Errorf("non-positive buy amount %s", amount.String()))
	}
	return amount, nil
}
