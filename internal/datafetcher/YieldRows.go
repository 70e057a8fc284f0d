/*

This file contains the yield feed client. It pulls pool records from the
upstream aggregator over HTTP and reshapes them into our raw row vocabulary,
with a rate limiter in front of the feed, bounded retries with backoff for
transient failures, and a circuit breaker so a dead feed fails fast instead
of burning the retry budget on every caller.

*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/types"
)

var feedLogger = logger.GetForComponent("yield_feed")

var (
	ErrFeedUnavailable = errors.New("yield feed unavailable")
	ErrFeedMalformed   = errors.New("yield feed returned malformed payload")
)

// RetryPolicy bounds how hard the client tries before giving up on a fetch.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries twice after the initial attempt with a short
// linear backoff.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

// feedEnvelope is the upstream response wrapper. The aggregator has served
// both `{status, data}` and a bare top-level array over time, so the decoder
// accepts either.
type feedEnvelope struct {
	Status string      `json:"status"`
	Data   []llamaPool `json:"data"`
}

// llamaPool is one pool record as DeFiLlama's /pools endpoint emits it.
type llamaPool struct {
	Pool           string   `json:"pool"`
	Project        string   `json:"project"`
	Chain          string   `json:"chain"`
	Symbol         string   `json:"symbol"`
	APYBase        *float64 `json:"apyBase"`
	APYReward      *float64 `json:"apyReward"`
	TvlUSD         *float64 `json:"tvlUsd"`
	URL            string   `json:"url"`
	ProjectWebsite string   `json:"projectWebsite"`
}

// FeedClient fetches raw yield rows.
type FeedClient struct {
	baseURL string
	client  *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewFeedClient builds a feed client for the given base URL. The limiter
// caps the request rate at 2 rps with a small burst; the breaker opens after
// three consecutive failed fetches and probes again after 30 seconds.
func NewFeedClient(baseURL string, retry RetryPolicy) *FeedClient {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yield_feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			feedLogger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Feed breaker state change")
		},
	})
	return &FeedClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		breaker: breaker,
	}
}

// FetchRows returns the current raw rows. Transient HTTP failures are retried
// per the client's policy; an open breaker or exhausted retries surface as
// ErrFeedUnavailable.
func (f *FeedClient) FetchRows(ctx context.Context) ([]types.RawRow, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetchWithRetry(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Join(ErrFeedUnavailable, err)
		}
		return nil, err
	}
	return result.([]types.RawRow), nil
}

func (f *FeedClient) fetchWithRetry(ctx context.Context) ([]types.RawRow, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.Join(ErrFeedUnavailable, err)
		}

		rows, err := f.fetchOnce(ctx)
		if err == nil {
			feedLogger.Debug().Int("rows", len(rows)).Int("attempt", attempt).Msg("Fetched yield rows")
			return rows, nil
		}
		// Malformed payloads won't get better on retry.
		if errors.Is(err, ErrFeedMalformed) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		feedLogger.Warn().Err(err).Int("attempt", attempt).Int("maxAttempts", f.retry.MaxAttempts).Msg("Yield feed fetch failed")

		if attempt < f.retry.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrFeedUnavailable, ctx.Err())
			case <-time.After(f.retry.Backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, errors.Join(ErrFeedUnavailable, lastErr)
}

func (f *FeedClient) fetchOnce(ctx context.Context) ([]types.RawRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/pools", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("yield feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeFeedPayload(body)
}

func decodeFeedPayload(body []byte) ([]types.RawRow, error) {
	var pools []llamaPool
	if err := json.Unmarshal(body, &pools); err == nil {
		return shapeRows(pools), nil
	}

	var envelope feedEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Join(ErrFeedMalformed, err)
	}
	if envelope.Data == nil {
		return nil, errors.Join(ErrFeedMalformed, errors.New("missing data array"))
	}
	return shapeRows(envelope.Data), nil
}

// shapeRows maps the aggregator's vocabulary onto ours: project becomes the
// protocol slug, symbol the stablecoin, pool the pool id. Chain labels are
// title-cased and the net APY is the sum of base and reward, missing parts
// counted as zero.
func shapeRows(pools []llamaPool) []types.RawRow {
	rows := make([]types.RawRow, 0, len(pools))
	for _, p := range pools {
		apyNet := ptrOrZero(p.APYBase) + ptrOrZero(p.APYReward)
		link := p.URL
		if link == "" {
			link = p.ProjectWebsite
		}
		if link == "" && p.Pool != "" {
			link = "https://defillama.com/yields/pool/" + p.Pool
		}
		rows = append(rows, types.RawRow{
			Protocol:   p.Project,
			Chain:      titleCase(p.Chain),
			Stablecoin: strings.ToUpper(p.Symbol),
			APYBase:    p.APYBase,
			APYReward:  p.APYReward,
			APYNet:     &apyNet,
			TvlUSD:     p.TvlUSD,
			PoolID:     p.Pool,
			Link:       link,
		})
	}
	return rows
}

func ptrOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
