package datafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/autopilot/internal/ranker"
	"github.com/stableyield/autopilot/internal/types"
)

// feedPayload is the aggregator's native vocabulary: project/symbol/pool,
// lowercase chain labels, separate base and reward APY figures.
const feedPayload = `{
	"status": "success",
	"data": [
		{"pool": "p1", "project": "aave-v3", "chain": "ethereum", "symbol": "usdc", "apyBase": 4.2, "apyReward": 0.3, "tvlUsd": 50000000, "url": "https://app.aave.com"},
		{"pool": "p2", "project": "compound-v3", "chain": "base", "symbol": "USDC", "apyBase": 3.1, "tvlUsd": 12000000}
	]
}`

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestFetchRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		w.Write([]byte(feedPayload))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	rows, err := client.FetchRows(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p1", rows[0].PoolID)
	assert.Equal(t, "aave-v3", rows[0].Protocol)
	assert.Equal(t, "Ethereum", rows[0].Chain)
	assert.Equal(t, "USDC", rows[0].Stablecoin)
	require.NotNil(t, rows[0].APYNet)
	assert.InDelta(t, 4.5, *rows[0].APYNet, 1e-9)
	assert.Equal(t, "https://app.aave.com", rows[0].Link)

	assert.Equal(t, "Base", rows[1].Chain)
	require.NotNil(t, rows[1].APYNet)
	assert.InDelta(t, 3.1, *rows[1].APYNet, 1e-9)
	assert.Equal(t, "https://defillama.com/yields/pool/p2", rows[1].Link)
}

// The rows the client emits must survive normalization end to end; the
// aggregator's own field names never leak past the client.
func TestFetchRowsShapedRowsNormalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	rows, err := client.FetchRows(context.Background())
	require.NoError(t, err)

	candidate, ok := ranker.NormalizeRow(rows[0])
	require.True(t, ok)
	assert.Equal(t, "p1", candidate.PoolID)
	assert.Equal(t, types.ChainID(1), candidate.ChainID)
	assert.Equal(t, "aave-v3", candidate.Protocol)
	assert.Equal(t, types.StableUSDC, candidate.Token)
	assert.InDelta(t, 4.5, candidate.APY, 1e-9)
}

func TestFetchRowsAcceptsBareArrayPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"pool": "p9", "project": "spark", "chain": "ethereum", "symbol": "dai", "apyBase": 5.0, "tvlUsd": 900000000}]`))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	rows, err := client.FetchRows(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p9", rows[0].PoolID)
	assert.Equal(t, "DAI", rows[0].Stablecoin)
}

func TestFetchRowsRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(feedPayload))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	rows, err := client.FetchRows(context.Background())

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchRowsExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	_, err := client.FetchRows(context.Background())

	require.ErrorIs(t, err, ErrFeedUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchRowsDoesNotRetryMalformedPayload(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"status": "ok"`))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	_, err := client.FetchRows(context.Background())

	require.ErrorIs(t, err, ErrFeedMalformed)
	assert.Equal(t, int32(1), hits.Load(), "malformed payloads must not be retried")
}

func TestFetchRowsRejectsMissingDataArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, fastRetry())
	_, err := client.FetchRows(context.Background())

	require.ErrorIs(t, err, ErrFeedMalformed)
}

func TestFetchRowsBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := client.FetchRows(context.Background())
		require.Error(t, err)
	}
	afterFailures := hits.Load()

	// Breaker is open now: the next call must fail without touching the server.
	_, err := client.FetchRows(context.Background())
	require.ErrorIs(t, err, ErrFeedUnavailable)
	assert.Equal(t, afterFailures, hits.Load())
}

func TestFetchRowsHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewFeedClient(server.URL, fastRetry())
	_, err := client.FetchRows(ctx)
	require.Error(t, err)
}
