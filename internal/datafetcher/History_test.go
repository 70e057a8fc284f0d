package datafetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/autopilot/internal/types"
)

func TestSynthesizeHistory(t *testing.T) {
	candidate := types.Candidate{PoolID: "p1", APY: 5.0, TvlUSD: 40_000_000}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	history := SynthesizeHistory(candidate, 30, now)

	assert.Equal(t, "p1", history.PoolID)
	assert.Equal(t, "synthetic", history.DataQuality)
	require.Len(t, history.Points, 30)
	assert.Equal(t, "2026-08-28", history.Points[29].Date)
	assert.Equal(t, "2026-07-30", history.Points[0].Date)

	for _, point := range history.Points {
		assert.GreaterOrEqual(t, point.APY, 0.0)
		assert.GreaterOrEqual(t, point.TvlUSD, 0.0)
	}
}

func TestSynthesizeHistoryIsDeterministic(t *testing.T) {
	candidate := types.Candidate{PoolID: "p1", APY: 5.0, TvlUSD: 40_000_000}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	first := SynthesizeHistory(candidate, 14, now)
	second := SynthesizeHistory(candidate, 14, now)
	assert.Equal(t, first, second)
}

func TestSynthesizeHistoryDefaultsDays(t *testing.T) {
	candidate := types.Candidate{PoolID: "p1", APY: 5.0, TvlUSD: 40_000_000}

	history := SynthesizeHistory(candidate, 0, time.Now())
	assert.Len(t, history.Points, 30)
}
