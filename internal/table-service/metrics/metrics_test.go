package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/roulette-table-poc/internal/table"
)

func TestHooksFeedMetrics(t *testing.T) {
	m := NewTable(prometheus.NewRegistry())
	tb, err := table.New("t1", 10, "croupier", table.Deps{Hooks: m.Hooks()})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tb.PlaceBet(ctx, "alice", table.SideOdd, 10))
	require.NoError(t, tb.PlaceBet(ctx, "bob", table.SideEven, 10))
	require.Error(t, tb.PlaceBet(ctx, "croupier", table.SideEven, 10))
	require.NoError(t, tb.CloseBets(ctx, "croupier"))
	require.NoError(t, tb.SetWinningOutcome(ctx, "croupier", 3))
	_, err = tb.Withdraw(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BetsPlaced.WithLabelValues("odd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BetsPlaced.WithLabelValues("even")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("place_bet", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payouts))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.PayoutTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Custody))
	assert.Equal(t, float64(table.PhaseSettled), testutil.ToFloat64(m.Phase))
}
