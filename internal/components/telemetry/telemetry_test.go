package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	inner := NewTestAPI(t)
	scoped := NewScopedAPI("catalog", inner)

	scoped.ReportBroken("resolver.list-all", errors.New("boom"), 42)
	scoped.ReportWarning("resolver.item", "duplicate service id")
	scoped.ReportDebug("menu fetched")
	scoped.ReportCount("resolver.list-all", 7)

	broken := inner.Reports("broken", "")
	require.Len(t, broken, 1)
	require.Equal(t, "catalog: resolver.list-all", broken[0].ID)
	require.Equal(t, []any{errors.New("boom"), 42}, broken[0].Params)

	require.Len(t, inner.Reports("warning", "catalog: resolver.item"), 1)
	require.Len(t, inner.Reports("debug", "catalog: menu fetched"), 1)

	counts := inner.Reports("count", "resolver.list-all")
	require.Len(t, counts, 1)
	require.Equal(t, []any{int64(7)}, counts[0].Params)
}

func TestNestedScopes(t *testing.T) {
	inner := NewTestAPI(t)
	NewScopedAPI("outer", NewScopedAPI("inner", inner)).ReportWarning("thing")
	require.Len(t, inner.Reports("warning", "inner: outer: thing"), 1)
}

func TestMeteredAPIForwards(t *testing.T) {
	inner := NewTestAPI(t)
	metered := NewMeteredAPI("test", inner)

	metered.ReportCount("aggregator.get-all", 3)
	metered.ReportWarning("aggregator.dates", "unparsable date")

	require.Len(t, inner.Reports("count", "aggregator.get-all"), 1)
	require.Len(t, inner.Reports("warning", "aggregator.dates"), 1)
}
