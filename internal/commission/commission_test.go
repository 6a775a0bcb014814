package commission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/catalog"
	"github.com/reelkit/reelkit/internal/errclass"
)

func TestCalculate(t *testing.T) {
	desk := catalog.Product{Name: "Desk", Price: 200, CommissionRate: 0.1}
	est, err := Calculate(desk, Assumptions{Views: 100000, ClickThroughRate: 0.02, ConversionRate: 0.05})
	require.NoError(t, err)

	require.InDelta(t, 2000, est.Clicks, 1e-9)
	require.InDelta(t, 100, est.Sales, 1e-9)
	require.InDelta(t, 20000, est.GrossRevenue, 1e-9)
	require.InDelta(t, 2000, est.Commission, 1e-9)
	require.InDelta(t, 20, est.PerSale, 1e-9)
	require.InDelta(t, 20, est.PerThousand, 1e-9)
}

func TestCalculateZeroViews(t *testing.T) {
	est, err := Calculate(catalog.Product{Name: "Mug", Price: 12.5, CommissionRate: 0.04}, Assumptions{})
	require.NoError(t, err)
	require.Zero(t, est.Commission)
	require.Zero(t, est.PerThousand)
	require.InDelta(t, 0.5, est.PerSale, 1e-9)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	good := catalog.Product{Name: "Mug", Price: 10, CommissionRate: 0.1}

	_, err := Calculate(good, Assumptions{Views: -1})
	require.Equal(t, errclass.CategoryValidation, errclass.Categorize(err))

	_, err = Calculate(good, Assumptions{Views: 1, ClickThroughRate: 2})
	require.Equal(t, errclass.CategoryValidation, errclass.Categorize(err))

	_, err = Calculate(catalog.Product{Name: "Free", CommissionRate: 0.1}, DefaultAssumptions())
	require.Equal(t, errclass.CategoryValidation, errclass.Categorize(err))
}

func TestCalculateAll(t *testing.T) {
	c := &catalog.Catalog{Products: []catalog.Product{
		{Name: "A", Price: 10, CommissionRate: 0.1},
		{Name: "B", Price: 20, CommissionRate: 0.2},
	}}
	out, err := CalculateAll(c, DefaultAssumptions())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "B", out[1].Product)
	require.Greater(t, out[1].Commission, out[0].Commission)
}
