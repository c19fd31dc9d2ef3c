package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal-go/internal/models"
)

func TestComputeBasicScenario(t *testing.T) {
	entries := []models.LedgerEntry{
		{ID: "a", Date: "2024-01-01", Asset: "CASH", Type: models.EntryDeposit, Amount: 1000},
		{ID: "b", Date: "2024-01-02", Asset: "BTC/USD", Type: models.EntryWin, Amount: 100},
		{ID: "c", Date: "2024-01-02", Asset: "BTC/USD", Type: models.EntryLoss, Amount: -40},
	}

	sum := Compute(entries)

	assert.InDelta(t, 60.0, sum.Net, 1e-9)
	assert.InDelta(t, 1000.0, sum.FundedCapital, 1e-9)
	assert.InDelta(t, 1060.0, sum.Balance, 1e-9)
	assert.InDelta(t, 6.0, sum.ROIPercent, 1e-9)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 1, sum.Losses)
	assert.InDelta(t, 50.0, sum.WinRate, 1e-9)

	require.Len(t, sum.Series, 1)
	day := sum.Series[0]
	assert.Equal(t, "2024-01-02", day.Date)
	assert.InDelta(t, 60.0, day.NetPnL, 1e-9)
	assert.Equal(t, 2, day.TradeCount)
	assert.InDelta(t, 1000.0, day.DailyBasis, 1e-9)
	assert.InDelta(t, 6.0, day.DayROIPercent, 1e-9)
}

func TestComputeInfersTypeFromSign(t *testing.T) {
	entries := []models.LedgerEntry{
		{ID: "a", Date: "2024-02-01", Amount: 50},  // no type: WIN
		{ID: "b", Date: "2024-02-01", Amount: -30}, // no type: LOSS
		{ID: "c", Date: "2024-02-01", Amount: 0},   // zero counts as WIN... but not a win by sign
	}

	sum := Compute(entries)

	// Inference makes amount >= 0 a WIN, but win/loss tallies go by strict
	// sign, so a zero-amount trade lands in the loss column.
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 2, sum.Losses)
	assert.InDelta(t, 20.0, sum.Net, 1e-9)
	require.Len(t, sum.Series, 1)
	assert.Equal(t, 3, sum.Series[0].TradeCount)
}

func TestComputeROIGuard(t *testing.T) {
	testCases := []struct {
		name    string
		entries []models.LedgerEntry
		wantROI float64
	}{
		{
			name: "no deposits",
			entries: []models.LedgerEntry{
				{ID: "a", Date: "2024-01-02", Type: models.EntryWin, Amount: 500},
			},
			wantROI: 0,
		},
		{
			name: "withdrawals exceed deposits",
			entries: []models.LedgerEntry{
				{ID: "a", Date: "2024-01-01", Type: models.EntryDeposit, Amount: 100},
				{ID: "b", Date: "2024-01-02", Type: models.EntryWithdraw, Amount: -300},
				{ID: "c", Date: "2024-01-03", Type: models.EntryWin, Amount: 50},
			},
			wantROI: 0,
		},
		{
			name: "positive capital",
			entries: []models.LedgerEntry{
				{ID: "a", Date: "2024-01-01", Type: models.EntryDeposit, Amount: 200},
				{ID: "b", Date: "2024-01-02", Type: models.EntryWin, Amount: 50},
			},
			wantROI: 25,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sum := Compute(tc.entries)
			assert.InDelta(t, tc.wantROI, sum.ROIPercent, 1e-9)
		})
	}
}

func TestComputeBestWorstDay(t *testing.T) {
	t.Run("no trading activity", func(t *testing.T) {
		sum := Compute([]models.LedgerEntry{
			{ID: "a", Date: "2024-01-01", Type: models.EntryDeposit, Amount: 100},
		})
		assert.Zero(t, sum.BestDay)
		assert.Zero(t, sum.WorstDay)
	})

	t.Run("worst clamped to zero on winning streak", func(t *testing.T) {
		sum := Compute([]models.LedgerEntry{
			{ID: "a", Date: "2024-01-01", Type: models.EntryWin, Amount: 10},
			{ID: "b", Date: "2024-01-02", Type: models.EntryWin, Amount: 25},
		})
		assert.InDelta(t, 25.0, sum.BestDay, 1e-9)
		assert.Zero(t, sum.WorstDay)
	})

	t.Run("losing streak", func(t *testing.T) {
		sum := Compute([]models.LedgerEntry{
			{ID: "a", Date: "2024-01-01", Type: models.EntryLoss, Amount: -5},
			{ID: "b", Date: "2024-01-02", Type: models.EntryLoss, Amount: -10},
		})
		assert.InDelta(t, -5.0, sum.BestDay, 1e-9)
		assert.InDelta(t, -10.0, sum.WorstDay, 1e-9)
	})
}

func TestComputeRunningBalance(t *testing.T) {
	entries := []models.LedgerEntry{
		{ID: "a", Date: "2024-01-01", Type: models.EntryDeposit, Amount: 1000},
		{ID: "b", Date: "2024-01-02", Type: models.EntryWin, Amount: 100},
		{ID: "c", Date: "2024-01-03", Type: models.EntryDeposit, Amount: 400}, // transfer-only day
		{ID: "d", Date: "2024-01-04", Type: models.EntryLoss, Amount: -150},
	}

	sum := Compute(entries)

	// Transfer-only days move the balance but are not plotted.
	require.Len(t, sum.Series, 2)
	assert.Equal(t, "2024-01-02", sum.Series[0].Date)
	assert.InDelta(t, 1000.0, sum.Series[0].DailyBasis, 1e-9)

	assert.Equal(t, "2024-01-04", sum.Series[1].Date)
	assert.InDelta(t, 1500.0, sum.Series[1].DailyBasis, 1e-9) // 1000 + 100 + 400
	assert.InDelta(t, -150.0/1500.0*100, sum.Series[1].DayROIPercent, 1e-9)
}

func TestComputeZeroBasisDay(t *testing.T) {
	sum := Compute([]models.LedgerEntry{
		{ID: "a", Date: "2024-01-02", Type: models.EntryWin, Amount: 100},
	})
	require.Len(t, sum.Series, 1)
	assert.Zero(t, sum.Series[0].DayROIPercent)
	assert.Zero(t, sum.Series[0].DailyBasis)
}

func TestComputeMalformedEntries(t *testing.T) {
	entries := []models.LedgerEntry{
		{ID: "a", Date: "not-a-date", Type: models.EntryWin, Amount: 50},
		{ID: "b", Date: "", Type: models.EntryLoss, Amount: -20}, // empty date: sentinel bucket
		{ID: "c", Date: "2024-01-02", Type: models.EntryWin},     // missing amount
	}

	sum := Compute(entries)

	// Totals still include every trade; only the unplottable date drops
	// out of the series.
	assert.InDelta(t, 30.0, sum.Net, 1e-9)
	dates := make([]string, 0, len(sum.Series))
	for _, d := range sum.Series {
		dates = append(dates, d.Date)
	}
	assert.Equal(t, []string{"1970-01-01", "2024-01-02"}, dates)
}
