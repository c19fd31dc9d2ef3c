package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fiveDays builds an oldest-first series with one unit of P&L per day and a
// recognizable basis per position.
func fiveDays() []DayStat {
	series := make([]DayStat, 5)
	for i := range series {
		series[i] = DayStat{
			Date:       fmt.Sprintf("2024-01-0%d", i+1),
			NetPnL:     float64(i + 1),
			TradeCount: 1,
			DailyBasis: 100 * float64(i+1),
		}
	}
	return series
}

func TestWindowForSelectsNewestAtIndexZero(t *testing.T) {
	w := WindowFor(fiveDays(), 0, 2)

	assert.Equal(t, 3, w.TotalPages)
	require.Len(t, w.Days, 1) // 5 days chunk into 2+2+1
	assert.Equal(t, "2024-01-05", w.Days[0].Date)
	assert.Equal(t, 0, w.PageIndex)
}

func TestWindowForChunking(t *testing.T) {
	series := fiveDays()

	testCases := []struct {
		pageIndex int
		wantDates []string
		wantIndex int
	}{
		{pageIndex: 0, wantDates: []string{"2024-01-05"}, wantIndex: 0},
		{pageIndex: 1, wantDates: []string{"2024-01-03", "2024-01-04"}, wantIndex: 1},
		{pageIndex: 2, wantDates: []string{"2024-01-01", "2024-01-02"}, wantIndex: 2},
		{pageIndex: 7, wantDates: []string{"2024-01-01", "2024-01-02"}, wantIndex: 2}, // clamped high
		{pageIndex: -3, wantDates: []string{"2024-01-05"}, wantIndex: 0},              // clamped low
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("pageIndex=%d", tc.pageIndex), func(t *testing.T) {
			w := WindowFor(series, tc.pageIndex, 2)
			dates := make([]string, 0, len(w.Days))
			for _, d := range w.Days {
				dates = append(dates, d.Date)
			}
			assert.Equal(t, tc.wantDates, dates)
			assert.Equal(t, tc.wantIndex, w.PageIndex)
		})
	}
}

func TestWindowForPeriodSummary(t *testing.T) {
	w := WindowFor(fiveDays(), 1, 2) // days 3 and 4

	assert.InDelta(t, 7.0, w.PeriodPnL, 1e-9)
	// ROI is relative to the basis at the start of the visible window.
	assert.InDelta(t, 7.0/300.0*100, w.PeriodROIPercent, 1e-9)
}

func TestWindowForTinyBasis(t *testing.T) {
	series := []DayStat{{Date: "2024-01-01", NetPnL: 5, DailyBasis: 0.005}}
	w := WindowFor(series, 0, 10)
	assert.Zero(t, w.PeriodROIPercent)
}

func TestWindowForEmptySeries(t *testing.T) {
	w := WindowFor(nil, 0, 10)
	assert.Zero(t, w.TotalPages)
	assert.Empty(t, w.Days)
}

func TestPagerNavigationClamps(t *testing.T) {
	series := fiveDays()
	p := NewPager(2)

	assert.Equal(t, 0, p.Index())
	p.Newer() // already at the newest page
	assert.Equal(t, 0, p.Index())

	p.Older(len(series))
	p.Older(len(series))
	assert.Equal(t, 2, p.Index())
	p.Older(len(series)) // already at the oldest page
	assert.Equal(t, 2, p.Index())

	p.Newer()
	assert.Equal(t, 1, p.Index())
}

func TestPagerReclampsAfterShrink(t *testing.T) {
	p := NewPager(2)
	series := fiveDays()
	p.Older(len(series))
	p.Older(len(series))
	require.Equal(t, 2, p.Index())

	// The ledger shrank (e.g. a reset): the cursor snaps back in range.
	w := p.Window(series[:1])
	assert.Equal(t, 0, w.PageIndex)
	assert.Equal(t, 0, p.Index())
}
