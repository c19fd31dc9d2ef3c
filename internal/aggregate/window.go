package aggregate

import "math"

// DefaultPageSize is the chart window width in trading days.
const DefaultPageSize = 10

// Window is one visible page of the chart series plus its period summary.
type Window struct {
	Days             []DayStat `json:"days"`
	PeriodPnL        float64   `json:"period_pnl"`
	PeriodROIPercent float64   `json:"period_roi_percent"`
	PageIndex        int       `json:"page_index"`
	TotalPages       int       `json:"total_pages"`
}

// TotalPages returns the number of pages a series of the given length
// chunks into.
func TotalPages(seriesLen, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (seriesLen + pageSize - 1) / pageSize
}

// WindowFor selects one page of the series. The series is oldest-first, but
// pageIndex is user-facing and inverted: 0 is the newest page. Out-of-range
// indices clamp to the nearest valid page.
//
// The period ROI denominator is the running balance at the start of the
// visible window, so it answers "return relative to capital at the start of
// this window", not relative to all-time capital.
func WindowFor(series []DayStat, pageIndex, pageSize int) Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(series), pageSize)
	if total == 0 {
		return Window{}
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageIndex >= total {
		pageIndex = total - 1
	}

	chunk := total - 1 - pageIndex
	start := chunk * pageSize
	end := start + pageSize
	if end > len(series) {
		end = len(series)
	}
	days := series[start:end]

	w := Window{Days: days, PageIndex: pageIndex, TotalPages: total}
	for _, d := range days {
		w.PeriodPnL += d.NetPnL
	}
	if basis := days[0].DailyBasis; math.Abs(basis) > basisEpsilon {
		w.PeriodROIPercent = w.PeriodPnL / basis * 100
	}
	return w
}

// Pager is the UI-facing chart cursor. Index 0 is the newest page; stepping
// past either edge is a no-op.
type Pager struct {
	index    int
	pageSize int
}

// NewPager creates a pager with the given page size.
func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{pageSize: pageSize}
}

// Window returns the current page of the series, re-clamping the cursor in
// case the series shrank since the last navigation.
func (p *Pager) Window(series []DayStat) Window {
	w := WindowFor(series, p.index, p.pageSize)
	p.index = w.PageIndex
	return w
}

// Older moves one page toward the oldest data.
func (p *Pager) Older(seriesLen int) {
	if total := TotalPages(seriesLen, p.pageSize); p.index < total-1 {
		p.index++
	}
}

// Newer moves one page toward the most recent data.
func (p *Pager) Newer() {
	if p.index > 0 {
		p.index--
	}
}

// Index returns the current page index.
func (p *Pager) Index() int { return p.index }
