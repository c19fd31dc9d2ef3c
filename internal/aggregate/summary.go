package aggregate

import (
	"math"
	"sort"
	"time"

	"trade-journal-go/internal/models"
)

// DayStat is one trading day in the chart series.
type DayStat struct {
	Date          string  `json:"date"`
	NetPnL        float64 `json:"net_pnl"`
	TradeCount    int     `json:"trade_count"`
	DayROIPercent float64 `json:"day_roi_percent"`
	DailyBasis    float64 `json:"daily_basis"`
}

// Summary is the full derived view over an entry snapshot.
type Summary struct {
	Net           float64   `json:"net"`
	Deposits      float64   `json:"deposits"`
	Withdrawals   float64   `json:"withdrawals"`
	FundedCapital float64   `json:"funded_capital"`
	Balance       float64   `json:"balance"`
	ROIPercent    float64   `json:"roi_percent"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	WinRate       float64   `json:"win_rate"`
	BestDay       float64   `json:"best_day"`
	WorstDay      float64   `json:"worst_day"`
	Series        []DayStat `json:"series"`
}

// basisEpsilon guards the per-day and per-window ROI divisions. A basis this
// close to zero makes a percentage meaningless.
const basisEpsilon = 0.01

// Compute derives the summary from an entry snapshot. It is a pure function
// of its input and never fails on a malformed entry: a missing type is
// inferred from the amount sign, a bad date degrades into the sentinel
// bucket, a missing amount counts as zero.
func Compute(entries []models.LedgerEntry) Summary {
	var sum Summary

	dailyPnL := make(map[string]float64)
	dailyCount := make(map[string]int)
	dailyFlow := make(map[string]float64)

	for _, e := range entries {
		date := e.Date
		if date == "" {
			date = "1970-01-01"
		}
		switch e.EffectiveType() {
		case models.EntryDeposit:
			sum.Deposits += e.Amount
			dailyFlow[date] += e.Amount
		case models.EntryWithdraw:
			sum.Withdrawals += math.Abs(e.Amount)
			dailyFlow[date] += e.Amount
		default:
			sum.Net += e.Amount
			if e.Amount > 0 {
				sum.Wins++
			} else {
				sum.Losses++
			}
			dailyPnL[date] += e.Amount
			dailyCount[date]++
		}
	}

	sum.FundedCapital = sum.Deposits - sum.Withdrawals
	sum.Balance = sum.FundedCapital + sum.Net
	// ROI against non-positive funded capital is not meaningful.
	if sum.FundedCapital > 0 {
		sum.ROIPercent = sum.Net / sum.FundedCapital * 100
	}
	if trades := sum.Wins + sum.Losses; trades > 0 {
		sum.WinRate = float64(sum.Wins) / float64(trades) * 100
	}

	best, worst := math.Inf(-1), math.Inf(1)
	for _, v := range dailyPnL {
		best = math.Max(best, v)
		worst = math.Min(worst, v)
	}
	if math.IsInf(best, -1) {
		best = 0
	}
	if math.IsInf(worst, 1) || worst > 0 {
		worst = 0
	}
	sum.BestDay, sum.WorstDay = best, worst

	sum.Series = buildSeries(dailyPnL, dailyCount, dailyFlow)
	return sum
}

// buildSeries walks the chronological date axis once, carrying the running
// balance. Transfer-only days move the balance but are not emitted as bars.
func buildSeries(dailyPnL map[string]float64, dailyCount map[string]int, dailyFlow map[string]float64) []DayStat {
	seen := make(map[string]struct{}, len(dailyPnL)+len(dailyFlow))
	axis := make([]string, 0, len(seen))
	for d := range dailyPnL {
		seen[d] = struct{}{}
	}
	for d := range dailyFlow {
		seen[d] = struct{}{}
	}
	for d := range seen {
		if validDay(d) {
			axis = append(axis, d)
		}
	}
	sort.Strings(axis)

	series := make([]DayStat, 0, len(dailyPnL))
	running := 0.0
	for _, d := range axis {
		flow := dailyFlow[d]
		// Capital available to trade that day, after that day's transfers.
		basis := running + flow
		if pnl, traded := dailyPnL[d]; traded {
			roi := 0.0
			if math.Abs(basis) > basisEpsilon {
				roi = pnl / basis * 100
			}
			series = append(series, DayStat{
				Date:          d,
				NetPnL:        pnl,
				TradeCount:    dailyCount[d],
				DayROIPercent: roi,
				DailyBasis:    basis,
			})
		}
		running += flow + dailyPnL[d]
	}
	return series
}

func validDay(d string) bool {
	_, err := time.Parse("2006-01-02", d)
	return err == nil
}
