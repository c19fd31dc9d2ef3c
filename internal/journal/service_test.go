package journal

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/docstore"
	"trade-journal-go/internal/ledger"
	"trade-journal-go/internal/models"
)

const testUID = "u1"

func newTestService(t *testing.T, cfg *config.Journal) *Service {
	t.Helper()
	docs, err := docstore.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	store := ledger.NewStore(zap.NewNop(), docs, &config.Store{AppID: "test-app"})
	return NewService(zap.NewNop(), store, cfg)
}

// startedService boots a service with a live subscription for u1.
func startedService(t *testing.T, cfg *config.Journal) *Service {
	t.Helper()
	if cfg == nil {
		cfg = &config.Journal{PageSize: 10, DefaultBalance: 1000, RiskPercent: 1}
	}
	svc := newTestService(t, cfg)
	svc.Start(testUID, func(err error) { t.Errorf("subscription error: %v", err) })
	t.Cleanup(svc.Stop)
	return svc
}

// waitEntries polls until the live snapshot reaches the wanted size.
func waitEntries(t *testing.T, svc *Service, want int) []models.LedgerEntry {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(svc.Entries()) == want
	}, 5*time.Second, 10*time.Millisecond)
	return svc.Entries()
}

func TestOperationsRequireActiveUser(t *testing.T) {
	svc := newTestService(t, &config.Journal{PageSize: 10, DefaultBalance: 1000, RiskPercent: 1})
	ctx := context.Background()

	_, err := svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, 100)
	assert.ErrorIs(t, err, ErrNoUser)
	assert.ErrorIs(t, svc.Delete(ctx, "some-id"), ErrNoUser)
	assert.ErrorIs(t, svc.Reset(ctx), ErrNoUser)
	_, err = svc.Import(ctx, "Date,Asset,Type,Amount\n2024-01-02,BTC/USD,WIN,100")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestAddValidatesInput(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", "BTC/USD", models.EntryWin, 100)
	assert.Error(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, math.NaN())
	assert.Error(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, math.Inf(1))
	assert.Error(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", "BONUS", 100)
	assert.Error(t, err)
}

func TestAddNormalizesSignAndAsset(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	// The user enters magnitudes; the service applies the sign convention.
	_, err := svc.Add(ctx, "2024-01-01", "ignored", models.EntryDeposit, 1000)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, 100)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-03", "BTC/USD", models.EntryLoss, 40)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-04", "ignored", models.EntryWithdraw, -200)
	require.NoError(t, err)

	entries := waitEntries(t, svc, 4)

	byDate := map[string]models.LedgerEntry{}
	for _, e := range entries {
		byDate[e.Date] = e
	}
	assert.Equal(t, 1000.0, byDate["2024-01-01"].Amount)
	assert.Equal(t, "CASH", byDate["2024-01-01"].Asset)
	assert.Equal(t, 100.0, byDate["2024-01-02"].Amount)
	assert.Equal(t, -40.0, byDate["2024-01-03"].Amount)
	assert.Equal(t, -200.0, byDate["2024-01-04"].Amount)
	assert.Equal(t, "CASH", byDate["2024-01-04"].Asset)
}

func TestEntriesNewestFirst(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	for _, date := range []string{"2024-01-02", "2024-01-01", "2024-01-03"} {
		_, err := svc.Add(ctx, date, "BTC/USD", models.EntryWin, 10)
		require.NoError(t, err)
	}

	entries := waitEntries(t, svc, 3)
	assert.Equal(t, "2024-01-03", entries[0].Date)
	assert.Equal(t, "2024-01-02", entries[1].Date)
	assert.Equal(t, "2024-01-01", entries[2].Date)
}

func TestSummaryAndCounterTrackSnapshot(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "2024-01-01", "", models.EntryDeposit, 1000)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, 100)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryLoss, 40)
	require.NoError(t, err)

	waitEntries(t, svc, 3)
	require.Eventually(t, func() bool {
		return svc.Counter().TotalTrades == 2
	}, 5*time.Second, 10*time.Millisecond)

	sum := svc.Summary()
	assert.InDelta(t, 60.0, sum.Net, 1e-9)
	assert.InDelta(t, 1060.0, sum.Balance, 1e-9)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 1, sum.Losses)

	c := svc.Counter()
	assert.Equal(t, map[string]int{"2024-01-02": 2}, c.Counts)
}

func TestDeleteRemovesEntry(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	id, err := svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, 100)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2024-01-03", "BTC/USD", models.EntryWin, 50)
	require.NoError(t, err)
	waitEntries(t, svc, 2)

	require.NoError(t, svc.Delete(ctx, id))

	entries := waitEntries(t, svc, 1)
	assert.Equal(t, "2024-01-03", entries[0].Date)
}

func TestResetClearsEverything(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	for _, date := range []string{"2024-01-01", "2024-01-02"} {
		_, err := svc.Add(ctx, date, "BTC/USD", models.EntryWin, 10)
		require.NoError(t, err)
	}
	waitEntries(t, svc, 2)

	require.NoError(t, svc.Reset(ctx))

	waitEntries(t, svc, 0)
	require.Eventually(t, func() bool {
		return svc.Counter().TotalTrades == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, svc.Summary().Net)
}

func TestImportPersistsParsedRows(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	text := strings.Join([]string{
		"Date,Asset,Type,Amount",
		"2024-01-01,CASH,DEPOSIT,1000",
		"2024-01-02,BTC/USD,WIN,100",
		"bad,row",
		"2024-01-03,BTC/USD,LOSS,-40",
	}, "\n")

	n, err := svc.Import(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	waitEntries(t, svc, 3)
}

func TestImportRejectsEmptyInput(t *testing.T) {
	svc := startedService(t, nil)
	_, err := svc.Import(context.Background(), "Date,Asset,Type,Amount")
	assert.Error(t, err)
}

func TestExportCSVRendersSnapshot(t *testing.T) {
	svc := startedService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "2024-01-02", "BTC/USD", models.EntryWin, 100)
	require.NoError(t, err)
	waitEntries(t, svc, 1)

	out := svc.ExportCSV()
	assert.True(t, strings.HasPrefix(out, "Date,Asset,Type,Amount\n"))
	assert.Contains(t, out, "2024-01-02,BTC/USD,WIN,100\n")
}

func TestChartPaging(t *testing.T) {
	svc := startedService(t, &config.Journal{PageSize: 2, DefaultBalance: 1000, RiskPercent: 1})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Add(ctx, fmt.Sprintf("2024-01-0%d", i), "BTC/USD", models.EntryWin, float64(i))
		require.NoError(t, err)
	}
	waitEntries(t, svc, 5)
	require.Eventually(t, func() bool {
		return len(svc.Summary().Series) == 5
	}, 5*time.Second, 10*time.Millisecond)

	w := svc.Window()
	assert.Equal(t, 0, w.PageIndex)
	assert.Equal(t, 3, w.TotalPages)
	require.Len(t, w.Days, 1) // 5 days chunk into 2+2+1
	assert.Equal(t, "2024-01-05", w.Days[0].Date)

	w = svc.PageOlder()
	assert.Equal(t, 1, w.PageIndex)
	assert.Equal(t, "2024-01-03", w.Days[0].Date)

	w = svc.PageOlder()
	assert.Equal(t, 2, w.PageIndex)
	w = svc.PageOlder() // no-op at the oldest page
	assert.Equal(t, 2, w.PageIndex)

	w = svc.PageNewer()
	assert.Equal(t, 1, w.PageIndex)
}

func TestSuggestedRisk(t *testing.T) {
	svc := startedService(t, &config.Journal{PageSize: 10, DefaultBalance: 1000, RiskPercent: 1})
	ctx := context.Background()

	// No ledger data yet: the configured default balance stands in.
	assert.InDelta(t, 10.0, svc.SuggestedRisk(), 1e-9)

	_, err := svc.Add(ctx, "2024-01-01", "", models.EntryDeposit, 2000)
	require.NoError(t, err)
	waitEntries(t, svc, 1)

	assert.InDelta(t, 20.0, svc.SuggestedRisk(), 1e-9)
}
