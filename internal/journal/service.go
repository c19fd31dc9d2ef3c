package journal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"trade-journal-go/internal/aggregate"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/importer"
	"trade-journal-go/internal/ledger"
	"trade-journal-go/internal/models"
)

// ErrNoUser is returned for operations attempted before Start.
var ErrNoUser = errors.New("journal: no active user")

// Service is the application controller. It owns the live snapshot and
// counter delivered by the ledger store, the derived summary, and the chart
// cursor, and it translates user intent into store mutations.
type Service struct {
	log         *zap.Logger
	store       *ledger.Store
	importer    *importer.Importer
	riskPercent float64
	defBalance  float64

	mu      sync.RWMutex
	uid     string
	entries []models.LedgerEntry
	counter *models.SummaryCounter
	summary aggregate.Summary
	pager   *aggregate.Pager
}

// NewService creates the journal service.
func NewService(log *zap.Logger, store *ledger.Store, cfg *config.Journal) *Service {
	return &Service{
		log:         log,
		store:       store,
		importer:    importer.New(log),
		riskPercent: cfg.RiskPercent,
		defBalance:  cfg.DefaultBalance,
		pager:       aggregate.NewPager(cfg.PageSize),
	}
}

// Start subscribes to the user's ledger. Every snapshot delivery replaces
// the cached entries and counter and recomputes the summary. Subscription
// stream errors go to onErr; the service does not reconnect on its own.
func (s *Service) Start(uid string, onErr func(error)) {
	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()

	s.store.Subscribe(uid, func(entries []models.LedgerEntry, counter *models.SummaryCounter) {
		summary := aggregate.Compute(entries)
		s.mu.Lock()
		s.entries = entries
		s.counter = counter
		s.summary = summary
		s.mu.Unlock()
		s.log.Debug("Snapshot applied",
			zap.Int("entries", len(entries)),
			zap.Int("total_trades", counter.TotalTrades))
	}, onErr)
}

// Stop tears down the live subscription.
func (s *Service) Stop() {
	s.store.Unsubscribe()
}

func (s *Service) userID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.uid == "" {
		return "", ErrNoUser
	}
	return s.uid, nil
}

// Add records a new entry. Amounts are normalized to the sign convention:
// the user enters a magnitude, LOSS and WITHDRAW are stored negative, and
// transfers always carry the CASH asset.
func (s *Service) Add(ctx context.Context, date, asset string, typ models.EntryType, amount float64) (string, error) {
	uid, err := s.userID()
	if err != nil {
		return "", err
	}
	if date == "" {
		return "", errors.New("journal: date is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", errors.New("journal: amount is not a number")
	}

	switch typ {
	case models.EntryWin, models.EntryLoss, models.EntryDeposit, models.EntryWithdraw:
	default:
		return "", fmt.Errorf("journal: unknown entry type %q", typ)
	}

	amount = math.Abs(amount)
	if typ == models.EntryLoss || typ == models.EntryWithdraw {
		amount = -amount
	}
	if typ == models.EntryDeposit || typ == models.EntryWithdraw {
		asset = "CASH"
	}

	return s.store.AddEntry(ctx, uid, models.LedgerEntry{
		Date:   date,
		Asset:  asset,
		Type:   typ,
		Amount: amount,
	})
}

// Delete removes an entry by id, handing the store the known entry from the
// snapshot when available so it can skip the read-back.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	var known *models.LedgerEntry
	s.mu.RLock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			e := s.entries[i]
			known = &e
			break
		}
	}
	s.mu.RUnlock()
	return s.store.DeleteEntry(ctx, uid, id, known)
}

// Reset wipes the user's ledger and zeroes the counter.
func (s *Service) Reset(ctx context.Context) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	s.mu.RLock()
	known := make([]models.LedgerEntry, len(s.entries))
	copy(known, s.entries)
	s.mu.RUnlock()
	return s.store.ResetAll(ctx, uid, known)
}

// Import parses a delimited export and persists its rows one by one. A
// persistence failure aborts the remainder but keeps what was already
// written; the returned count is the number of entries persisted.
func (s *Service) Import(ctx context.Context, text string) (int, error) {
	uid, err := s.userID()
	if err != nil {
		return 0, err
	}
	parsed, err := s.importer.Parse(text)
	if err != nil {
		return 0, err
	}
	for i, e := range parsed {
		if _, err := s.store.AddEntry(ctx, uid, e); err != nil {
			return i, fmt.Errorf("import aborted after %d of %d entries: %w", i, len(parsed), err)
		}
	}
	return len(parsed), nil
}

// ExportCSV renders the current snapshot as CSV, oldest first.
func (s *Service) ExportCSV() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return importer.Export(s.entries)
}

// Entries returns the snapshot for list views: newest date first, id as the
// same-day tie-break.
func (s *Service) Entries() []models.LedgerEntry {
	s.mu.RLock()
	out := make([]models.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Summary returns the current derived statistics.
func (s *Service) Summary() aggregate.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Counter returns the stored summary counter, which answers total-count
// queries without scanning the ledger. May be transiently stale.
func (s *Service) Counter() models.SummaryCounter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.counter == nil {
		return models.SummaryCounter{Counts: map[string]int{}}
	}
	return *s.counter
}

// Window returns the currently selected chart page.
func (s *Service) Window() aggregate.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager.Window(s.summary.Series)
}

// PageOlder moves the chart cursor one page toward older data and returns
// the new window. A step past the oldest page is a no-op.
func (s *Service) PageOlder() aggregate.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Older(len(s.summary.Series))
	return s.pager.Window(s.summary.Series)
}

// PageNewer moves the chart cursor one page toward recent data and returns
// the new window. A step past the newest page is a no-op.
func (s *Service) PageNewer() aggregate.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Newer()
	return s.pager.Window(s.summary.Series)
}

// SuggestedRisk sizes a position at the configured percentage of the
// current balance. With no ledger data the configured default balance
// stands in.
func (s *Service) SuggestedRisk() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance := s.defBalance
	if len(s.entries) > 0 {
		balance = s.summary.Balance
	}
	return balance * s.riskPercent / 100
}
