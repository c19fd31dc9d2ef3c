package ledger

import (
	"context"
	"errors"
	"maps"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/docstore"
	"trade-journal-go/internal/models"
)

const summaryDocID = "summary"

// Store is the ledger store adapter. It owns the authoritative entry log
// for a user plus the derived summary counter, keeps the counter consistent
// with the log on a best-effort basis, and presents a live, date-sorted
// snapshot to at most one subscriber at a time.
type Store struct {
	log  *zap.Logger
	docs docstore.Store
	cfg  *config.Store

	mu          sync.Mutex
	unsubscribe func()
}

// NewStore creates a new ledger store adapter.
func NewStore(log *zap.Logger, docs docstore.Store, cfg *config.Store) *Store {
	return &Store{log: log, docs: docs, cfg: cfg}
}

// Two collection layouts exist depending on the deployment: dedicated
// stores address users directly, shared stores namespace by application id.
func (s *Store) entriesCol(uid string) string {
	if s.cfg.UseCustomPaths {
		return path.Join("users", uid, "entries")
	}
	return path.Join("artifacts", s.cfg.AppID, "users", uid, "entries")
}

func (s *Store) metaCol(uid string) string {
	if s.cfg.UseCustomPaths {
		return path.Join("users", uid, "meta")
	}
	return path.Join("artifacts", s.cfg.AppID, "users", uid, "meta")
}

// NewEntryID returns a fresh entry id. V7 ids are time-ordered, which keeps
// same-day list views stable when sorted by id.
func NewEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AddEntry normalizes the entry date, persists the entry, then best-effort
// increments the summary counter. The entry write is authoritative: a
// failed counter update is logged and swallowed, never rolled back, and
// self-heals at the next snapshot reconciliation.
func (s *Store) AddEntry(ctx context.Context, uid string, entry models.LedgerEntry) (string, error) {
	entry.Date = NormalizeDate(entry.Date)
	if entry.ID == "" {
		entry.ID = NewEntryID()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.docs.Create(ctx, s.entriesCol(uid), entry.ID, entryToDoc(entry)); err != nil {
		return "", err
	}

	err := s.docs.Increment(ctx, s.metaCol(uid), summaryDocID, map[string]float64{
		"totalTrades":          1,
		"counts." + entry.Date: 1,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		// First write for this user: create the counter lazily.
		err = s.docs.Merge(ctx, s.metaCol(uid), summaryDocID, map[string]any{
			"totalTrades": 1,
			"counts":      map[string]any{entry.Date: 1},
			"lastUpdated": time.Now().UTC().Format(time.RFC3339),
		})
	}
	if err != nil {
		s.log.Warn("Failed to update summary counter after add",
			zap.String("uid", uid), zap.String("date", entry.Date), zap.Error(err))
	}
	return entry.ID, nil
}

// DeleteEntry removes an entry and best-effort decrements the counter. When
// the caller does not know the entry, it is read back first to learn which
// date bucket to decrement. Counter and read-back failures never fail the
// delete itself.
func (s *Store) DeleteEntry(ctx context.Context, uid, id string, known *models.LedgerEntry) error {
	var date string
	if known != nil {
		date = NormalizeDate(known.Date)
	} else {
		data, err := s.docs.Get(ctx, s.entriesCol(uid), id)
		if err != nil {
			s.log.Warn("Failed to read entry before delete, skipping counter update",
				zap.String("uid", uid), zap.String("id", id), zap.Error(err))
		} else {
			date = NormalizeDate(data["date"])
		}
	}

	if err := s.docs.Delete(ctx, s.entriesCol(uid), id); err != nil {
		return err
	}

	if date == "" {
		return nil
	}
	err := s.docs.Increment(ctx, s.metaCol(uid), summaryDocID, map[string]float64{
		"totalTrades":    -1,
		"counts." + date: -1,
	})
	if err != nil {
		// The entry is already gone; drift heals at the next snapshot.
		s.log.Warn("Failed to update summary counter after delete",
			zap.String("uid", uid), zap.String("date", date), zap.Error(err))
	}
	return nil
}

// ResetAll deletes every supplied entry concurrently and then overwrites
// the counter to zero. Individual delete failures do not stop the batch or
// prevent the counter reset; the first one is returned to the caller.
func (s *Store) ResetAll(ctx context.Context, uid string, known []models.LedgerEntry) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, e := range known {
		wg.Add(1)
		go func(e models.LedgerEntry) {
			defer wg.Done()
			if err := s.DeleteEntry(ctx, uid, e.ID, &e); err != nil {
				s.log.Warn("Failed to delete entry during reset",
					zap.String("uid", uid), zap.String("id", e.ID), zap.Error(err))
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	err := s.docs.Merge(ctx, s.metaCol(uid), summaryDocID, map[string]any{
		"totalTrades": 0,
		"counts":      map[string]any{},
		"lastUpdated": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Warn("Failed to reset summary counter", zap.String("uid", uid), zap.Error(err))
	}
	return firstErr
}

// Subscribe establishes the live subscription for a user. Each delivery is
// the full current snapshot, date-sorted, together with the reconciled
// counter. Exactly one subscription is active per adapter instance;
// subscribing again tears down the previous one first.
func (s *Store) Subscribe(uid string, onData func([]models.LedgerEntry, *models.SummaryCounter), onErr func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = s.docs.Watch(s.entriesCol(uid), func(docs []docstore.Document) {
		entries := make([]models.LedgerEntry, 0, len(docs))
		for _, doc := range docs {
			entries = append(entries, entryFromDoc(doc))
		}
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Date != entries[j].Date {
				return entries[i].Date < entries[j].Date
			}
			return entries[i].ID < entries[j].ID
		})
		counter := s.reconcile(uid, entries)
		onData(entries, counter)
	}, onErr)
}

// Unsubscribe tears down the live subscription, if any.
func (s *Store) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// reconcile recomputes the counter from the snapshot and overwrites the
// stored one whenever they disagree, including when it is missing. This is
// the real consistency mechanism: however many best-effort increments were
// lost or interleaved, the counter is exact again after this pass.
func (s *Store) reconcile(uid string, entries []models.LedgerEntry) *models.SummaryCounter {
	total, counts := models.CountersFor(entries)

	ctx := context.Background()
	var stored *models.SummaryCounter
	data, err := s.docs.Get(ctx, s.metaCol(uid), summaryDocID)
	switch {
	case err == nil:
		stored = counterFromDoc(data)
	case !errors.Is(err, docstore.ErrNotFound):
		s.log.Warn("Failed to read summary counter", zap.String("uid", uid), zap.Error(err))
	}

	if stored != nil && stored.TotalTrades == total && maps.Equal(stored.Counts, counts) {
		return stored
	}

	fresh := &models.SummaryCounter{
		TotalTrades: total,
		Counts:      counts,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	err = s.docs.Merge(ctx, s.metaCol(uid), summaryDocID, map[string]any{
		"totalTrades": fresh.TotalTrades,
		"counts":      countsToDoc(fresh.Counts),
		"lastUpdated": fresh.LastUpdated,
	})
	if err != nil {
		s.log.Warn("Failed to write reconciled summary counter",
			zap.String("uid", uid), zap.Error(err))
	}
	return fresh
}
