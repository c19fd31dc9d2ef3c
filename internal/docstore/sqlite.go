package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// documentRow is the storage schema: one JSON document per row.
type documentRow struct {
	ID         uint   `gorm:"primarykey"`
	Collection string `gorm:"uniqueIndex:idx_collection_doc;not null"`
	DocID      string `gorm:"uniqueIndex:idx_collection_doc;not null"`
	Data       []byte `gorm:"not null"`
}

func (documentRow) TableName() string { return "documents" }

// SQLite is a document store backed by a single sqlite table. It implements
// Store and fans change notifications out to collection watchers in-process.
type SQLite struct {
	db  *gorm.DB
	log *zap.Logger

	mu       sync.Mutex
	watchers map[string][]*watcher
}

var _ Store = (*SQLite)(nil)

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string, log *zap.Logger) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// sqlite allows one writer at a time; a single pooled connection keeps
	// concurrent mutators queueing instead of failing with SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return &SQLite{
		db:       db,
		log:      log,
		watchers: make(map[string][]*watcher),
	}, nil
}

// Create writes a new document and notifies watchers of the collection.
func (s *SQLite) Create(ctx context.Context, col, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", col, id, err)
	}
	row := documentRow{Collection: col, DocID: id, Data: raw}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create document %s/%s: %w", col, id, err)
	}
	s.notify(col)
	return nil
}

// Delete removes a document. Missing documents are a no-op.
func (s *SQLite) Delete(ctx context.Context, col, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", col, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", col, id, err)
	}
	s.notify(col)
	return nil
}

// Get reads a single document.
func (s *SQLite) Get(ctx context.Context, col, id string) (map[string]any, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", col, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", col, id, err)
	}
	return decodeRow(row)
}

// Merge writes fields into a document, creating it when missing. Fields
// named in the write replace their stored values; unnamed fields survive.
// Map fields replace wholesale so a caller can truly overwrite them.
func (s *SQLite) Merge(ctx context.Context, col, id string, data map[string]any) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Where("collection = ? AND doc_id = ?", col, id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			raw, merr := json.Marshal(data)
			if merr != nil {
				return merr
			}
			return tx.Create(&documentRow{Collection: col, DocID: id, Data: raw}).Error
		}
		if err != nil {
			return err
		}
		existing, err := decodeRow(row)
		if err != nil {
			return err
		}
		for k, v := range data {
			existing[k] = v
		}
		raw, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return tx.Model(&documentRow{}).Where("id = ?", row.ID).Update("data", raw).Error
	})
	if err != nil {
		return fmt.Errorf("failed to merge document %s/%s: %w", col, id, err)
	}
	s.notify(col)
	return nil
}

// Increment atomically adds deltas to numeric fields addressed by dot paths.
// The whole read-modify-write runs in one transaction; sqlite serializes
// writers, so concurrent increments cannot lose updates against each other.
func (s *SQLite) Increment(ctx context.Context, col, id string, fields map[string]float64) error {
	notFound := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Where("collection = ? AND doc_id = ?", col, id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound = true
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := decodeRow(row)
		if err != nil {
			return err
		}
		for path, delta := range fields {
			applyIncrement(data, path, delta)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return tx.Model(&documentRow{}).Where("id = ?", row.ID).Update("data", raw).Error
	})
	if notFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to increment document %s/%s: %w", col, id, err)
	}
	s.notify(col)
	return nil
}

func decodeRow(row documentRow) (map[string]any, error) {
	data := make(map[string]any)
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	return data, nil
}

// applyIncrement adds delta at a dot path, creating intermediate maps and
// treating a missing or non-numeric field as zero.
func applyIncrement(data map[string]any, path string, delta float64) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		data[head] = asNumber(data[head]) + delta
		return
	}
	child, ok := data[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		data[head] = child
	}
	applyIncrement(child, rest, delta)
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// list reads the full collection in insertion order.
func (s *SQLite) list(col string) ([]Document, error) {
	var rows []documentRow
	if err := s.db.Where("collection = ?", col).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", col, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		data, err := decodeRow(row)
		if err != nil {
			// One corrupt row must not take down the stream.
			s.log.Warn("Skipping undecodable document", zap.String("collection", col),
				zap.String("doc_id", row.DocID), zap.Error(err))
			continue
		}
		docs = append(docs, Document{ID: row.DocID, Data: data})
	}
	return docs, nil
}
