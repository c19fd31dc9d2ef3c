package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist. Callers on the
// best-effort counter path use it to decide between increment and create.
var ErrNotFound = errors.New("docstore: document not found")

// Document is a single stored document within a collection.
type Document struct {
	ID   string
	Data map[string]any
}

// Store is the persistence boundary. The core depends on exactly these six
// primitives; collection paths are opaque strings resolved by the caller.
type Store interface {
	// Create writes a new document. The id must be unique within the
	// collection.
	Create(ctx context.Context, col, id string, data map[string]any) error

	// Delete removes a document. Deleting a missing document is not an
	// error.
	Delete(ctx context.Context, col, id string) error

	// Get reads a document once. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, col, id string) (map[string]any, error)

	// Merge writes fields into a document, creating it if missing. Fields
	// named in the write replace their stored values; unnamed fields are
	// preserved.
	Merge(ctx context.Context, col, id string, data map[string]any) error

	// Increment atomically adds the given deltas to numeric fields
	// addressed by dot paths (e.g. "counts.2024-01-02"). Returns
	// ErrNotFound if the document does not exist.
	Increment(ctx context.Context, col, id string, fields map[string]float64) error

	// Watch subscribes to a collection. The data callback receives the
	// full current snapshot on attach and after every mutation of the
	// collection; the error callback receives stream failures. The
	// returned func cancels the subscription.
	Watch(col string, onData func([]Document), onErr func(error)) (cancel func())
}
