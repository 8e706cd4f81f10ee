// Package store defines persistence for document records and the
// correction event log, with Firestore-backed and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/ufindi/findocflow/internal/models"
)

// DocumentStore persists Document records keyed by id. Implementations must
// not assume a single process owns the data, but callers serialize access
// per document id (see KeyedMutex), so no compare-and-swap is required.
type DocumentStore interface {
	// Create stores a new document. The id must not already exist.
	Create(ctx context.Context, doc *models.Document) error
	// Get returns a copy of the document, or *models.NotFoundError.
	Get(ctx context.Context, id string) (*models.Document, error)
	// Put replaces the stored document wholesale.
	Put(ctx context.Context, doc *models.Document) error
	// ListByCase returns all documents sharing a case id, any status.
	ListByCase(ctx context.Context, caseID string) ([]*models.Document, error)
}

// Window bounds a snapshot read of the correction log. A zero Since means
// no time cutoff; a zero Limit means no count cutoff.
type Window struct {
	Since time.Time
	Limit int
}

// CorrectionLog is the append-only record of human corrections. Appends
// from concurrent documents are safe; Events reads a consistent snapshot
// rather than racing the live log.
type CorrectionLog interface {
	Append(ctx context.Context, ev models.CorrectionEvent) error
	// Events returns events in insertion order, bounded by w.
	Events(ctx context.Context, w Window) ([]models.CorrectionEvent, error)
}
