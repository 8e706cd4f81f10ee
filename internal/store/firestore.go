package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/ufindi/findocflow/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDocumentStore persists documents in a Firestore collection,
// one Firestore document per record, keyed by the record id.
type FirestoreDocumentStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreDocumentStore(client *firestore.Client, collection string) *FirestoreDocumentStore {
	return &FirestoreDocumentStore{client: client, collection: collection}
}

func (s *FirestoreDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	if _, err := s.client.Collection(s.collection).Doc(doc.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to create document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *FirestoreDocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, &models.NotFoundError{Kind: "document", ID: id}
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *FirestoreDocumentStore) Put(ctx context.Context, doc *models.Document) error {
	if _, err := s.client.Collection(s.collection).Doc(doc.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to put document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *FirestoreDocumentStore) ListByCase(ctx context.Context, caseID string) ([]*models.Document, error) {
	it := s.client.Collection(s.collection).Where("caseId", "==", caseID).Documents(ctx)
	defer it.Stop()

	var out []*models.Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents for case %s: %w", caseID, err)
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
		}
		out = append(out, &doc)
	}
	return out, nil
}

// FirestoreCorrectionLog stores correction events in their own collection.
// Firestore auto-ids give uniqueness; insertion order is recovered by
// ordering on the event timestamp.
type FirestoreCorrectionLog struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreCorrectionLog(client *firestore.Client, collection string) *FirestoreCorrectionLog {
	return &FirestoreCorrectionLog{client: client, collection: collection}
}

func (l *FirestoreCorrectionLog) Append(ctx context.Context, ev models.CorrectionEvent) error {
	if _, _, err := l.client.Collection(l.collection).Add(ctx, ev); err != nil {
		return fmt.Errorf("failed to append correction event: %w", err)
	}
	return nil
}

func (l *FirestoreCorrectionLog) Events(ctx context.Context, w Window) ([]models.CorrectionEvent, error) {
	q := l.client.Collection(l.collection).OrderBy("timestamp", firestore.Asc)
	if !w.Since.IsZero() {
		q = q.Where("timestamp", ">=", w.Since)
	}
	if w.Limit > 0 {
		q = q.Limit(w.Limit)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	var out []models.CorrectionEvent
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read correction log: %w", err)
		}
		var ev models.CorrectionEvent
		if err := snap.DataTo(&ev); err != nil {
			return nil, fmt.Errorf("failed to decode correction event %s: %w", snap.Ref.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
