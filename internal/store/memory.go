package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ufindi/findocflow/internal/models"
)

// MemoryDocumentStore is an in-process DocumentStore used by tests and
// local runs. All reads return deep copies so callers never observe a
// record mid-update.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*models.Document
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]*models.Document)}
}

func (s *MemoryDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("document %q already exists", doc.ID)
	}
	s.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (s *MemoryDocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "document", ID: id}
	}
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) Put(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (s *MemoryDocumentStore) ListByCase(ctx context.Context, caseID string) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.CaseID == caseID {
			out = append(out, copyDocument(doc))
		}
	}
	return out, nil
}

func copyDocument(doc *models.Document) *models.Document {
	cp := *doc
	cp.Fields = make([]models.Field, len(doc.Fields))
	for i, f := range doc.Fields {
		cp.Fields[i] = f
		if f.CorrectedValue != nil {
			v := *f.CorrectedValue
			cp.Fields[i].CorrectedValue = &v
		}
	}
	cp.ValidationResult = append([]models.ValidationCheck(nil), doc.ValidationResult...)
	return &cp
}

// MemoryCorrectionLog is an in-process append-only CorrectionLog.
type MemoryCorrectionLog struct {
	mu     sync.RWMutex
	events []models.CorrectionEvent
}

func NewMemoryCorrectionLog() *MemoryCorrectionLog {
	return &MemoryCorrectionLog{}
}

func (l *MemoryCorrectionLog) Append(ctx context.Context, ev models.CorrectionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *MemoryCorrectionLog) Events(ctx context.Context, w Window) ([]models.CorrectionEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.CorrectionEvent, 0, len(l.events))
	for _, ev := range l.events {
		if !w.Since.IsZero() && ev.Timestamp.Before(w.Since) {
			continue
		}
		out = append(out, ev)
		if w.Limit > 0 && len(out) == w.Limit {
			break
		}
	}
	return out, nil
}
