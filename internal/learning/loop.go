// Package learning captures human field corrections, maintains the
// append-only audit trail, and surfaces systemic extraction weaknesses as
// error clusters and retraining signals.
package learning

import (
	"context"
	"log/slog"
	"time"

	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/store"
)

// Loop is the correction and learning component. It shares the per-document
// KeyedMutex with the orchestrator so correction writes never interleave
// with stage transitions on the same document.
type Loop struct {
	docs  store.DocumentStore
	log   store.CorrectionLog
	locks *store.KeyedMutex
	now   func() time.Time
}

func NewLoop(docs store.DocumentStore, log store.CorrectionLog, locks *store.KeyedMutex) *Loop {
	return &Loop{docs: docs, log: log, locks: locks, now: time.Now}
}

// CorrectField records a human override for one field. Corrections are only
// meaningful once extraction has finished, so the document must be in review
// or done; the status itself never changes here. The returned bool reports
// whether the new value differs from the prior effective value.
//
// No-op corrections (identical value resubmitted) are still appended to the
// log for audit completeness, but clustering gives them zero weight.
func (l *Loop) CorrectField(ctx context.Context, documentID, fieldKey, newValue string) (bool, error) {
	unlock := l.locks.Lock(documentID)
	defer unlock()

	doc, err := l.docs.Get(ctx, documentID)
	if err != nil {
		return false, err
	}
	if doc.Status != models.StatusReview && doc.Status != models.StatusDone {
		return false, &models.InvalidStateError{Op: "correctField", Status: doc.Status}
	}

	field := doc.FieldByKey(fieldKey)
	if field == nil {
		return false, &models.NotFoundError{Kind: "field", ID: fieldKey}
	}

	previous := field.EffectiveValue()
	changed := previous != newValue
	field.CorrectedValue = &newValue

	if err := l.docs.Put(ctx, doc); err != nil {
		return false, err
	}

	ev := models.CorrectionEvent{
		DocumentID:    documentID,
		FieldKey:      fieldKey,
		DocType:       doc.DocType,
		PreviousValue: previous,
		NewValue:      newValue,
		Timestamp:     l.now(),
	}
	if err := l.log.Append(ctx, ev); err != nil {
		return false, err
	}

	slog.Info("Field corrected.", "documentId", documentID, "fieldKey", fieldKey, "changed", changed)
	return changed, nil
}

// ClusterErrors groups the correction log over the given window into error
// clusters, ordered by member count descending (signature ascending on
// ties). It reads a snapshot of the log and is safe to call concurrently
// with correction writes.
func (l *Loop) ClusterErrors(ctx context.Context, w store.Window) ([]models.ErrorCluster, error) {
	events, err := l.log.Events(ctx, w)
	if err != nil {
		return nil, err
	}
	return clusterEvents(events), nil
}

// RetrainTrigger returns the clusters whose member count exceeds threshold.
// This is a decision signal only; launching retraining belongs to an
// external collaborator.
func RetrainTrigger(clusters []models.ErrorCluster, threshold int) []models.ErrorCluster {
	var out []models.ErrorCluster
	for _, c := range clusters {
		if c.MemberCount > threshold {
			out = append(out, c)
		}
	}
	return out
}
