// Package pipeline owns the document lifecycle: it sequences the classify,
// extract, and validate stages, drives every status transition, and retries
// transient collaborator failures before routing a document to review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/store"
	"github.com/ufindi/findocflow/internal/validation"
	"golang.org/x/sync/errgroup"
)

// SourceStore fetches original document bytes from the external store.
type SourceStore interface {
	// Stat verifies the reference is retrievable without reading the bytes.
	Stat(ctx context.Context, ref string) error
	FetchBytes(ctx context.Context, ref string) ([]byte, error)
}

// Classifier resolves a document's type with a confidence score in [0,100].
type Classifier interface {
	Classify(ctx context.Context, data []byte) (models.DocType, float64, error)
}

// Extractor produces the ordered field set for a document of a known type.
type Extractor interface {
	Extract(ctx context.Context, data []byte, docType models.DocType) ([]models.Field, error)
}

// Config tunes retry, timeout, and routing behavior. Zero values fall back
// to the defaults below.
type Config struct {
	// ClassifyReviewThreshold routes a document straight to review when the
	// classifier's confidence falls below it.
	ClassifyReviewThreshold float64
	// MaxStageRetries bounds attempts per stage before the document is
	// routed to review with a processing_failed check.
	MaxStageRetries int
	// RetryBackoff is the base delay between attempts; it doubles each retry.
	RetryBackoff time.Duration
	// StageTimeout caps each external collaborator call.
	StageTimeout time.Duration
	// MaxConcurrentDocuments bounds ProcessAll's fan-out.
	MaxConcurrentDocuments int
}

func (c Config) withDefaults() Config {
	if c.ClassifyReviewThreshold == 0 {
		c.ClassifyReviewThreshold = 70
	}
	if c.MaxStageRetries == 0 {
		c.MaxStageRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.StageTimeout == 0 {
		c.StageTimeout = 60 * time.Second
	}
	if c.MaxConcurrentDocuments == 0 {
		c.MaxConcurrentDocuments = 4
	}
	return c
}

// Orchestrator is the authoritative owner of every document's status field.
type Orchestrator struct {
	docs       store.DocumentStore
	locks      *store.KeyedMutex
	source     SourceStore
	classifier Classifier
	extractor  Extractor
	engine     *validation.Engine
	cfg        Config
	now        func() time.Time
}

// NewOrchestrator wires the pipeline. The KeyedMutex must be the same
// instance the correction loop uses, so corrections and stage transitions
// for one document never interleave.
func NewOrchestrator(
	docs store.DocumentStore,
	locks *store.KeyedMutex,
	source SourceStore,
	classifier Classifier,
	extractor Extractor,
	engine *validation.Engine,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		docs:       docs,
		locks:      locks,
		source:     source,
		classifier: classifier,
		extractor:  extractor,
		engine:     engine,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

// Submission is the caller-supplied part of a new document record.
type Submission struct {
	Name      string
	SourceRef string
	CaseID    string
}

// Submit accepts a new record in state intake and returns its assigned id.
// A submission whose source bytes cannot be located is rejected with
// *models.InvalidInputError.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (string, error) {
	if sub.SourceRef == "" {
		return "", &models.InvalidInputError{Reason: "submission has no source bytes reference"}
	}
	if err := o.source.Stat(ctx, sub.SourceRef); err != nil {
		return "", &models.InvalidInputError{Reason: fmt.Sprintf("source reference %q is not retrievable: %v", sub.SourceRef, err)}
	}

	now := o.now()
	doc := &models.Document{
		ID:               uuid.NewString(),
		Name:             sub.Name,
		SourceRef:        sub.SourceRef,
		CaseID:           sub.CaseID,
		Status:           models.StatusIntake,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
	if err := o.docs.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store submission: %w", err)
	}
	slog.Info("Document submitted.", "documentId", doc.ID, "name", doc.Name, "caseId", doc.CaseID)
	return doc.ID, nil
}

// Status returns a read-only snapshot of the document record.
func (o *Orchestrator) Status(ctx context.Context, id string) (*models.Document, error) {
	return o.docs.Get(ctx, id)
}

// Advance runs the next applicable stage for the document. It is an
// idempotent no-op for documents already in done or review. Transient stage
// failures are retried with backoff; once retries are exhausted the document
// is routed to review with a failed processing_failed check and Advance
// returns nil — the record is never lost to the caller.
func (o *Orchestrator) Advance(ctx context.Context, id string) error {
	unlock := o.locks.Lock(id)
	defer unlock()

	doc, err := o.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status.Terminal() {
		return nil
	}

	switch doc.Status {
	case models.StatusIntake:
		if err := o.transition(ctx, doc, models.StatusClassifying); err != nil {
			return err
		}
		return o.runStage(ctx, doc, "classify", o.classifyStage)
	case models.StatusClassifying:
		return o.runStage(ctx, doc, "classify", o.classifyStage)
	case models.StatusExtracting:
		return o.runStage(ctx, doc, "extract", o.extractStage)
	case models.StatusValidating:
		return o.runStage(ctx, doc, "validate", o.validateStage)
	default:
		return &models.InvalidStateError{Op: "advance", Status: doc.Status}
	}
}

// Process drives one document from its current state to a terminal one.
func (o *Orchestrator) Process(ctx context.Context, id string) error {
	for {
		doc, err := o.docs.Get(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status.Terminal() {
			return nil
		}
		if err := o.Advance(ctx, id); err != nil {
			return err
		}
	}
}

// ProcessAll drives many documents concurrently. Documents are independent;
// failure of one does not stop the others, but the first error is returned.
func (o *Orchestrator) ProcessAll(ctx context.Context, ids []string) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.MaxConcurrentDocuments)
	for _, id := range ids {
		id := id
		eg.Go(func() error {
			if err := o.Process(gctx, id); err != nil {
				return fmt.Errorf("document %s: %w", id, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Revalidate re-runs the validate stage for a reviewed document, typically
// after corrections. This is the only legal status regression.
func (o *Orchestrator) Revalidate(ctx context.Context, id string) error {
	unlock := o.locks.Lock(id)
	defer unlock()

	doc, err := o.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != models.StatusReview {
		return &models.InvalidStateError{Op: "revalidate", Status: doc.Status}
	}
	if len(doc.Fields) == 0 {
		// A document with no fields never reaches validating; it went to
		// review before extraction completed and must be resubmitted.
		return &models.InvalidStateError{Op: "revalidate", Status: doc.Status}
	}
	if err := o.transition(ctx, doc, models.StatusValidating); err != nil {
		return err
	}
	return o.runStage(ctx, doc, "validate", o.validateStage)
}

// transition moves the document to the next status and persists it. The
// transition table in the package doc is enforced here: callers only ever
// request the single next state for the stage they run.
func (o *Orchestrator) transition(ctx context.Context, doc *models.Document, next models.Status) error {
	doc.Status = next
	doc.LastTransitionAt = o.now()
	if err := o.docs.Put(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist transition to %s: %w", next, err)
	}
	slog.Info("Document transitioned.", "documentId", doc.ID, "status", next)
	return nil
}

// routeToReview parks the document in review with a replacement check
// sequence. Used for low-confidence classification, empty extraction, and
// exhausted retries.
func (o *Orchestrator) routeToReview(ctx context.Context, doc *models.Document, checks ...models.ValidationCheck) error {
	doc.ValidationResult = checks
	return o.transition(ctx, doc, models.StatusReview)
}

// runStage executes one stage with the retry policy. A stage returns either
// nil (it transitioned the document itself) or an error; transient errors
// are retried, and exhaustion routes to review instead of surfacing.
func (o *Orchestrator) runStage(ctx context.Context, doc *models.Document, name string, stage func(ctx context.Context, doc *models.Document) error) error {
	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxStageRetries; attempt++ {
		if attempt > 0 {
			backoff := o.cfg.RetryBackoff << (attempt - 1)
			slog.Warn("Retrying stage.", "documentId", doc.ID, "stage", name, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
		err := stage(stageCtx, doc)
		cancel()
		if err == nil {
			return nil
		}

		var stageErr *models.StageExecutionError
		if !errors.As(err, &stageErr) {
			return err
		}
		lastErr = err
		slog.Warn("Stage execution failed.", "documentId", doc.ID, "stage", name, "error", err)
	}

	slog.Error("Stage retries exhausted; routing document to review.", "documentId", doc.ID, "stage", name, "error", lastErr)
	return o.routeToReview(ctx, doc, models.ValidationCheck{
		Name:   models.CheckProcessingFailed,
		Passed: false,
		Detail: fmt.Sprintf("%s stage failed after %d attempts: %v", name, o.cfg.MaxStageRetries, lastErr),
	})
}
