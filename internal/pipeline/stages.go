package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ufindi/findocflow/internal/models"
)

// classifyStage resolves the document's type. Low classifier confidence
// routes straight to review with a failed classification_confidence check;
// extraction is skipped entirely for documents we cannot trust the type of.
func (o *Orchestrator) classifyStage(ctx context.Context, doc *models.Document) error {
	data, err := o.source.FetchBytes(ctx, doc.SourceRef)
	if err != nil {
		return &models.StageExecutionError{Stage: "classify", Err: fmt.Errorf("fetch source bytes: %w", err)}
	}

	docType, confidence, err := o.classifier.Classify(ctx, data)
	if err != nil {
		return &models.StageExecutionError{Stage: "classify", Err: err}
	}

	logCtx := slog.With("documentId", doc.ID, "docType", docType, "confidence", confidence)
	if confidence < o.cfg.ClassifyReviewThreshold {
		logCtx.Warn("Classification confidence below review threshold.")
		doc.DocType = docType
		return o.routeToReview(ctx, doc, models.ValidationCheck{
			Name:   models.CheckClassificationConfidence,
			Passed: false,
			Detail: fmt.Sprintf("classified as %q with confidence %.0f, below threshold %.0f", docType, confidence, o.cfg.ClassifyReviewThreshold),
		})
	}

	logCtx.Info("Document classified.")
	doc.DocType = docType
	return o.transition(ctx, doc, models.StatusExtracting)
}

// extractStage populates the document's fields using the resolved docType's
// schema. A document that yields zero fields cannot be validated and is
// routed to review.
func (o *Orchestrator) extractStage(ctx context.Context, doc *models.Document) error {
	data, err := o.source.FetchBytes(ctx, doc.SourceRef)
	if err != nil {
		return &models.StageExecutionError{Stage: "extract", Err: fmt.Errorf("fetch source bytes: %w", err)}
	}

	fields, err := o.extractor.Extract(ctx, data, doc.DocType)
	if err != nil {
		return &models.StageExecutionError{Stage: "extract", Err: err}
	}

	if len(fields) == 0 {
		slog.Warn("Extraction produced no fields; routing to review.", "documentId", doc.ID)
		return o.routeToReview(ctx, doc, models.ValidationCheck{
			Name:   models.CheckFieldExtraction,
			Passed: false,
			Detail: "extraction produced no fields",
		})
	}

	slog.Info("Document fields extracted.", "documentId", doc.ID, "fieldCount", len(fields))
	doc.Fields = fields
	return o.transition(ctx, doc, models.StatusValidating)
}

// validateStage runs the validation engine over the document and its case
// siblings. The check sequence replaces any prior one; nothing stale from
// an earlier run survives.
func (o *Orchestrator) validateStage(ctx context.Context, doc *models.Document) error {
	var siblings []*models.Document
	if doc.CaseID != "" {
		var err error
		siblings, err = o.docs.ListByCase(ctx, doc.CaseID)
		if err != nil {
			return &models.StageExecutionError{Stage: "validate", Err: fmt.Errorf("list case documents: %w", err)}
		}
	}

	outcome := o.engine.Evaluate(doc, siblings)
	doc.ValidationResult = outcome.Checks

	logCtx := slog.With("documentId", doc.ID, "outcome", outcome.Summary())
	if outcome.Passed {
		logCtx.Info("Validation passed.")
		return o.transition(ctx, doc, models.StatusDone)
	}
	logCtx.Info("Validation requires review.")
	return o.transition(ctx, doc, models.StatusReview)
}
