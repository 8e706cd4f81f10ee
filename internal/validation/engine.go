// Package validation computes deterministic validation outcomes and
// interprets extraction confidence. It never recomputes confidence; scores
// are set once by the extract stage.
package validation

import (
	"fmt"
	"strings"

	"github.com/ufindi/findocflow/internal/models"
)

// Band is the attention level a confidence score maps to.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Config carries the confidence thresholds. Values come from deployment
// configuration, not constants, so review routing can be tuned per tenant.
type Config struct {
	// HighConfidence is the lower bound of the "high" band.
	HighConfidence float64
	// MediumConfidence is the lower bound of the "medium" band.
	MediumConfidence float64
	// MinFieldConfidence is the global minimum every field's effective
	// confidence must meet for a document to finish as done.
	MinFieldConfidence float64
}

// DefaultConfig mirrors the review-routing thresholds the product started
// with: 90/75 banding and a 70 floor.
func DefaultConfig() Config {
	return Config{HighConfidence: 90, MediumConfidence: 75, MinFieldConfidence: 70}
}

// Engine evaluates a document's checks and confidence gate.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.HighConfidence == 0 && cfg.MediumConfidence == 0 && cfg.MinFieldConfidence == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Band maps a confidence score to its attention band.
func (e *Engine) Band(confidence float64) Band {
	switch {
	case confidence >= e.cfg.HighConfidence:
		return BandHigh
	case confidence >= e.cfg.MediumConfidence:
		return BandMedium
	default:
		return BandLow
	}
}

// Outcome is the result of evaluating one document.
type Outcome struct {
	// Checks is the full replacement sequence for the document's
	// validationResults. Never merged with prior runs.
	Checks []models.ValidationCheck
	// LowConfidenceFields lists fields whose effective confidence is below
	// the global minimum. Corrected fields count as fully confident.
	LowConfidenceFields []string
	// Passed is true only when every check passed and no field fell below
	// the confidence floor.
	Passed bool
}

// Evaluate runs the docType's check set over the document and its case
// siblings. Checks read effective values, so corrections take effect on
// re-validation without touching extraction history.
func (e *Engine) Evaluate(doc *models.Document, siblings []*models.Document) Outcome {
	var out Outcome
	allPassed := true
	for _, c := range checksFor(doc.DocType) {
		result := c.run(doc, siblings)
		out.Checks = append(out.Checks, result)
		if !result.Passed {
			allPassed = false
		}
	}

	for i := range doc.Fields {
		if doc.Fields[i].EffectiveConfidence() < e.cfg.MinFieldConfidence {
			out.LowConfidenceFields = append(out.LowConfidenceFields, doc.Fields[i].Key)
		}
	}

	out.Passed = allPassed && len(out.LowConfidenceFields) == 0
	return out
}

// Summary renders a short human-readable account of an outcome for logs
// and review tooling.
func (o Outcome) Summary() string {
	failed := 0
	for _, c := range o.Checks {
		if !c.Passed {
			failed++
		}
	}
	parts := []string{fmt.Sprintf("%d/%d checks passed", len(o.Checks)-failed, len(o.Checks))}
	if len(o.LowConfidenceFields) > 0 {
		parts = append(parts, fmt.Sprintf("low confidence: %s", strings.Join(o.LowConfidenceFields, ", ")))
	}
	return strings.Join(parts, "; ")
}
