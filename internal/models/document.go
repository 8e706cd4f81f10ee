package models

import "time"

// Status is the lifecycle state of a Document as it moves through the
// pipeline. Transitions are owned by the pipeline orchestrator.
type Status string

const (
	StatusIntake      Status = "intake"
	StatusClassifying Status = "classifying"
	StatusExtracting  Status = "extracting"
	StatusValidating  Status = "validating"
	StatusDone        Status = "done"
	StatusReview      Status = "review"
)

// Terminal reports whether the pipeline has finished with a document.
// Review documents remain mutable through the correction loop.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusReview
}

// DocType is the classification label assigned by the classify stage.
type DocType string

const (
	DocTypeBankStatement    DocType = "bank_statement"
	DocTypeInvoice          DocType = "invoice"
	DocTypePayslip          DocType = "payslip"
	DocTypeAgreement        DocType = "agreement"
	DocTypeSettlementLetter DocType = "settlement_letter"
	DocTypeTaxForm          DocType = "tax_form"
	DocTypeIDProof          DocType = "id_proof"
	DocTypeUnknown          DocType = "unknown"
)

// Document is the master record for one file moving through the pipeline.
// It is persisted in Firestore keyed by ID.
type Document struct {
	ID               string            `firestore:"id" json:"id"`
	Name             string            `firestore:"name" json:"name"`
	SourceRef        string            `firestore:"sourceRef" json:"sourceRef"`
	CaseID           string            `firestore:"caseId,omitempty" json:"caseId,omitempty"`
	DocType          DocType           `firestore:"docType,omitempty" json:"docType,omitempty"`
	Status           Status            `firestore:"status" json:"status"`
	Fields           []Field           `firestore:"fields,omitempty" json:"fields,omitempty"`
	ValidationResult []ValidationCheck `firestore:"validationResults,omitempty" json:"validationResults,omitempty"`
	CreatedAt        time.Time         `firestore:"createdAt" json:"createdAt"`
	LastTransitionAt time.Time         `firestore:"lastTransitionAt" json:"lastTransitionAt"`
}

// FieldByKey returns a pointer into Fields for in-place updates, or nil if
// the key is absent. Field keys are unique within a document.
func (d *Document) FieldByKey(key string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			return &d.Fields[i]
		}
	}
	return nil
}

// Field is one extracted value. ExtractedValue and Confidence are written
// once by the extract stage and never mutated afterward; a human override
// lands in CorrectedValue so the original survives for audit and learning.
type Field struct {
	Key            string  `firestore:"key" json:"key"`
	Label          string  `firestore:"label,omitempty" json:"label,omitempty"`
	ExtractedValue string  `firestore:"extractedValue" json:"extractedValue"`
	Confidence     float64 `firestore:"confidence" json:"confidence"`
	CorrectedValue *string `firestore:"correctedValue,omitempty" json:"correctedValue,omitempty"`
}

// EffectiveValue returns the corrected value when present, otherwise the
// extracted one. All downstream consumers read through this.
func (f *Field) EffectiveValue() string {
	if f.CorrectedValue != nil {
		return *f.CorrectedValue
	}
	return f.ExtractedValue
}

// EffectiveConfidence treats a human-corrected field as fully trusted.
func (f *Field) EffectiveConfidence() float64 {
	if f.CorrectedValue != nil {
		return 100
	}
	return f.Confidence
}

// ValidationCheck is the outcome of one validation rule. The validate stage
// replaces the document's whole check sequence on every run.
type ValidationCheck struct {
	Name   string `firestore:"name" json:"name"`
	Passed bool   `firestore:"passed" json:"passed"`
	Detail string `firestore:"detail,omitempty" json:"detail,omitempty"`
}

// Names of checks the orchestrator synthesizes outside the validate stage.
const (
	CheckClassificationConfidence = "classification_confidence"
	CheckFieldExtraction          = "field_extraction"
	CheckProcessingFailed         = "processing_failed"
)
