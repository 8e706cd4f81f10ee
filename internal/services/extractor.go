package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ufindi/findocflow/internal/gcp"
	"github.com/ufindi/findocflow/internal/models"
)

// fieldSpec names one schema field the extractor asks the model for.
type fieldSpec struct {
	Key   string
	Label string
}

// fieldSchemas is the per-docType extraction schema. Order here is the
// order fields are requested and reported in.
var fieldSchemas = map[models.DocType][]fieldSpec{
	models.DocTypeBankStatement: {
		{"bank_name", "Bank Name"},
		{"account_holder", "Account Holder"},
		{"account_number", "Account Number"},
		{"statement_date", "Statement Date"},
		{"opening_balance", "Opening Balance"},
		{"closing_balance", "Closing Balance"},
		{"employer_name", "Employer Name"},
	},
	models.DocTypePayslip: {
		{"employee_name", "Employee Name"},
		{"employer_name", "Employer Name"},
		{"pay_period", "Pay Period"},
		{"gross_pay", "Gross Pay"},
		{"net_pay", "Net Pay"},
	},
	models.DocTypeInvoice: {
		{"invoice_number", "Invoice Number"},
		{"vendor_name", "Vendor Name"},
		{"invoice_date", "Invoice Date"},
		{"due_date", "Due Date"},
		{"subtotal", "Subtotal"},
		{"tax_amount", "Tax Amount"},
		{"total_amount", "Total Amount"},
	},
	models.DocTypeAgreement: {
		{"party_1", "First Party"},
		{"party_2", "Second Party"},
		{"effective_date", "Effective Date"},
	},
}

// genericSchema covers docTypes without a dedicated field list.
var genericSchema = []fieldSpec{
	{"document_date", "Document Date"},
	{"account_holder", "Account Holder"},
	{"reference_number", "Reference Number"},
}

// VertexExtractor extracts the typed field set with the pre-configured
// extractor model.
type VertexExtractor struct {
	vertexClient *gcp.VertexClient
}

func NewVertexExtractor(vertexClient *gcp.VertexClient) *VertexExtractor {
	return &VertexExtractor{vertexClient: vertexClient}
}

// extractedField is the JSON shape of one element of the model's response.
type extractedField struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extract asks the model for the docType's schema fields and returns them
// in response order. Duplicate keys are dropped after their first
// occurrence so field keys stay unique within a document.
func (e *VertexExtractor) Extract(ctx context.Context, data []byte, docType models.DocType) ([]models.Field, error) {
	schema, ok := fieldSchemas[docType]
	if !ok {
		schema = genericSchema
	}

	var fieldList strings.Builder
	for _, spec := range schema {
		fmt.Fprintf(&fieldList, "  - %q (%s)\n", spec.Key, spec.Label)
	}
	prompt := fmt.Sprintf(gcp.ExtractorUserPromptTemplate, docType, fieldList.String())

	filePart := genai.Blob{
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}
	resp, err := e.vertexClient.ExtractorModel.GenerateContent(ctx, filePart, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate extraction from gemini: %w", err)
	}

	raw := stripCodeFences(gcp.ResponseText(resp))
	var parsed []extractedField
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("extractor returned unparseable JSON: %w", err)
	}

	seen := make(map[string]bool, len(parsed))
	fields := make([]models.Field, 0, len(parsed))
	for _, f := range parsed {
		if f.Key == "" || seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		confidence := f.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
		fields = append(fields, models.Field{
			Key:            f.Key,
			Label:          f.Label,
			ExtractedValue: f.Value,
			Confidence:     confidence,
		})
	}
	return fields, nil
}
