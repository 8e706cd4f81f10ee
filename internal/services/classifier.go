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

// VertexClassifier resolves a document's type with the pre-configured
// classifier model.
type VertexClassifier struct {
	vertexClient *gcp.VertexClient
}

func NewVertexClassifier(vertexClient *gcp.VertexClient) *VertexClassifier {
	return &VertexClassifier{vertexClient: vertexClient}
}

// classifierResponse is the JSON shape the classifier model is forced into.
type classifierResponse struct {
	DocumentType string  `json:"documentType"`
	Confidence   float64 `json:"confidence"`
}

var knownDocTypes = map[models.DocType]bool{
	models.DocTypeBankStatement:    true,
	models.DocTypeInvoice:          true,
	models.DocTypePayslip:          true,
	models.DocTypeAgreement:        true,
	models.DocTypeSettlementLetter: true,
	models.DocTypeTaxForm:          true,
	models.DocTypeIDProof:          true,
	models.DocTypeUnknown:          true,
}

// Classify sends the document bytes to the classifier model and parses its
// JSON verdict. Confidence is on the 0-100 scale.
func (c *VertexClassifier) Classify(ctx context.Context, data []byte) (models.DocType, float64, error) {
	filePart := genai.Blob{
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}
	resp, err := c.vertexClient.ClassifierModel.GenerateContent(ctx, filePart, genai.Text(gcp.ClassifierUserPrompt))
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate classification from gemini: %w", err)
	}

	raw := stripCodeFences(gcp.ResponseText(resp))
	var parsed classifierResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", 0, fmt.Errorf("classifier returned unparseable JSON: %w", err)
	}

	docType := models.DocType(parsed.DocumentType)
	if !knownDocTypes[docType] {
		docType = models.DocTypeUnknown
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return docType, confidence, nil
}

// stripCodeFences removes markdown fencing some model responses still wrap
// around their JSON despite the forced MIME type.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
