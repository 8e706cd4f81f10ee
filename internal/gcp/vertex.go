package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Classifier Model Prompts ---
const ClassifierSystemPrompt = "You are a financial document classifier. Given a document, you identify its type and your confidence in that identification. You must output your response as a single valid JSON object."
const ClassifierUserPrompt = `Classify the provided financial document.

Choose exactly one documentType from this list:
  bank_statement, invoice, payslip, agreement, settlement_letter, tax_form, id_proof, unknown

Respond with a single JSON object with exactly two keys:
  - "documentType": one of the values above.
  - "confidence": an integer from 0 to 100 expressing how certain you are.

If the document does not clearly match any type, use "unknown" with a low confidence.
Do not include any text before or after the JSON object.`

// --- Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are a financial document data extractor. You read a document of a known type and extract the requested fields with per-field confidence scores. You must output your response as a valid JSON array."
const ExtractorUserPromptTemplate = `Extract data from the provided document of type %q.

Extract these fields when present, in this order:
%s
For documents containing a transaction table, additionally emit one group of
fields per transaction row, in statement order, using the keys
"transaction_<n>_date", "transaction_<n>_amount" (signed, credits positive,
debits negative) and "transaction_<n>_description", where <n> is the 1-based
row number.

Respond with a single JSON array. Each element must be an object with exactly
four keys:
  - "key": the field key.
  - "label": a short human-readable display name.
  - "value": the extracted value as text, exactly as printed in the document
    (amounts keep their sign and decimal places, dates keep their format).
  - "confidence": an integer from 0 to 100 for that field alone.

Omit fields that are not present in the document. Do not include any text
before or after the JSON array.`

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	ClassifierModel *genai.GenerativeModel
	ExtractorModel  *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the classifier model ---
	classifierModel := baseClient.GenerativeModel("gemini-1.5-pro")
	classifierModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ClassifierSystemPrompt)},
	}
	classifierModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. Classification is parsed, never free text.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// --- Configure the extractor model ---
	extractorModel := baseClient.GenerativeModel("gemini-1.5-pro")
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ClassifierModel: classifierModel,
		ExtractorModel:  extractorModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ResponseText concatenates the text parts of a model response.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	return out
}
