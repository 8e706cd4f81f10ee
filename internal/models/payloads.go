package models

// These structs define the JSON payloads for HTTP requests and responses
// between the review tooling and the worker Cloud Functions.

// CorrectionRequest is the input for the review function's correct action.
type CorrectionRequest struct {
	DocumentID string `json:"documentId"`
	FieldKey   string `json:"fieldKey"`
	NewValue   string `json:"newValue"`
}

// CorrectionResponse is the output of the correct action.
type CorrectionResponse struct {
	DocumentID string `json:"documentId"`
	FieldKey   string `json:"fieldKey"`
	Changed    bool   `json:"changed"`
}

// RevalidateRequest is the input for the review function's revalidate action.
type RevalidateRequest struct {
	DocumentID string `json:"documentId"`
}

// RevalidateResponse reports the status the document landed in.
type RevalidateResponse struct {
	DocumentID string `json:"documentId"`
	Status     Status `json:"status"`
}

// ClusterReport is the output of the learning-report function.
type ClusterReport struct {
	Clusters  []ErrorCluster `json:"clusters"`
	Triggered []ErrorCluster `json:"triggered,omitempty"`
	// Execution is the retraining workflow execution name, when launched.
	Execution string `json:"execution,omitempty"`
}
