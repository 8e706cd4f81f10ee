package models

import "time"

// CorrectionEvent records one saved human edit. Events are append-only and
// never deleted; together they form the audit and training log.
type CorrectionEvent struct {
	DocumentID    string    `firestore:"documentId" json:"documentId"`
	FieldKey      string    `firestore:"fieldKey" json:"fieldKey"`
	DocType       DocType   `firestore:"docType,omitempty" json:"docType,omitempty"`
	PreviousValue string    `firestore:"previousValue" json:"previousValue"`
	NewValue      string    `firestore:"newValue" json:"newValue"`
	Timestamp     time.Time `firestore:"timestamp" json:"timestamp"`
}

// ErrorCluster is a derived aggregation of corrections sharing a signature
// (docType + field key + error-magnitude bucket). Clusters are recomputed
// from the event log on demand and never independently mutated.
type ErrorCluster struct {
	Signature                 string            `json:"signature"`
	MemberCount               int               `json:"memberCount"`
	RepresentativeCorrections []CorrectionEvent `json:"representativeCorrections,omitempty"`
}
