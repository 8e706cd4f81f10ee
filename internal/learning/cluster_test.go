package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ufindi/findocflow/internal/models"
)

func TestMagnitudeBucket(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		next     string
		want     string
	}{
		{name: "under one percent", previous: "1000.00", next: "1005.00", want: bucketMinor},
		{name: "under ten percent", previous: "100.00", next: "105.00", want: bucketModerate},
		{name: "large miss", previous: "100.00", next: "200.00", want: bucketMajor},
		{name: "sign flip", previous: "-35.00", next: "35.00", want: bucketMajor},
		{name: "from zero", previous: "0.00", next: "10.00", want: bucketMajor},
		{name: "zero to zero", previous: "0", next: "0.00", want: bucketMinor},
		{name: "non-numeric previous", previous: "pending", next: "35.00", want: bucketText},
		{name: "non-numeric correction", previous: "Acme Corp", next: "Acme Corporation", want: bucketText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, magnitudeBucket(tt.previous, tt.next))
		})
	}
}

func TestSignature(t *testing.T) {
	ev := models.CorrectionEvent{
		DocType:       models.DocTypeInvoice,
		FieldKey:      "total_amount",
		PreviousValue: "100.00",
		NewValue:      "100.50",
	}
	assert.Equal(t, "invoice/total_amount/minor", Signature(ev))
}

func TestClusterEvents_Ordering(t *testing.T) {
	ev := func(docType models.DocType, key, prev, next string) models.CorrectionEvent {
		return models.CorrectionEvent{DocType: docType, FieldKey: key, PreviousValue: prev, NewValue: next}
	}

	events := []models.CorrectionEvent{
		ev(models.DocTypeInvoice, "vendor_name", "Globx", "Globex"),
		ev(models.DocTypePayslip, "net_pay", "100.00", "200.00"),
		ev(models.DocTypeInvoice, "vendor_name", "Glbex", "Globex"),
		ev(models.DocTypeBankStatement, "bank_name", "Frist", "First"),
		ev(models.DocTypePayslip, "net_pay", "300.00", "600.00"),
	}

	clusters := clusterEvents(events)
	got := make([]string, len(clusters))
	for i, c := range clusters {
		got[i] = c.Signature
	}
	// Count descending, then signature ascending on ties.
	assert.Equal(t, []string{
		"invoice/vendor_name/text",
		"payslip/net_pay/major",
		"bank_statement/bank_name/text",
	}, got)
}
