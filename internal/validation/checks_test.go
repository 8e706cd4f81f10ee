package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufindi/findocflow/internal/models"
)

func field(key, value string, confidence float64) models.Field {
	return models.Field{Key: key, ExtractedValue: value, Confidence: confidence}
}

func bankStatement(fields ...models.Field) *models.Document {
	return &models.Document{
		ID:      "doc-1",
		DocType: models.DocTypeBankStatement,
		Status:  models.StatusValidating,
		Fields:  fields,
	}
}

// ---------------------------------------------------------------------------
// ParseAmount
// ---------------------------------------------------------------------------

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "plain", in: "150.00", want: 15000},
		{name: "signed credit", in: "+85.00", want: 8500},
		{name: "signed debit", in: "-35.00", want: -3500},
		{name: "thousands separators", in: "1,234.56", want: 123456},
		{name: "no decimals", in: "100", want: 10000},
		{name: "one decimal place", in: "99.5", want: 9950},
		{name: "currency symbol", in: "$42.00", want: 4200},
		{name: "empty", in: "", wantErr: true},
		{name: "not a number", in: "pending", wantErr: true},
		{name: "too many decimals", in: "1.234", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Balance continuity
// ---------------------------------------------------------------------------

func TestCheckBalanceContinuity(t *testing.T) {
	tests := []struct {
		name       string
		fields     []models.Field
		wantPassed bool
	}{
		{
			name: "reconciles exactly",
			fields: []models.Field{
				field("opening_balance", "100.00", 95),
				field("closing_balance", "150.00", 95),
				field("transaction_1_amount", "+85.00", 90),
				field("transaction_2_amount", "-35.00", 90),
			},
			wantPassed: true,
		},
		{
			name: "off by five",
			fields: []models.Field{
				field("opening_balance", "100.00", 95),
				field("closing_balance", "150.00", 95),
				field("transaction_1_amount", "+85.00", 90),
				field("transaction_2_amount", "-30.00", 90),
			},
			wantPassed: false,
		},
		{
			name: "no transactions, balances equal",
			fields: []models.Field{
				field("opening_balance", "100.00", 95),
				field("closing_balance", "100.00", 95),
			},
			wantPassed: true,
		},
		{
			name: "balances missing passes through",
			fields: []models.Field{
				field("transaction_1_amount", "+85.00", 90),
			},
			wantPassed: true,
		},
		{
			name: "unparseable transaction fails",
			fields: []models.Field{
				field("opening_balance", "100.00", 95),
				field("closing_balance", "150.00", 95),
				field("transaction_1_amount", "fifty", 40),
			},
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkBalanceContinuity(bankStatement(tt.fields...), nil)
			assert.Equal(t, CheckBalanceContinuity, got.Name)
			assert.Equal(t, tt.wantPassed, got.Passed, "detail: %s", got.Detail)
		})
	}
}

func TestCheckBalanceContinuity_UsesCorrectedValues(t *testing.T) {
	corrected := "-35.00"
	doc := bankStatement(
		field("opening_balance", "100.00", 95),
		field("closing_balance", "150.00", 95),
		field("transaction_1_amount", "+85.00", 90),
		models.Field{Key: "transaction_2_amount", ExtractedValue: "-30.00", Confidence: 60, CorrectedValue: &corrected},
	)

	got := checkBalanceContinuity(doc, nil)
	assert.True(t, got.Passed, "corrected amount should reconcile the statement")
}

// ---------------------------------------------------------------------------
// Date monotonicity
// ---------------------------------------------------------------------------

func TestCheckDateMonotonicity(t *testing.T) {
	tests := []struct {
		name       string
		dates      []string
		wantPassed bool
	}{
		{name: "in order", dates: []string{"2025-01-03", "2025-01-05", "2025-01-05"}, wantPassed: true},
		{name: "regression", dates: []string{"2025-01-05", "2025-01-03"}, wantPassed: false},
		{name: "mixed formats in order", dates: []string{"03/01/2025", "2025-02-01"}, wantPassed: true},
		{name: "unparseable skipped", dates: []string{"2025-01-03", "n/a", "2025-01-04"}, wantPassed: true},
		{name: "no transactions", dates: nil, wantPassed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []models.Field
			for i, d := range tt.dates {
				fields = append(fields, field(txnKey(i+1, "date"), d, 90))
			}
			got := checkDateMonotonicity(bankStatement(fields...), nil)
			assert.Equal(t, tt.wantPassed, got.Passed, "detail: %s", got.Detail)
		})
	}
}

func txnKey(n int, suffix string) string {
	return "transaction_" + string(rune('0'+n)) + "_" + suffix
}

// ---------------------------------------------------------------------------
// Plausibility
// ---------------------------------------------------------------------------

func TestCheckBankPlausibility(t *testing.T) {
	tests := []struct {
		name        string
		employer    string
		description string
		wantPassed  bool
	}{
		{name: "salary mentions employer", employer: "Acme Corp", description: "SALARY ACME CORP JAN", wantPassed: true},
		{name: "salary from someone else", employer: "Acme Corp", description: "SALARY GLOBEX LTD JAN", wantPassed: false},
		{name: "non-salary credit ignored", employer: "Acme Corp", description: "TRANSFER FROM SAVINGS", wantPassed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := bankStatement(
				field("employer_name", tt.employer, 88),
				field("transaction_1_description", tt.description, 85),
				field("transaction_1_amount", "+2500.00", 85),
			)
			got := checkBankPlausibility(doc, nil)
			assert.Equal(t, tt.wantPassed, got.Passed, "detail: %s", got.Detail)
		})
	}
}

func TestCheckBankPlausibility_NegativeBalance(t *testing.T) {
	doc := bankStatement(
		field("opening_balance", "-50.00", 95),
		field("closing_balance", "100.00", 95),
	)
	got := checkBankPlausibility(doc, nil)
	require.False(t, got.Passed)
	assert.Contains(t, got.Detail, "opening_balance")
}

func TestCheckPayslipPlausibility(t *testing.T) {
	doc := &models.Document{
		DocType: models.DocTypePayslip,
		Fields: []models.Field{
			field("gross_pay", "3000.00", 92),
			field("net_pay", "3200.00", 92),
		},
	}
	got := checkPayslipPlausibility(doc, nil)
	require.False(t, got.Passed)
	assert.Contains(t, got.Detail, "exceeds gross")

	doc.FieldByKey("net_pay").ExtractedValue = "2400.00"
	assert.True(t, checkPayslipPlausibility(doc, nil).Passed)
}

// ---------------------------------------------------------------------------
// Invoice totals
// ---------------------------------------------------------------------------

func TestCheckTotalReconciliation(t *testing.T) {
	doc := &models.Document{
		DocType: models.DocTypeInvoice,
		Fields: []models.Field{
			field("subtotal", "200.00", 95),
			field("tax_amount", "40.00", 95),
			field("total_amount", "240.00", 95),
		},
	}
	assert.True(t, checkTotalReconciliation(doc, nil).Passed)

	doc.FieldByKey("total_amount").ExtractedValue = "245.00"
	got := checkTotalReconciliation(doc, nil)
	require.False(t, got.Passed)
	assert.Contains(t, got.Detail, "240.00")
}

// ---------------------------------------------------------------------------
// Cross-document consistency
// ---------------------------------------------------------------------------

func TestCheckCrossDocumentConsistency(t *testing.T) {
	doc := &models.Document{
		ID:      "doc-1",
		CaseID:  "case-9",
		DocType: models.DocTypePayslip,
		Fields:  []models.Field{field("employer_name", "Acme Corp", 90)},
	}
	agreeing := &models.Document{
		ID:     "doc-2",
		CaseID: "case-9",
		Fields: []models.Field{field("employer_name", "ACME  corp", 85)},
	}
	conflicting := &models.Document{
		ID:     "doc-3",
		CaseID: "case-9",
		Fields: []models.Field{field("employer_name", "Globex Ltd", 85)},
	}

	t.Run("normalized match passes", func(t *testing.T) {
		got := checkCrossDocumentConsistency(doc, []*models.Document{agreeing})
		assert.True(t, got.Passed)
	})

	t.Run("mismatch names the conflicting document", func(t *testing.T) {
		got := checkCrossDocumentConsistency(doc, []*models.Document{agreeing, conflicting})
		require.False(t, got.Passed)
		assert.Contains(t, got.Detail, "doc-3")
		assert.NotContains(t, got.Detail, "doc-2")
	})

	t.Run("self is never a conflict", func(t *testing.T) {
		got := checkCrossDocumentConsistency(doc, []*models.Document{doc})
		assert.True(t, got.Passed)
	})
}
