package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ufindi/findocflow/internal/models"
)

// Check names produced by the validate stage.
const (
	CheckBalanceContinuity   = "balance_continuity"
	CheckDateMonotonicity    = "date_monotonicity"
	CheckPlausibility        = "plausibility"
	CheckTotalReconciliation = "total_reconciliation"
	CheckCrossDocConsistency = "cross_document_consistency"
)

// checkFunc is a pure function of the document's effective field values,
// its docType, and its case siblings.
type checkFunc func(doc *models.Document, siblings []*models.Document) models.ValidationCheck

type namedCheck struct {
	name string
	run  checkFunc
}

// checksFor returns the deterministic, ordered check set for a docType.
// Same docType and field set always yield the same checks.
func checksFor(docType models.DocType) []namedCheck {
	switch docType {
	case models.DocTypeBankStatement:
		return []namedCheck{
			{CheckBalanceContinuity, checkBalanceContinuity},
			{CheckDateMonotonicity, checkDateMonotonicity},
			{CheckPlausibility, checkBankPlausibility},
			{CheckCrossDocConsistency, checkCrossDocumentConsistency},
		}
	case models.DocTypePayslip:
		return []namedCheck{
			{CheckPlausibility, checkPayslipPlausibility},
			{CheckCrossDocConsistency, checkCrossDocumentConsistency},
		}
	case models.DocTypeInvoice:
		return []namedCheck{
			{CheckTotalReconciliation, checkTotalReconciliation},
			{CheckDateMonotonicity, checkInvoiceDates},
			{CheckCrossDocConsistency, checkCrossDocumentConsistency},
		}
	default:
		return []namedCheck{
			{CheckCrossDocConsistency, checkCrossDocumentConsistency},
		}
	}
}

// effectiveValue reads a field through any human correction. An empty
// string is returned for absent fields.
func effectiveValue(doc *models.Document, key string) (string, bool) {
	f := doc.FieldByKey(key)
	if f == nil {
		return "", false
	}
	return f.EffectiveValue(), true
}

// transactionFields walks doc.Fields in extraction order and returns the
// effective values for every key matching transaction_<n>_<suffix>.
func transactionFields(doc *models.Document, suffix string) []string {
	var out []string
	for i := range doc.Fields {
		key := doc.Fields[i].Key
		if strings.HasPrefix(key, "transaction_") && strings.HasSuffix(key, "_"+suffix) {
			out = append(out, doc.Fields[i].EffectiveValue())
		}
	}
	return out
}

// checkBalanceContinuity verifies opening + Σ signed transaction amounts ==
// closing, exactly. Statements without both balances extracted are passed
// through; the statement simply has nothing to reconcile.
func checkBalanceContinuity(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	openingRaw, haveOpening := effectiveValue(doc, "opening_balance")
	closingRaw, haveClosing := effectiveValue(doc, "closing_balance")
	if !haveOpening || !haveClosing {
		return models.ValidationCheck{
			Name:   CheckBalanceContinuity,
			Passed: true,
			Detail: "opening or closing balance not extracted; nothing to reconcile",
		}
	}

	opening, err := ParseAmount(openingRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckBalanceContinuity, Passed: false, Detail: fmt.Sprintf("opening_balance: %v", err)}
	}
	closing, err := ParseAmount(closingRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckBalanceContinuity, Passed: false, Detail: fmt.Sprintf("closing_balance: %v", err)}
	}

	sum := opening
	for i, raw := range transactionFields(doc, "amount") {
		amount, err := ParseAmount(raw)
		if err != nil {
			return models.ValidationCheck{
				Name:   CheckBalanceContinuity,
				Passed: false,
				Detail: fmt.Sprintf("transaction %d amount: %v", i+1, err),
			}
		}
		sum += amount
	}

	if sum != closing {
		return models.ValidationCheck{
			Name:   CheckBalanceContinuity,
			Passed: false,
			Detail: fmt.Sprintf("expected closing balance %s, statement shows %s", FormatAmount(sum), FormatAmount(closing)),
		}
	}
	return models.ValidationCheck{Name: CheckBalanceContinuity, Passed: true}
}

// dateFormats mirrors the layouts financial documents actually print.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"2 Jan 2006",
	"2 January 2006",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// checkDateMonotonicity verifies transaction dates are non-decreasing in
// statement order. Unparseable dates are skipped rather than failed; the
// extractor's confidence score covers garbled values.
func checkDateMonotonicity(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	var prev time.Time
	havePrev := false
	for i, raw := range transactionFields(doc, "date") {
		t, ok := parseDate(raw)
		if !ok {
			continue
		}
		if havePrev && t.Before(prev) {
			return models.ValidationCheck{
				Name:   CheckDateMonotonicity,
				Passed: false,
				Detail: fmt.Sprintf("transaction %d dated %s precedes an earlier transaction", i+1, raw),
			}
		}
		prev, havePrev = t, true
	}
	return models.ValidationCheck{Name: CheckDateMonotonicity, Passed: true}
}

// salaryMarkers flag a transaction description as a salary credit.
var salaryMarkers = []string{"salary", "payroll", "wages"}

// checkBankPlausibility applies two heuristics: extracted balances should
// not be negative, and a salary credit's description should carry some token
// of the extracted employer name. Statements without an employer_name field
// skip the salary heuristic.
func checkBankPlausibility(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	for _, key := range []string{"opening_balance", "closing_balance"} {
		raw, ok := effectiveValue(doc, key)
		if !ok {
			continue
		}
		if amount, err := ParseAmount(raw); err == nil && amount < 0 {
			return models.ValidationCheck{
				Name:   CheckPlausibility,
				Passed: false,
				Detail: fmt.Sprintf("%s is negative (%s)", key, FormatAmount(amount)),
			}
		}
	}

	employer, ok := effectiveValue(doc, "employer_name")
	if !ok || strings.TrimSpace(employer) == "" {
		return models.ValidationCheck{Name: CheckPlausibility, Passed: true}
	}

	tokens := employerTokens(employer)
	for i, desc := range transactionFields(doc, "description") {
		lower := strings.ToLower(desc)
		isSalary := false
		for _, marker := range salaryMarkers {
			if strings.Contains(lower, marker) {
				isSalary = true
				break
			}
		}
		if !isSalary {
			continue
		}
		matched := false
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				matched = true
				break
			}
		}
		if !matched {
			return models.ValidationCheck{
				Name:   CheckPlausibility,
				Passed: false,
				Detail: fmt.Sprintf("transaction %d looks like a salary credit but does not mention employer %q", i+1, employer),
			}
		}
	}
	return models.ValidationCheck{Name: CheckPlausibility, Passed: true}
}

// employerTokens splits an employer name into lowercase tokens long enough
// to be distinctive.
func employerTokens(name string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tok = strings.Trim(tok, ".,()&")
		if len(tok) >= 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// checkPayslipPlausibility requires net pay not to exceed gross pay.
func checkPayslipPlausibility(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	grossRaw, haveGross := effectiveValue(doc, "gross_pay")
	netRaw, haveNet := effectiveValue(doc, "net_pay")
	if !haveGross || !haveNet {
		return models.ValidationCheck{Name: CheckPlausibility, Passed: true, Detail: "gross or net pay not extracted"}
	}
	gross, err := ParseAmount(grossRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckPlausibility, Passed: false, Detail: fmt.Sprintf("gross_pay: %v", err)}
	}
	net, err := ParseAmount(netRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckPlausibility, Passed: false, Detail: fmt.Sprintf("net_pay: %v", err)}
	}
	if net > gross {
		return models.ValidationCheck{
			Name:   CheckPlausibility,
			Passed: false,
			Detail: fmt.Sprintf("net pay %s exceeds gross pay %s", FormatAmount(net), FormatAmount(gross)),
		}
	}
	return models.ValidationCheck{Name: CheckPlausibility, Passed: true}
}

// checkTotalReconciliation verifies subtotal + tax_amount == total_amount
// exactly on invoices.
func checkTotalReconciliation(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	subRaw, haveSub := effectiveValue(doc, "subtotal")
	taxRaw, haveTax := effectiveValue(doc, "tax_amount")
	totalRaw, haveTotal := effectiveValue(doc, "total_amount")
	if !haveSub || !haveTax || !haveTotal {
		return models.ValidationCheck{Name: CheckTotalReconciliation, Passed: true, Detail: "invoice totals not fully extracted"}
	}
	sub, err := ParseAmount(subRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckTotalReconciliation, Passed: false, Detail: fmt.Sprintf("subtotal: %v", err)}
	}
	tax, err := ParseAmount(taxRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckTotalReconciliation, Passed: false, Detail: fmt.Sprintf("tax_amount: %v", err)}
	}
	total, err := ParseAmount(totalRaw)
	if err != nil {
		return models.ValidationCheck{Name: CheckTotalReconciliation, Passed: false, Detail: fmt.Sprintf("total_amount: %v", err)}
	}
	if sub+tax != total {
		return models.ValidationCheck{
			Name:   CheckTotalReconciliation,
			Passed: false,
			Detail: fmt.Sprintf("expected total %s, invoice shows %s", FormatAmount(sub+tax), FormatAmount(total)),
		}
	}
	return models.ValidationCheck{Name: CheckTotalReconciliation, Passed: true}
}

// checkInvoiceDates requires the due date not to precede the invoice date.
func checkInvoiceDates(doc *models.Document, _ []*models.Document) models.ValidationCheck {
	invRaw, haveInv := effectiveValue(doc, "invoice_date")
	dueRaw, haveDue := effectiveValue(doc, "due_date")
	if !haveInv || !haveDue {
		return models.ValidationCheck{Name: CheckDateMonotonicity, Passed: true}
	}
	inv, okInv := parseDate(invRaw)
	due, okDue := parseDate(dueRaw)
	if !okInv || !okDue {
		return models.ValidationCheck{Name: CheckDateMonotonicity, Passed: true, Detail: "invoice or due date unparseable"}
	}
	if due.Before(inv) {
		return models.ValidationCheck{
			Name:   CheckDateMonotonicity,
			Passed: false,
			Detail: fmt.Sprintf("due date %s precedes invoice date %s", dueRaw, invRaw),
		}
	}
	return models.ValidationCheck{Name: CheckDateMonotonicity, Passed: true}
}

// entityKeys are the logical entities that must agree across every
// document in a case.
var entityKeys = []string{"employer_name", "account_holder", "bank_name"}

// checkCrossDocumentConsistency compares entity fields against all case
// siblings. A mismatch fails the check and names the conflicting documents.
func checkCrossDocumentConsistency(doc *models.Document, siblings []*models.Document) models.ValidationCheck {
	var conflicts []string
	for _, key := range entityKeys {
		mine, ok := effectiveValue(doc, key)
		if !ok {
			continue
		}
		for _, sib := range siblings {
			if sib.ID == doc.ID {
				continue
			}
			theirs, ok := effectiveValue(sib, key)
			if !ok {
				continue
			}
			if normalizeEntity(mine) != normalizeEntity(theirs) {
				conflicts = append(conflicts, fmt.Sprintf("%s differs from document %s (%q vs %q)", key, sib.ID, mine, theirs))
			}
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return models.ValidationCheck{
			Name:   CheckCrossDocConsistency,
			Passed: false,
			Detail: strings.Join(conflicts, "; "),
		}
	}
	return models.ValidationCheck{Name: CheckCrossDocConsistency, Passed: true}
}

// normalizeEntity makes entity comparison insensitive to case and spacing.
func normalizeEntity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
