package invoice_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"invoiceqc/internal/invoice"
	"invoiceqc/pkg/models"
)

func newValidator() *invoice.Validator {
	return invoice.NewValidatorWithLogger(zerolog.Nop())
}

// validInvoice returns an invoice that passes every error check and raises
// no warnings.
func validInvoice() *models.Invoice {
	due := models.DateOf(time.Now().AddDate(0, 1, 0))
	return &models.Invoice{
		InvoiceNumber: "INV-2024-001",
		SellerName:    "Tech Solutions GmbH",
		SellerTaxID:   "DE123456789",
		BuyerName:     "Example Corp AG",
		InvoiceDate:   models.DateOf(time.Now().AddDate(0, 0, -30)),
		DueDate:       &due,
		Currency:      models.CurrencyEUR,
		NetTotal:      1500,
		TaxAmount:     285,
		GrossTotal:    1785,
		LineItems: []models.LineItem{
			{Description: "Consulting services", Quantity: 10, UnitPrice: 150, LineTotal: 1500},
		},
	}
}

func hasRule(errs []models.ValidationError, rule string) bool {
	for _, e := range errs {
		if e.Rule == rule {
			return true
		}
	}
	return false
}

func TestValidateInvoiceValid(t *testing.T) {
	result := newValidator().ValidateInvoice(validInvoice())

	if !result.IsValid {
		t.Fatalf("expected valid invoice, got errors: %+v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(result.Errors))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", result.Warnings)
	}
	if result.InvoiceID != "INV-2024-001" {
		t.Errorf("invoice_id: got %s", result.InvoiceID)
	}
}

func TestRequiredFieldChecks(t *testing.T) {
	inv := validInvoice()
	inv.InvoiceNumber = ""
	inv.SellerName = "   "
	inv.BuyerName = "\t"
	inv.InvoiceDate = models.Date{}
	inv.Currency = ""

	result := newValidator().ValidateInvoice(inv)

	if result.IsValid {
		t.Fatal("expected invalid invoice")
	}

	empty, missing := 0, 0
	for _, e := range result.Errors {
		switch e.Rule {
		case invoice.RuleRequiredFieldEmpty:
			empty++
		case invoice.RuleRequiredFieldMissing:
			missing++
		}
	}
	if empty != 3 {
		t.Errorf("required_field_empty: got %d, want 3 (number, seller, buyer)", empty)
	}
	if missing != 2 {
		t.Errorf("required_field_missing: got %d, want 2 (invoice_date, currency)", missing)
	}
	if result.InvoiceID != "UNKNOWN" {
		t.Errorf("invoice_id fallback: got %s, want UNKNOWN", result.InvoiceID)
	}
}

func TestLineItemsSumTolerance(t *testing.T) {
	tests := []struct {
		name     string
		sum      float64
		mismatch bool
	}{
		{"exact", 100.00, false},
		{"at tolerance boundary", 101.00, false}, // diff == tolerance passes
		{"just over tolerance", 101.01, true},
		{"under, within tolerance", 99.00, false},
		{"under, over tolerance", 98.99, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			inv.NetTotal = 100
			inv.TaxAmount = 19
			inv.GrossTotal = 119
			inv.LineItems = []models.LineItem{
				{Description: "Item", Quantity: 1, UnitPrice: tt.sum, LineTotal: tt.sum},
			}

			result := newValidator().ValidateInvoice(inv)
			got := hasRule(result.Errors, invoice.RuleLineItemsSumMismatch)
			if got != tt.mismatch {
				t.Errorf("sum %.2f vs net 100: mismatch = %v, want %v", tt.sum, got, tt.mismatch)
			}
		})
	}
}

func TestLineItemsSumSkippedWhenEmpty(t *testing.T) {
	inv := validInvoice()
	inv.LineItems = nil
	inv.NetTotal = 100
	inv.TaxAmount = 19
	inv.GrossTotal = 119

	result := newValidator().ValidateInvoice(inv)
	if hasRule(result.Errors, invoice.RuleLineItemsSumMismatch) {
		t.Error("line_items_sum_mismatch must never fire for empty line items")
	}
	if !hasRule(result.Warnings, invoice.RuleNoLineItems) {
		t.Error("expected no_line_items warning")
	}
	if !result.IsValid {
		t.Errorf("warnings must not affect validity, got errors: %+v", result.Errors)
	}
}

func TestGrossCalculation(t *testing.T) {
	tests := []struct {
		name     string
		gross    float64
		mismatch bool
	}{
		{"exact", 119.00, false},
		{"off by 1.00 against 0.6 tolerance", 120.00, true},
		{"within half percent", 119.50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			inv.NetTotal = 100
			inv.TaxAmount = 19
			inv.GrossTotal = tt.gross
			inv.LineItems = []models.LineItem{
				{Description: "Item", Quantity: 1, UnitPrice: 100, LineTotal: 100},
			}

			result := newValidator().ValidateInvoice(inv)
			got := hasRule(result.Errors, invoice.RuleGrossCalculationMismatch)
			if got != tt.mismatch {
				t.Errorf("gross %.2f: mismatch = %v, want %v", tt.gross, got, tt.mismatch)
			}
		})
	}
}

func TestZeroReferenceMeansZeroTolerance(t *testing.T) {
	inv := validInvoice()
	inv.NetTotal = 0
	inv.TaxAmount = 0
	inv.GrossTotal = 0
	inv.LineItems = []models.LineItem{
		{Description: "Item", Quantity: 1, UnitPrice: 0.01, LineTotal: 0.01},
	}

	result := newValidator().ValidateInvoice(inv)
	if !hasRule(result.Errors, invoice.RuleLineItemsSumMismatch) {
		t.Error("zero net_total must make any nonzero line item sum fail")
	}
	// Gross side: 0 + 0 == 0, diff of zero passes even with zero tolerance.
	if hasRule(result.Errors, invoice.RuleGrossCalculationMismatch) {
		t.Error("zero totals with zero diff must pass the gross check")
	}
}

func TestDueDateBeforeInvoiceDate(t *testing.T) {
	inv := validInvoice()
	early := models.DateOf(inv.InvoiceDate.AddDate(0, 0, -1))
	inv.DueDate = &early

	result := newValidator().ValidateInvoice(inv)
	if !hasRule(result.Errors, invoice.RuleDueDateBeforeInvoiceDate) {
		t.Error("expected due_date_before_invoice_date")
	}
}

func TestDateOutOfRange(t *testing.T) {
	tests := []struct {
		name       string
		date       models.Date
		outOfRange bool
	}{
		{"today", models.DateOf(time.Now()), false},
		{"eleven years ago", models.DateOf(time.Now().AddDate(-11, 0, 0)), true},
		{"eleven years ahead", models.DateOf(time.Now().AddDate(11, 0, 0)), true},
		{"nine years ago", models.DateOf(time.Now().AddDate(-9, 0, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			inv.InvoiceDate = tt.date
			inv.DueDate = nil // keep ordering check out of the way

			result := newValidator().ValidateInvoice(inv)
			got := hasRule(result.Errors, invoice.RuleDateOutOfRange)
			if got != tt.outOfRange {
				t.Errorf("date %s: out of range = %v, want %v", tt.date, got, tt.outOfRange)
			}
		})
	}
}

func TestInvalidCurrency(t *testing.T) {
	inv := validInvoice()
	inv.Currency = "XXX"

	result := newValidator().ValidateInvoice(inv)
	if !hasRule(result.Errors, invoice.RuleInvalidCurrency) {
		t.Error("expected invalid_currency")
	}
}

func TestNegativeChecks(t *testing.T) {
	inv := validInvoice()
	inv.NetTotal = -1
	inv.LineItems = []models.LineItem{
		{Description: "Refund", Quantity: -1, UnitPrice: -150, LineTotal: 150},
	}

	result := newValidator().ValidateInvoice(inv)
	for _, rule := range []string{
		invoice.RuleNegativeAmount,
		invoice.RuleNegativeQuantity,
		invoice.RuleNegativeUnitPrice,
	} {
		if !hasRule(result.Errors, rule) {
			t.Errorf("expected %s", rule)
		}
	}
}

func TestDuplicateDetectionOrder(t *testing.T) {
	a := validInvoice()
	b := validInvoice()
	c := validInvoice()
	report := newValidator().ValidateBatch([]*models.Invoice{a, b, c})

	if hasRule(report.Results[0].Errors, invoice.RuleDuplicateInvoice) {
		t.Error("first occurrence must never be flagged as duplicate")
	}
	for i := 1; i < 3; i++ {
		if !hasRule(report.Results[i].Errors, invoice.RuleDuplicateInvoice) {
			t.Errorf("occurrence %d: expected duplicate_invoice", i+1)
		}
	}
	if report.Summary.ErrorCounts[invoice.RuleDuplicateInvoice] != 2 {
		t.Errorf("duplicate count: got %d, want 2", report.Summary.ErrorCounts[invoice.RuleDuplicateInvoice])
	}
}

func TestDuplicateStateResetsPerBatch(t *testing.T) {
	v := newValidator()
	inv := validInvoice()

	first := v.ValidateBatch([]*models.Invoice{inv})
	second := v.ValidateBatch([]*models.Invoice{inv})

	if hasRule(second.Results[0].Errors, invoice.RuleDuplicateInvoice) {
		t.Error("duplicate state leaked across batches")
	}
	if !first.Results[0].IsValid || !second.Results[0].IsValid {
		t.Error("single invoice must stay valid in both batches")
	}
}

func TestBatchSummaryAggregation(t *testing.T) {
	inv1 := validInvoice()

	inv2 := validInvoice()
	inv2.InvoiceNumber = "INV-2024-002"
	inv2.Currency = "XXX"

	inv3 := validInvoice()
	inv3.InvoiceNumber = "INV-2024-003"
	inv3.Currency = "YYY"
	early := models.DateOf(inv3.InvoiceDate.AddDate(0, 0, -5))
	inv3.DueDate = &early

	report := newValidator().ValidateBatch([]*models.Invoice{inv1, inv2, inv3})

	summary := report.Summary
	if summary.TotalInvoices != 3 || summary.ValidInvoices != 1 || summary.InvalidInvoices != 2 {
		t.Errorf("summary counts: got %d/%d/%d, want 3/1/2",
			summary.TotalInvoices, summary.ValidInvoices, summary.InvalidInvoices)
	}

	want := map[string]int{
		invoice.RuleInvalidCurrency:          2,
		invoice.RuleDueDateBeforeInvoiceDate: 1,
	}
	if !reflect.DeepEqual(summary.ErrorCounts, want) {
		t.Errorf("error_counts: got %v, want %v", summary.ErrorCounts, want)
	}
}

func TestBatchIdempotence(t *testing.T) {
	invoices := []*models.Invoice{validInvoice(), validInvoice()}
	invoices[1].Currency = "XXX"

	v := newValidator()
	first := v.ValidateBatch(invoices)
	second := v.ValidateBatch(invoices)

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Error("repeated batch runs produced different results")
	}
	if !reflect.DeepEqual(first.Summary.ErrorCounts, second.Summary.ErrorCounts) {
		t.Error("repeated batch runs produced different error counts")
	}
}

func TestWarningsNeverAffectValidity(t *testing.T) {
	inv := validInvoice()
	inv.SellerTaxID = ""
	inv.DueDate = nil
	inv.LineItems = nil
	inv.NetTotal = 0
	inv.TaxAmount = 0
	inv.GrossTotal = 0
	inv.InvoiceDate = models.DateOf(time.Now().AddDate(-2, 0, 0))

	result := newValidator().ValidateInvoice(inv)

	if !result.IsValid {
		t.Fatalf("expected valid despite warnings, got errors: %+v", result.Errors)
	}
	for _, rule := range []string{
		invoice.RuleNoLineItems,
		invoice.RuleMissingSellerTaxID,
		invoice.RuleMissingDueDate,
		invoice.RuleOldInvoice,
	} {
		if !hasRule(result.Warnings, rule) {
			t.Errorf("expected warning %s", rule)
		}
	}
	for _, w := range result.Warnings {
		if w.Severity != models.SeverityWarning {
			t.Errorf("warning %s has severity %s", w.Rule, w.Severity)
		}
	}
}

func TestIndependentChecksAllReport(t *testing.T) {
	// One invoice violating many rules at once: every check contributes its
	// own errors, none suppresses another.
	inv := validInvoice()
	inv.Currency = "XXX"
	inv.GrossTotal = 5000
	inv.LineItems = []models.LineItem{
		{Description: "Item", Quantity: -1, UnitPrice: 10, LineTotal: 10},
	}

	result := newValidator().ValidateInvoice(inv)
	for _, rule := range []string{
		invoice.RuleInvalidCurrency,
		invoice.RuleGrossCalculationMismatch,
		invoice.RuleLineItemsSumMismatch,
		invoice.RuleNegativeQuantity,
	} {
		if !hasRule(result.Errors, rule) {
			t.Errorf("expected %s", rule)
		}
	}
}
