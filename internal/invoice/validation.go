package invoice

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

// Rule identifiers emitted by the validator. These strings are a stable
// contract for report consumers and must not be renamed without a version bump.
const (
	RuleRequiredFieldMissing     = "required_field_missing"
	RuleRequiredFieldEmpty       = "required_field_empty"
	RuleInvalidDateFormat        = "invalid_date_format"
	RuleDateOutOfRange           = "date_out_of_range"
	RuleInvalidCurrency          = "invalid_currency"
	RuleLineItemsSumMismatch     = "line_items_sum_mismatch"
	RuleGrossCalculationMismatch = "gross_calculation_mismatch"
	RuleDueDateBeforeInvoiceDate = "due_date_before_invoice_date"
	RuleDuplicateInvoice         = "duplicate_invoice"
	RuleNegativeAmount           = "negative_amount"
	RuleNegativeQuantity         = "negative_quantity"
	RuleNegativeUnitPrice        = "negative_unit_price"

	// Warning-only rules, never affect is_valid.
	RuleNoLineItems        = "no_line_items"
	RuleMissingSellerTaxID = "missing_seller_tax_id"
	RuleMissingDueDate     = "missing_due_date"
	RuleOldInvoice         = "old_invoice"
)

const (
	// maxDateRangeDays is how far invoice_date may sit from today, in either
	// direction, before it is flagged as unrealistic (~10 years).
	maxDateRangeDays = 3650

	// oldInvoiceAgeDays is the age past which an invoice gets a warning.
	oldInvoiceAgeDays = 365

	// lineItemsTolerance is the allowed relative deviation between the line
	// item sum and net_total.
	lineItemsTolerance = 0.01

	// grossTolerance is the allowed relative deviation between
	// net_total + tax_amount and gross_total.
	grossTolerance = 0.005
)

// invoiceKey identifies an invoice for duplicate detection within a batch.
type invoiceKey struct {
	number string
	seller string
	date   string
}

// Validator runs the fixed set of business-rule checks against invoices and
// aggregates results across a batch.
//
// A Validator carries mutable duplicate-tracking state scoped to one batch
// run. It is not safe to call ValidateBatch concurrently on the same
// instance; use one Validator per concurrent batch or serialize the calls.
type Validator struct {
	log  zerolog.Logger
	now  func() time.Time
	seen map[invoiceKey]struct{}
}

// NewValidator creates a validator using the default component logger.
func NewValidator() *Validator {
	return NewValidatorWithLogger(logger.WithComponent("validator"))
}

// NewValidatorWithLogger creates a validator emitting structured logs
// through the given logger. The core never requires global logger setup.
func NewValidatorWithLogger(log zerolog.Logger) *Validator {
	return &Validator{
		log:  log,
		now:  time.Now,
		seen: make(map[invoiceKey]struct{}),
	}
}

// Reset clears the duplicate-tracking state. ValidateBatch calls this at the
// start of every run; callers only need it when driving ValidateInvoice
// directly across logical batches.
func (v *Validator) Reset() {
	clear(v.seen)
}

// ValidateBatch validates invoices sequentially in the given order and
// returns per-invoice results plus the batch summary. Order matters: the
// first occurrence of a duplicate key is never flagged, later ones are.
func (v *Validator) ValidateBatch(invoices []*models.Invoice) *models.BatchReport {
	v.Reset()

	results := make([]models.ValidationResult, 0, len(invoices))
	errorCounts := make(map[string]int)
	validCount := 0

	for _, inv := range invoices {
		result := v.ValidateInvoice(inv)
		results = append(results, result)

		if result.IsValid {
			validCount++
		}
		for _, e := range result.Errors {
			errorCounts[e.Rule]++
		}
	}

	summary := models.ValidationSummary{
		TotalInvoices:       len(invoices),
		ValidInvoices:       validCount,
		InvalidInvoices:     len(invoices) - validCount,
		ErrorCounts:         errorCounts,
		ValidationTimestamp: v.now().UTC(),
	}

	v.log.Info().
		Int("total", summary.TotalInvoices).
		Int("valid", summary.ValidInvoices).
		Int("invalid", summary.InvalidInvoices).
		Msg("Batch validation completed")

	return &models.BatchReport{Results: results, Summary: summary}
}

// ValidateInvoice runs every check against a single invoice. The checks are
// independent: one failing rule never suppresses another. As a side effect
// the invoice's duplicate key is recorded in the current batch state.
func (v *Validator) ValidateInvoice(inv *models.Invoice) models.ValidationResult {
	errs := make([]models.ValidationError, 0)
	warnings := make([]models.ValidationError, 0)

	// Completeness
	errs = append(errs, v.checkRequiredFields(inv)...)
	errs = append(errs, v.checkDates(inv)...)
	errs = append(errs, v.checkCurrency(inv)...)

	// Business
	errs = append(errs, v.checkLineItemsSum(inv)...)
	errs = append(errs, v.checkGrossCalculation(inv)...)
	errs = append(errs, v.checkDueDate(inv)...)

	// Anomaly
	errs = append(errs, v.checkDuplicates(inv)...)
	errs = append(errs, v.checkNonNegative(inv)...)

	// Non-blocking
	warnings = append(warnings, v.checkWarnings(inv)...)

	invoiceID := inv.InvoiceNumber
	if invoiceID == "" {
		invoiceID = "UNKNOWN"
	}

	result := models.ValidationResult{
		InvoiceID: invoiceID,
		IsValid:   len(errs) == 0,
		Errors:    errs,
		Warnings:  warnings,
	}

	v.log.Debug().
		Str("invoice_id", result.InvoiceID).
		Bool("is_valid", result.IsValid).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("Invoice validated")

	return result
}

func ruleError(rule, format string, args ...any) models.ValidationError {
	return models.ValidationError{
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Severity: models.SeverityError,
	}
}

func ruleWarning(rule, format string, args ...any) models.ValidationError {
	return models.ValidationError{
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Severity: models.SeverityWarning,
	}
}

// checkRequiredFields verifies the mandatory fields are present and, for
// strings, non-blank. Numeric totals are always present on the record type;
// their sign is handled by checkNonNegative.
func (v *Validator) checkRequiredFields(inv *models.Invoice) []models.ValidationError {
	var errs []models.ValidationError

	stringFields := []struct {
		name  string
		value string
	}{
		{"invoice_number", inv.InvoiceNumber},
		{"seller_name", inv.SellerName},
		{"buyer_name", inv.BuyerName},
	}

	for _, f := range stringFields {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, ruleError(RuleRequiredFieldEmpty, "Required field is empty: %s", f.name))
		}
	}

	if inv.InvoiceDate.IsZero() {
		errs = append(errs, ruleError(RuleRequiredFieldMissing, "Missing required field: invoice_date"))
	}
	if inv.Currency == "" {
		errs = append(errs, ruleError(RuleRequiredFieldMissing, "Missing required field: currency"))
	}

	return errs
}

// checkDates sanity-checks invoice_date against today. Malformed dates are
// rejected at construction, so RuleInvalidDateFormat is only reachable for
// records that bypass the decoder; the identifier stays reserved for the
// report contract.
func (v *Validator) checkDates(inv *models.Invoice) []models.ValidationError {
	var errs []models.ValidationError

	if !inv.InvoiceDate.IsZero() {
		today := models.DateOf(v.now())
		days := inv.InvoiceDate.DaysUntil(today)
		if days < 0 {
			days = -days
		}
		if days > maxDateRangeDays {
			errs = append(errs, ruleError(RuleDateOutOfRange, "invoice_date looks unrealistic: %s", inv.InvoiceDate))
		}
	}

	return errs
}

// checkCurrency performs the runtime membership check for externally
// sourced data, on top of the compile-time typed constants.
func (v *Validator) checkCurrency(inv *models.Invoice) []models.ValidationError {
	if inv.Currency != "" && !inv.Currency.Valid() {
		return []models.ValidationError{
			ruleError(RuleInvalidCurrency, "Currency %q is not in %v", inv.Currency, models.Currencies),
		}
	}
	return nil
}

// checkLineItemsSum verifies the line item totals add up to net_total
// within 1%. An exactly-zero net_total makes the tolerance zero, so any
// nonzero sum fails. Empty line items produce no error here.
func (v *Validator) checkLineItemsSum(inv *models.Invoice) []models.ValidationError {
	if len(inv.LineItems) == 0 {
		return nil
	}

	var sum float64
	for _, item := range inv.LineItems {
		sum += item.LineTotal
	}

	tolerance := inv.NetTotal * lineItemsTolerance
	diff := math.Abs(sum - inv.NetTotal)

	if diff > tolerance {
		return []models.ValidationError{
			ruleError(RuleLineItemsSumMismatch,
				"Line items total %.2f does not match net_total %.2f. Diff = %.2f",
				sum, inv.NetTotal, diff),
		}
	}
	return nil
}

// checkGrossCalculation verifies net_total + tax_amount matches gross_total
// within 0.5%. A zero gross_total means zero tolerance.
func (v *Validator) checkGrossCalculation(inv *models.Invoice) []models.ValidationError {
	expected := inv.NetTotal + inv.TaxAmount
	tolerance := inv.GrossTotal * grossTolerance
	diff := math.Abs(expected - inv.GrossTotal)

	if diff > tolerance {
		return []models.ValidationError{
			ruleError(RuleGrossCalculationMismatch,
				"net_total (%.2f) + tax_amount (%.2f) = %.2f, but gross_total is %.2f",
				inv.NetTotal, inv.TaxAmount, expected, inv.GrossTotal),
		}
	}
	return nil
}

// checkDueDate flags a due_date earlier than invoice_date.
func (v *Validator) checkDueDate(inv *models.Invoice) []models.ValidationError {
	if inv.DueDate == nil || inv.DueDate.IsZero() || inv.InvoiceDate.IsZero() {
		return nil
	}
	if inv.DueDate.Before(inv.InvoiceDate.Time) {
		return []models.ValidationError{
			ruleError(RuleDueDateBeforeInvoiceDate,
				"due_date (%s) is before invoice_date (%s)", inv.DueDate, inv.InvoiceDate),
		}
	}
	return nil
}

// checkDuplicates flags repeated (invoice_number, seller_name, invoice_date)
// keys within the current batch. The first occurrence establishes the key
// and is never flagged itself.
func (v *Validator) checkDuplicates(inv *models.Invoice) []models.ValidationError {
	key := invoiceKey{
		number: inv.InvoiceNumber,
		seller: inv.SellerName,
		date:   inv.InvoiceDate.String(),
	}

	if _, ok := v.seen[key]; ok {
		return []models.ValidationError{
			ruleError(RuleDuplicateInvoice,
				"Duplicate invoice detected: %s from %s on %s",
				inv.InvoiceNumber, inv.SellerName, inv.InvoiceDate),
		}
	}

	v.seen[key] = struct{}{}
	return nil
}

// checkNonNegative re-checks the sign of all monetary and quantity fields.
// Invoice totals are already guarded at construction; line item negativity
// is checked only here.
func (v *Validator) checkNonNegative(inv *models.Invoice) []models.ValidationError {
	var errs []models.ValidationError

	amounts := []struct {
		name  string
		value float64
	}{
		{"net_total", inv.NetTotal},
		{"tax_amount", inv.TaxAmount},
		{"gross_total", inv.GrossTotal},
	}
	for _, a := range amounts {
		if a.value < 0 {
			errs = append(errs, ruleError(RuleNegativeAmount,
				"%s cannot be negative (value: %.2f)", a.name, a.value))
		}
	}

	for i, item := range inv.LineItems {
		if item.Quantity < 0 {
			errs = append(errs, ruleError(RuleNegativeQuantity,
				"Line item %d has negative quantity: %.2f", i+1, item.Quantity))
		}
		if item.UnitPrice < 0 {
			errs = append(errs, ruleError(RuleNegativeUnitPrice,
				"Line item %d has negative unit_price: %.2f", i+1, item.UnitPrice))
		}
	}

	return errs
}

// checkWarnings runs the soft checks that never affect validity.
func (v *Validator) checkWarnings(inv *models.Invoice) []models.ValidationError {
	var warnings []models.ValidationError

	if len(inv.LineItems) == 0 {
		warnings = append(warnings, ruleWarning(RuleNoLineItems, "Invoice has no line items"))
	}
	if strings.TrimSpace(inv.SellerTaxID) == "" {
		warnings = append(warnings, ruleWarning(RuleMissingSellerTaxID, "Seller tax ID is missing"))
	}
	if inv.DueDate == nil || inv.DueDate.IsZero() {
		warnings = append(warnings, ruleWarning(RuleMissingDueDate, "Due date is missing"))
	}

	if !inv.InvoiceDate.IsZero() {
		ageDays := inv.InvoiceDate.DaysUntil(models.DateOf(v.now()))
		if ageDays > oldInvoiceAgeDays {
			warnings = append(warnings, ruleWarning(RuleOldInvoice,
				"Invoice is %d days old (over 1 year)", ageDays))
		}
	}

	return warnings
}
