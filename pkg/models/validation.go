package models

import "time"

// Severity classifies a validation finding. Only SeverityError affects the
// pass/fail outcome of an invoice.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError is a single failed or flagged rule occurrence. The Rule
// string is a stable identifier that downstream tooling keys off of.
type ValidationError struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult is the validation outcome for one invoice. IsValid is
// true iff Errors is empty; Warnings never affect it.
type ValidationResult struct {
	InvoiceID string            `json:"invoice_id"`
	IsValid   bool              `json:"is_valid"`
	Errors    []ValidationError `json:"errors"`
	Warnings  []ValidationError `json:"warnings"`
}

// ValidationSummary aggregates a whole batch run. ErrorCounts maps each rule
// identifier to how many times it fired across every record in the batch.
type ValidationSummary struct {
	TotalInvoices       int            `json:"total_invoices"`
	ValidInvoices       int            `json:"valid_invoices"`
	InvalidInvoices     int            `json:"invalid_invoices"`
	ErrorCounts         map[string]int `json:"error_counts"`
	ValidationTimestamp time.Time      `json:"validation_timestamp"`
}

// BatchReport bundles the per-invoice results with the batch summary. This
// is the shape written to report files and returned by the API.
type BatchReport struct {
	Results []ValidationResult `json:"results"`
	Summary ValidationSummary  `json:"summary"`
}
