// Package models defines the invoice record schema shared by extraction,
// validation and the API, plus the validation result types.
//
// Construction is deliberately permissive: extraction may produce partially
// populated records (empty parties, zero totals) and those must still
// construct so the rule engine can report them. Only the hard invariants
// fail construction: negative totals, an unrecognized currency code, or a
// date value that cannot be parsed into a calendar date.
package models

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Currency is a supported invoice currency code.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyINR Currency = "INR"
)

// Currencies lists all supported currency codes.
var Currencies = []Currency{CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyINR}

// Valid reports whether c is one of the supported currency codes.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyINR:
		return true
	}
	return false
}

// dateLayout is the ISO calendar date format used on the wire.
const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals to and from
// ISO "YYYY-MM-DD" JSON strings; any other shape is a construction error.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the ISO form, or the empty string for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON emits the ISO form; the zero Date marshals as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON accepts an ISO date string, null, or "" (treated as absent).
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysUntil returns the whole number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// LineItem is a single line on an invoice.
type LineItem struct {
	Description string   `json:"description"`        // what was sold
	Quantity    float64  `json:"quantity"`           // units
	UnitPrice   float64  `json:"unit_price"`         // price per unit
	LineTotal   float64  `json:"line_total"`         // quantity * unit_price
	TaxRate     *float64 `json:"tax_rate,omitempty"` // optional % tax for this line
}

// Invoice is the main invoice record used across extraction, validation and
// the API. JSON tags define the serialized interchange contract.
type Invoice struct {
	// Identifiers
	InvoiceNumber     string `json:"invoice_number"`
	ExternalReference string `json:"external_reference,omitempty"`

	// Parties
	SellerName    string `json:"seller_name"`
	SellerAddress string `json:"seller_address,omitempty"`
	SellerTaxID   string `json:"seller_tax_id,omitempty"`
	BuyerName     string `json:"buyer_name"`
	BuyerAddress  string `json:"buyer_address,omitempty"`
	BuyerTaxID    string `json:"buyer_tax_id,omitempty"`

	// Dates
	InvoiceDate Date  `json:"invoice_date"`
	DueDate     *Date `json:"due_date,omitempty"`

	// Financial details. Totals must be non-negative at construction time;
	// everything softer (sums, gross = net + tax) is left to the rule engine.
	Currency   Currency `json:"currency" validate:"omitempty,oneof=EUR USD GBP INR"`
	NetTotal   float64  `json:"net_total" validate:"gte=0"`
	TaxAmount  float64  `json:"tax_amount" validate:"gte=0"`
	GrossTotal float64  `json:"gross_total" validate:"gte=0"`

	// Line items
	LineItems []LineItem `json:"line_items"`

	// Extra metadata
	PaymentTerms string `json:"payment_terms,omitempty"`
	Notes        string `json:"notes,omitempty"`

	// Extraction metadata (filled by the extractor)
	SourceFile  string    `json:"source_file,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

var validate = validator.New()

// Normalize applies construction defaults: currency falls back to EUR and
// extracted_at to the current time when absent.
func (inv *Invoice) Normalize() {
	if inv.Currency == "" {
		inv.Currency = CurrencyEUR
	}
	if inv.ExtractedAt.IsZero() {
		inv.ExtractedAt = time.Now().UTC()
	}
}

// Validate enforces the hard construction invariants. A record failing here
// is rejected before it ever reaches the rule engine; the caller decides
// whether to skip it, log it, or abort the batch.
func (inv *Invoice) Validate() error {
	return validate.Struct(inv)
}

// DecodeInvoices reads a JSON list of invoices, applies construction
// defaults and enforces the hard invariants on every record. The first
// record that fails construction aborts the decode.
func DecodeInvoices(r io.Reader) ([]*Invoice, error) {
	var invoices []*Invoice
	if err := json.NewDecoder(r).Decode(&invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoice list: %w", err)
	}

	for i, inv := range invoices {
		if inv == nil {
			return nil, fmt.Errorf("invoice %d is null", i)
		}
		inv.Normalize()
		if err := inv.Validate(); err != nil {
			return nil, fmt.Errorf("invoice %d (%s) failed construction: %w", i, inv.InvoiceNumber, err)
		}
	}

	return invoices, nil
}
