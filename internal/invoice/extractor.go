package invoice

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

// fieldPatterns are the label patterns looked for in the flattened PDF text.
// Group 2 captures the value. English and German labels are covered.
var fieldPatterns = map[string]*regexp.Regexp{
	"invoice_number": regexp.MustCompile(`(?i)(Invoice Number|Invoice No\.?|Rechnung\s*Nr\.?)[:\s]+([\w\-/]+)`),
	"invoice_date":   regexp.MustCompile(`(?i)(Invoice Date|Rechnungsdatum)[:\s]+([\d.\-/]+)`),
	"due_date":       regexp.MustCompile(`(?i)(Due Date|Faelligkeitsdatum)[:\s]+([\d.\-/]+)`),
	"net_total":      regexp.MustCompile(`(?i)(Net Total|Netto)[:\s]+([\d.,]+)`),
	"tax_amount":     regexp.MustCompile(`(?i)(Tax Amount|MwSt)[:\s]+([\d.,]+)`),
	"gross_total":    regexp.MustCompile(`(?i)(Total|Gesamtbetrag|Brutto)[:\s]+([\d.,]+)`),
	"seller_name":    regexp.MustCompile(`(?i)(From|Seller|Lieferant)[:\s]+(.+)`),
	"buyer_name":     regexp.MustCompile(`(?i)(To|Buyer|Kunde)[:\s]+(.+)`),
}

// lineItemRow matches a table-like row of "description qty price total".
var lineItemRow = regexp.MustCompile(`^(\pL.*\S)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)$`)

// lineItemHeader filters out table header rows.
var lineItemHeader = regexp.MustCompile(`(?i)\b(description|quantity|qty|price|total|beschreibung|menge|preis)\b`)

// dateLayouts are the date formats commonly found on invoices.
var dateLayouts = []string{"02.01.2006", "2006-01-02", "02-01-2006", "01/02/2006"}

// Extractor turns PDF invoices into structured Invoice records.
//
// The extraction is intentionally lightweight: read the PDF text row by row,
// pull out labeled fields by regex and detect line item rows heuristically.
// Fields that cannot be recovered are defaulted, so the produced record
// always constructs and can be routed to validation.
type Extractor struct {
	log zerolog.Logger
	now func() time.Time
}

// NewExtractor creates an extractor using the default component logger.
func NewExtractor() *Extractor {
	return NewExtractorWithLogger(logger.WithComponent("extractor"))
}

// NewExtractorWithLogger creates an extractor emitting logs through log.
func NewExtractorWithLogger(log zerolog.Logger) *Extractor {
	return &Extractor{log: log, now: time.Now}
}

// Extract reads one PDF and returns a best-effort Invoice. Unrecoverable
// fields are left at their defaults; only an unreadable PDF is an error.
func (e *Extractor) Extract(pdfPath string) (*models.Invoice, error) {
	const op = "Extract"

	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, WrapExtractionError(op, pdfPath, err)
	}
	if info.Size() > MaxDocumentSizeBytes {
		return nil, WrapExtractionError(op, pdfPath, ErrDocumentTooLarge)
	}

	text, err := e.readText(pdfPath)
	if err != nil {
		return nil, WrapExtractionError(op, pdfPath, err)
	}
	if strings.TrimSpace(text) == "" {
		e.log.Warn().Str("file", pdfPath).Msg("No text extracted from PDF")
	}

	inv := e.parseInvoice(text)
	inv.SourceFile = pdfPath
	inv.ExtractedAt = e.now().UTC()
	inv.Normalize()

	if err := inv.Validate(); err != nil {
		return nil, WrapExtractionError(op, pdfPath, err)
	}

	e.log.Info().
		Str("file", pdfPath).
		Str("invoice_number", inv.InvoiceNumber).
		Float64("gross_total", inv.GrossTotal).
		Int("line_items", len(inv.LineItems)).
		Msg("Invoice extracted")

	return inv, nil
}

// ExtractDirectory extracts every *.pdf in dir, in lexical order. Files that
// fail to extract are logged and skipped so one bad document never loses
// the rest of the batch.
func (e *Extractor) ExtractDirectory(dir string) ([]*models.Invoice, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, WrapExtractionError("ExtractDirectory", dir, ErrNotADirectory)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, WrapExtractionError("ExtractDirectory", dir, err)
	}
	sort.Strings(paths)

	invoices := make([]*models.Invoice, 0, len(paths))
	for _, path := range paths {
		inv, err := e.Extract(path)
		if err != nil {
			e.log.Error().Err(err).Str("file", path).Msg("Failed to extract invoice, skipping")
			continue
		}
		invoices = append(invoices, inv)
	}

	return invoices, nil
}

// readText flattens all page text of a PDF into newline-separated rows.
func (e *Extractor) readText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", WrapExtractionError("ReadText", path, ErrInvalidPDF)
	}
	defer f.Close()

	var b strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			e.log.Warn().Err(err).Int("page", pageNum).Str("file", path).Msg("Failed to read page text")
			continue
		}
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

// parseInvoice builds an Invoice from flattened PDF text.
func (e *Extractor) parseInvoice(text string) *models.Invoice {
	inv := &models.Invoice{
		Currency: models.CurrencyEUR, // extraction default
	}

	for field, pattern := range fieldPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		raw := strings.TrimSpace(match[2])

		switch field {
		case "invoice_number":
			inv.InvoiceNumber = raw
		case "seller_name":
			inv.SellerName = raw
		case "buyer_name":
			inv.BuyerName = raw
		case "invoice_date":
			if d, ok := e.parseDate(raw); ok {
				inv.InvoiceDate = d
			}
		case "due_date":
			if d, ok := e.parseDate(raw); ok {
				inv.DueDate = &d
			}
		case "net_total":
			inv.NetTotal = e.parseAmount(field, raw)
		case "tax_amount":
			inv.TaxAmount = e.parseAmount(field, raw)
		case "gross_total":
			inv.GrossTotal = e.parseAmount(field, raw)
		}
	}

	inv.LineItems = e.parseLineItems(text)
	return inv
}

// parseDate tries the common invoice date formats in order.
func (e *Extractor) parseDate(s string) (models.Date, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	e.log.Warn().Str("value", s).Msg("Could not parse date")
	return models.Date{}, false
}

// parseAmount converts common currency formats ("1,234.56", German
// "1.234,56", plain "1234.56") to a float. A value that cannot be parsed
// falls back to zero, which the validator then treats like any other zero.
func (e *Extractor) parseAmount(field, s string) float64 {
	cleaned := strings.ReplaceAll(s, " ", "")

	// German style 1.234,56 -> 1234.56
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") &&
		strings.Index(cleaned, ",") > strings.Index(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		e.log.Warn().Str("field", field).Str("value", s).Msg("Could not parse amount, defaulting to zero")
		return 0
	}
	return value
}

// parseLineItems detects table-like rows of "description qty price total".
// Best effort only; rows that do not parse cleanly are ignored.
func (e *Extractor) parseLineItems(text string) []models.LineItem {
	var items []models.LineItem

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		match := lineItemRow.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		desc := strings.TrimSpace(match[1])
		if strings.HasSuffix(desc, ":") || lineItemHeader.MatchString(desc) {
			continue
		}

		qty, ok1 := parseCellNumber(match[2])
		price, ok2 := parseCellNumber(match[3])
		total, ok3 := parseCellNumber(match[4])
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		items = append(items, models.LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   total,
		})
	}

	return items
}

// parseCellNumber parses a single table cell, accepting a comma decimal.
func parseCellNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
