// Package invoice implements the invoice QC core: heuristic PDF extraction
// and the business-rule validation engine.
//
// Extraction is best-effort regex scraping of PDF text. It may produce
// partially populated records with defaulted values; those still construct
// and are routed through validation so data-quality problems surface as
// rule failures in the report instead of being dropped.
//
// Validation runs a fixed ordered pipeline of checks per invoice plus
// batch-level duplicate detection, and aggregates a batch summary. The rule
// identifier strings emitted in results are a stable contract for report
// consumers.
package invoice

import (
	"github.com/rs/zerolog"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

// PDFExtractor supplies Invoice records scraped from PDF documents.
type PDFExtractor interface {
	// Extract reads one PDF into a best-effort Invoice record.
	Extract(pdfPath string) (*models.Invoice, error)

	// ExtractDirectory extracts every *.pdf in a directory, skipping
	// files that fail.
	ExtractDirectory(dir string) ([]*models.Invoice, error)
}

// Service wires extraction and validation together for the CLI and HTTP
// front ends. Extraction I/O completes before any invoice reaches the
// validator, which is pure in-memory computation.
type Service struct {
	extractor PDFExtractor
	validator *Validator
	log       zerolog.Logger
}

// NewService creates a Service with the default extractor and validator.
func NewService() *Service {
	log := logger.WithComponent("invoice-service")
	return &Service{
		extractor: NewExtractorWithLogger(log),
		validator: NewValidatorWithLogger(log),
		log:       log,
	}
}

// NewServiceWith creates a Service from explicit collaborators.
func NewServiceWith(extractor PDFExtractor, validator *Validator, log zerolog.Logger) *Service {
	return &Service{extractor: extractor, validator: validator, log: log}
}

// Extractor exposes the extraction collaborator.
func (s *Service) Extractor() PDFExtractor {
	return s.extractor
}

// Validate runs batch validation over already-materialized invoices.
func (s *Service) Validate(invoices []*models.Invoice) *models.BatchReport {
	return s.validator.ValidateBatch(invoices)
}

// ExtractAndValidate runs the full pipeline over a directory of PDFs:
// extract every invoice, then validate the batch.
func (s *Service) ExtractAndValidate(pdfDir string) ([]*models.Invoice, *models.BatchReport, error) {
	invoices, err := s.extractor.ExtractDirectory(pdfDir)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("dir", pdfDir).
		Int("extracted", len(invoices)).
		Msg("Extraction completed, starting validation")

	report := s.validator.ValidateBatch(invoices)
	return invoices, report, nil
}
