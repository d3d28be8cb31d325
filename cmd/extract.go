package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract invoice data from all PDFs in a directory and save as JSON",
	Long: `Read every *.pdf in a directory, scrape invoice fields and line items
from the page text, and write the structured records as a JSON list.

Extraction is best-effort: fields that cannot be recovered are defaulted
(unknown totals become zero) so every readable document yields a record
that can be validated later.`,
	Example: `  # Extract a folder of invoices to the default output file
  invoiceqc extract --pdf-dir ./pdfs

  # Choose the output location
  invoiceqc extract --pdf-dir ./pdfs --output invoices.json`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("pdf-dir", "", "Directory containing PDF files")
	extractCmd.Flags().StringP("output", "o", "extracted_invoices.json", "Where to write the extracted JSON")
	_ = extractCmd.MarkFlagRequired("pdf-dir")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	pdfDir, _ := cmd.Flags().GetString("pdf-dir")
	output, _ := cmd.Flags().GetString("output")

	log.Info().
		Str("pdf_dir", pdfDir).
		Str("output", output).
		Msg("Starting extraction")

	extractor := invoice.NewExtractor()
	invoices, err := extractor.ExtractDirectory(pdfDir)
	if err != nil {
		log.Error().Err(err).Str("pdf_dir", pdfDir).Msg("Extraction failed")
		return err
	}

	if err := writeJSONFile(output, invoices); err != nil {
		return err
	}

	log.Info().
		Int("invoices", len(invoices)).
		Str("output", output).
		Msg("Extraction completed")
	fmt.Printf("Extracted %d invoices -> %s\n", len(invoices), output)

	return nil
}
