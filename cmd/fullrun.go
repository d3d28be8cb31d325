package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
)

var fullRunCmd = &cobra.Command{
	Use:   "full-run",
	Short: "Extract from PDFs and validate in one go",
	Long: `Run the full pipeline in one command: extract every *.pdf in a directory
into structured invoice records, then validate the whole batch and write
the validation report.

Exits non-zero when any invoice fails validation.`,
	Example: `  # Extract and validate a folder of invoices
  invoiceqc full-run --pdf-dir ./pdfs --report report.json

  # Also keep the intermediate extracted JSON next to the report
  invoiceqc full-run --pdf-dir ./pdfs --report report.json --save-extracted`,
	RunE: runFullRun,
}

func init() {
	rootCmd.AddCommand(fullRunCmd)

	fullRunCmd.Flags().String("pdf-dir", "", "Directory containing PDF files")
	fullRunCmd.Flags().String("report", "validation_report.json", "Where to save the validation report")
	fullRunCmd.Flags().Bool("save-extracted", false, "Also save extracted JSON next to the report")
	_ = fullRunCmd.MarkFlagRequired("pdf-dir")
}

func runFullRun(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("full-run")

	pdfDir, _ := cmd.Flags().GetString("pdf-dir")
	reportPath, _ := cmd.Flags().GetString("report")
	saveExtracted, _ := cmd.Flags().GetBool("save-extracted")

	log.Info().
		Str("pdf_dir", pdfDir).
		Str("report", reportPath).
		Msg("Starting full run")

	svc := invoice.NewService()
	invoices, report, err := svc.ExtractAndValidate(pdfDir)
	if err != nil {
		log.Error().Err(err).Str("pdf_dir", pdfDir).Msg("Full run failed")
		return err
	}

	fmt.Printf("Extracted %d invoices\n\n", len(invoices))

	if saveExtracted {
		extractedPath := filepath.Join(filepath.Dir(reportPath), "extracted_invoices.json")
		if err := writeJSONFile(extractedPath, invoices); err != nil {
			return err
		}
		fmt.Printf("Saved extracted data to %s\n\n", extractedPath)
	}

	printReport(report)

	if err := writeJSONFile(reportPath, report); err != nil {
		return err
	}
	fmt.Printf("\nValidation report saved to %s\n", reportPath)

	if report.Summary.InvalidInvoices > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d of %d invoices failed validation",
			report.Summary.InvalidInvoices, report.Summary.TotalInvoices)
	}
	return nil
}
