package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file containing invoices",
	Long: `Load a JSON list of invoice records, run the full rule pipeline over the
batch and write a validation report.

Records that violate a hard construction invariant (negative totals,
unknown currency, malformed date) abort the run; every softer data-quality
problem is collected per invoice and reported, never thrown.

Exits non-zero when any invoice fails validation.`,
	Example: `  # Validate extracted invoices and write the default report
  invoiceqc validate --input invoices.json

  # Choose the report location
  invoiceqc validate --input invoices.json --report report.json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("input", "i", "", "JSON file with invoice data")
	validateCmd.Flags().String("report", "validation_report.json", "Where to write the validation report")
	_ = validateCmd.MarkFlagRequired("input")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate")

	input, _ := cmd.Flags().GetString("input")
	reportPath, _ := cmd.Flags().GetString("report")

	f, err := os.Open(input)
	if err != nil {
		log.Error().Err(err).Str("input", input).Msg("Failed to open input file")
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	invoices, err := models.DecodeInvoices(f)
	if err != nil {
		log.Error().Err(err).Str("input", input).Msg("Invoice construction failed")
		return err
	}

	log.Info().
		Int("invoices", len(invoices)).
		Str("input", input).
		Msg("Validating invoices")

	validator := invoice.NewValidator()
	report := validator.ValidateBatch(invoices)

	printReport(report)

	if err := writeJSONFile(reportPath, report); err != nil {
		return err
	}
	fmt.Printf("\nReport saved to %s\n", reportPath)

	if report.Summary.InvalidInvoices > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d of %d invoices failed validation",
			report.Summary.InvalidInvoices, report.Summary.TotalInvoices)
	}
	return nil
}
