package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoiceqc/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoiceqc",
	Short: "Invoice QC - extract and validate invoices from PDFs",
	Long: `Invoice QC extracts structured invoice data from PDF documents and runs
a fixed set of business-rule checks against it: field completeness,
arithmetic consistency, date ordering and duplicate detection.

Commands:
  extract    read PDFs from a folder and dump structured JSON
  validate   validate an existing JSON file of invoices
  full-run   extract and validate in one go
  serve      run the HTTP API`,
	Version: version,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
