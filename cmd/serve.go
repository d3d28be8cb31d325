package cmd

import (
	"github.com/spf13/cobra"
	"invoiceqc/internal/config"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the invoice QC HTTP API",
	Long: `Start the HTTP server exposing JSON validation and PDF upload endpoints:

  GET  /health                      health check
  POST /validate-json               validate already-structured invoice JSON
  POST /extract-and-validate-pdfs   upload PDFs, extract and validate

The listen address defaults to LISTEN_ADDR (":8080") and can be overridden
with --addr.`,
	Example: `  # Serve on the default address
  invoiceqc serve

  # Serve on a specific port
  invoiceqc serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ListenAddr = addr
	}

	srv := server.New(cfg, invoice.NewService())
	return srv.Listen()
}
