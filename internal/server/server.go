// Package server exposes the invoice QC pipeline over HTTP. It is a thin
// adapter: requests are materialized into Invoice records and handed to the
// core synchronously; all rule evaluation happens in internal/invoice.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoiceqc/internal/config"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

const serviceName = "invoice-qc"
const serviceVersion = "1.0.0"

// Server is the HTTP front end for JSON validation and PDF upload runs.
type Server struct {
	app *fiber.App
	svc *invoice.Service
	cfg *config.Config
	log zerolog.Logger
}

// New builds the Fiber app with middleware and routes registered.
func New(cfg *config.Config, svc *invoice.Service) *Server {
	s := &Server{
		svc: svc,
		cfg: cfg,
		log: logger.WithComponent("server"),
	}

	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ErrorHandler: s.errorHandler,
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(s.requestLogger)

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/validate-json", s.handleValidateJSON)
	app.Post("/extract-and-validate-pdfs", s.handleExtractAndValidatePDFs)

	s.app = app
	return s
}

// Listen serves until the listener fails or is closed.
func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("Starting HTTP server")
	return s.app.Listen(s.cfg.ListenAddr)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("X-Request-ID", requestID)

	start := time.Now()
	err := c.Next()

	reqLog := logger.WithRequestID(requestID)
	reqLog.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Request handled")

	return err
}

// errorHandler centralizes error responses and keeps messages sanitized.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// Construction failures (hard record invariants) map to 422 with
	// per-field detail.
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, f := range ve {
			fields[f.Field()] = f.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "invoice failed construction",
			"errors":  fields,
		})
	}

	s.log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": fiber.Map{
			"health":               "/health",
			"validate_json":        "/validate-json",
			"extract_and_validate": "/extract-and-validate-pdfs",
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleValidateJSON validates a JSON list of already-structured invoices.
// Response body: {"results": [...], "summary": {...}}.
func (s *Server) handleValidateJSON(c *fiber.Ctx) error {
	invoices, err := models.DecodeInvoices(bytes.NewReader(c.Body()))
	if err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return err // 422 via errorHandler
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report := s.svc.Validate(invoices)
	return c.JSON(report)
}

// handleExtractAndValidatePDFs accepts multipart PDF uploads under the
// "files" field, extracts each into an Invoice and validates the batch.
func (s *Server) handleExtractAndValidatePDFs(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files uploaded")
	}
	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("invalid file type for %s, only PDF files are accepted", fh.Filename))
		}
	}

	tmpDir, err := os.MkdirTemp("", "invoiceqc-upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	invoices := make([]*models.Invoice, 0, len(files))
	for _, fh := range files {
		dest := filepath.Join(tmpDir, filepath.Base(fh.Filename))
		if err := c.SaveFile(fh, dest); err != nil {
			return fmt.Errorf("failed to save upload %s: %w", fh.Filename, err)
		}

		inv, err := s.svc.Extractor().Extract(dest)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity,
				fmt.Sprintf("failed to extract %s: %v", fh.Filename, err))
		}
		// Point traceability at the uploaded name, not the temp path.
		inv.SourceFile = fh.Filename
		invoices = append(invoices, inv)
	}

	report := s.svc.Validate(invoices)
	return c.JSON(fiber.Map{
		"extracted": invoices,
		"results":   report.Results,
		"summary":   report.Summary,
	})
}
