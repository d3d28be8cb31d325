package invoice

import (
	"errors"
	"fmt"
)

// MaxDocumentSizeBytes is the largest PDF the extractor will accept (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Common extraction errors
var (
	// ErrInvalidPDF is returned when the file is not a readable PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrEmptyDocument is returned when the PDF contains no extractable text.
	ErrEmptyDocument = errors.New("PDF document contains no text")

	// ErrDocumentTooLarge is returned when the PDF exceeds MaxDocumentSizeBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrNotADirectory is returned when a directory extraction target is
	// missing or not a directory.
	ErrNotADirectory = errors.New("extraction source is not a directory")
)

// ExtractionError wraps errors with context about an extraction failure.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "ReadText").
	Op string

	// SourceFile is the PDF being processed when the failure occurred.
	SourceFile string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.SourceFile != "" {
		return fmt.Sprintf("extract: %s failed for %s: %v", e.Op, e.SourceFile, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps err as an ExtractionError unless it already is one.
func WrapExtractionError(op, sourceFile string, err error) error {
	if err == nil {
		return nil
	}
	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err
	}
	return &ExtractionError{Op: op, SourceFile: sourceFile, Err: err}
}
