// Package document extracts plain text from uploaded resume documents.
package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/jonathan/resume-analyzer/internal/ingestion"
)

// pdftotextTimeout bounds the external extractor.
const pdftotextTimeout = 30 * time.Second

var pdfMagic = []byte("%PDF-")

// ExtractionError reports bytes that are not a readable document or contain no text.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Failed to parse PDF: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("Failed to parse PDF: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ExtractText returns the cleaned text of every page in a PDF document.
// It tries the in-process reader first, then falls back to pdftotext (poppler-utils).
func ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionError{Message: "document is empty"}
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", &ExtractionError{Message: "not a PDF document"}
	}

	text, err := extractWithReader(data)
	if err != nil || strings.TrimSpace(text) == "" {
		if fallback, ferr := extractWithPdftotext(ctx, data); ferr == nil && strings.TrimSpace(fallback) != "" {
			text, err = fallback, nil
		}
	}
	if err != nil {
		return "", &ExtractionError{Message: "unreadable document", Cause: err}
	}

	text = ingestion.CleanText(text)
	if text == "" {
		return "", &ExtractionError{Message: "no extractable text"}
	}
	return text, nil
}

// extractWithReader uses github.com/ledongthuc/pdf. The reader panics on some
// malformed inputs, so panics are converted to errors.
func extractWithReader(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

// extractWithPdftotext shells out to pdftotext with the document in a temp file.
func extractWithPdftotext(ctx context.Context, data []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "resume-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pdftotextTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext command failed: %w", err)
	}
	return string(output), nil
}
