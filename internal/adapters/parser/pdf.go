// Package parser provides document parsing adapters.
// Each parser implements ports.DocumentParser; Registry dispatches by extension.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// PDFParser extracts page text from PDF bytes in process.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts text from PDF bytes. Every page becomes its own paragraph:
// pages are normalized to a single line and separated by a blank line.
// Pages that fail extraction are skipped; if all of them fail the document is
// unreadable.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s: %v", entities.ErrDocumentUnreadable, filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", entities.ErrDocumentUnreadable, filename, err)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	failed := 0
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			log.Printf("[WARN] Skipping missing page %d of %s", i, filename)
			failed++
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("[WARN] Skipping page %d of %s: %v", i, filename, err)
			failed++
			continue
		}

		sb.WriteString(NormalizePage(raw))
		sb.WriteString("\n\n")
	}

	if failed > 0 && failed == pages {
		return "", fmt.Errorf("%w: %s: none of %d pages could be extracted", entities.ErrDocumentUnreadable, filename, pages)
	}
	log.Printf("[DEBUG] Extracted %d of %d pages from %s", pages-failed, pages, filename)
	return sb.String(), nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// NormalizePage flattens extracted page text onto one line. Line breaks,
// tabs, and table pipes become spaces and runs of spaces collapse to one.
func NormalizePage(raw string) string {
	raw = strings.NewReplacer("|", " ", "\t", " ", "\r", " ", "\n", " ").Replace(raw)
	return strings.Join(strings.Fields(raw), " ")
}
