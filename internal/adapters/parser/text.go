package parser

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextParser decodes plain text and markdown documents.
type TextParser struct{}

// NewTextParser creates a new text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse decodes data as UTF-8, dropping a leading byte order mark.
func (p *TextParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", entities.ErrDocumentUnreadable, filename)
	}
	return string(data), nil
}

// SupportedFormats returns formats this parser handles.
func (p *TextParser) SupportedFormats() []string {
	return []string{"txt", "md", "markdown"}
}
