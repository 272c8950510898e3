package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// Registry combines multiple parsers and picks one by file extension.
type Registry struct {
	parsers map[string]ports.DocumentParser
}

// NewRegistry creates a registry over parsers. A later parser wins when two
// claim the same format.
func NewRegistry(parsers ...ports.DocumentParser) *Registry {
	r := &Registry{parsers: make(map[string]ports.DocumentParser)}
	for _, p := range parsers {
		for _, format := range p.SupportedFormats() {
			r.parsers[strings.ToLower(format)] = p
		}
	}
	return r
}

// NewDefaultRegistry handles text, markdown, and PDF.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewTextParser(), NewPDFParser())
}

// Parse dispatches to the parser registered for the filename's extension.
func (r *Registry) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	p, ok := r.parsers[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", entities.ErrUnsupportedFormat, filename)
	}
	return p.Parse(ctx, data, filename)
}

// SupportedFormats returns all registered formats, sorted.
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
