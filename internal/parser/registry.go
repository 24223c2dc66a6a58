// Package parser dispatches raw catalogue content to a format-specific
// parser producing the canonical models.Dataset.
package parser

import (
	"fmt"
	"strings"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// Registry holds the known parsers and selects among them.
type Registry struct {
	parsers []interfaces.Parser
}

// NewRegistry returns a registry pre-populated with the JSON and XML
// catalogue parsers.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []interfaces.Parser{
			NewJSONParser(),
			NewXMLParser(),
		},
	}
}

// Register appends an additional parser, tried after the built-ins when
// selecting by format name or content type; content sniffing only
// chooses between the built-in JSON and XML parsers.
func (r *Registry) Register(p interfaces.Parser) {
	r.parsers = append(r.parsers, p)
}

// Parse dispatches content to a parser, selected in order: explicit
// formatName, then contentType hint, then content sniffing ('{'/'[' for
// JSON, '<' for XML).
func (r *Registry) Parse(content []byte, formatName, contentType string) (*models.Dataset, error) {
	if formatName != "" {
		for _, p := range r.parsers {
			if p.FormatName() == formatName {
				return p.Parse(content)
			}
		}
		return nil, fmt.Errorf("%w: unknown format %q", dcerrors.ErrParse, formatName)
	}

	if contentType != "" {
		for _, p := range r.parsers {
			if p.CanParse(contentType) {
				return p.Parse(content)
			}
		}
	}

	p := r.sniff(content)
	if p == nil {
		return nil, fmt.Errorf("%w: could not determine format for content", dcerrors.ErrParse)
	}
	return p.Parse(content)
}

// sniff picks a parser by leading byte: '{' or '[' for JSON, '<' for XML.
func (r *Registry) sniff(content []byte) interfaces.Parser {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil
	}
	switch trimmed[0] {
	case '{', '[':
		return r.byFormat("catalogue-json")
	case '<':
		return r.byFormat("iso19115-xml")
	}
	return nil
}

func (r *Registry) byFormat(name string) interfaces.Parser {
	for _, p := range r.parsers {
		if p.FormatName() == name {
			return p
		}
	}
	return nil
}
