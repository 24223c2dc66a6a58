package interfaces

import "github.com/ternarybob/datacat/internal/models"

// Parser maps raw catalogue content in one format to the canonical
// Dataset model.
type Parser interface {
	FormatName() string
	SupportedContentTypes() []string
	CanParse(contentType string) bool
	Parse(content []byte) (*models.Dataset, error)
}
