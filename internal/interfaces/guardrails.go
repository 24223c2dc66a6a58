package interfaces

import "github.com/ternarybob/datacat/internal/models"

// Guardrails groups the pure, stateless predicates applied after core
// search and before results reach a caller: access-level filtering and
// PII redaction.
type Guardrails interface {
	AllowedAccessLevels(role string) map[models.AccessLevel]bool
	FilterDatasetsByAccess(datasets []*models.Dataset, role string) []*models.Dataset
	FilterMergedResultsByAccess(results []models.MergedResult, role string) []models.MergedResult
	RedactPII(text string) string
	CheckQuerySensitivity(query string) bool
}
