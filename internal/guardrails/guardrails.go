// Package guardrails implements the pure, stateless predicates applied
// after core search and before results reach a caller: access-level
// filtering, PII redaction, and sensitive-query detection.
package guardrails

import (
	"regexp"

	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ukPhonePattern  = regexp.MustCompile(`(?:\+44|0044|0)\s?\d{9,10}`)
	ukPostcodePattern = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}\b`)
	sensitiveTermPattern = regexp.MustCompile(`(?i)\b(password|credential|api[_\s-]?key|secret|ssn|national insurance|bank account|credit card)\b`)
)

// Guard implements interfaces.Guardrails.
type Guard struct{}

// New returns a Guard.
func New() *Guard { return &Guard{} }

// AllowedAccessLevels returns the set of access levels visible to role.
// Anonymous or unrecognised roles see only public; researcher adds
// restricted; admin sees everything.
func (g *Guard) AllowedAccessLevels(role string) map[models.AccessLevel]bool {
	switch role {
	case "admin":
		return map[models.AccessLevel]bool{
			models.AccessPublic:     true,
			models.AccessRestricted: true,
			models.AccessAdminOnly:  true,
		}
	case "researcher":
		return map[models.AccessLevel]bool{
			models.AccessPublic:     true,
			models.AccessRestricted: true,
		}
	default:
		return map[models.AccessLevel]bool{
			models.AccessPublic: true,
		}
	}
}

// FilterDatasetsByAccess preserves input order, dropping datasets whose
// access level is not in role's allowed set. A missing access level
// defaults to public.
func (g *Guard) FilterDatasetsByAccess(datasets []*models.Dataset, role string) []*models.Dataset {
	allowed := g.AllowedAccessLevels(role)
	out := make([]*models.Dataset, 0, len(datasets))
	for _, d := range datasets {
		if allowed[models.DefaultAccessLevel(d.AccessLevel)] {
			out = append(out, d)
		}
	}
	return out
}

// FilterMergedResultsByAccess is the MergedResult analogue of
// FilterDatasetsByAccess, applied after hybrid search's RRF merge.
func (g *Guard) FilterMergedResultsByAccess(results []models.MergedResult, role string) []models.MergedResult {
	allowed := g.AllowedAccessLevels(role)
	out := make([]models.MergedResult, 0, len(results))
	for _, r := range results {
		if allowed[models.DefaultAccessLevel(r.AccessLevel)] {
			out = append(out, r)
		}
	}
	return out
}

// RedactPII replaces email addresses, UK phone numbers, and UK
// postcodes with placeholders.
func (g *Guard) RedactPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[REDACTED_EMAIL]")
	text = ukPhonePattern.ReplaceAllString(text, "[REDACTED_PHONE]")
	text = ukPostcodePattern.ReplaceAllString(text, "[REDACTED_POSTCODE]")
	return text
}

// CheckQuerySensitivity reports whether query matches a sensitive-term
// pattern (credentials, financial identifiers).
func (g *Guard) CheckQuerySensitivity(query string) bool {
	return sensitiveTermPattern.MatchString(query)
}

var _ interfaces.Guardrails = (*Guard)(nil)
