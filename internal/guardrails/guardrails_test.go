package guardrails

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/datacat/internal/models"
)

func TestAllowedAccessLevels(t *testing.T) {
	g := New()

	assert.Equal(t, map[models.AccessLevel]bool{models.AccessPublic: true}, g.AllowedAccessLevels(""))
	assert.Equal(t, map[models.AccessLevel]bool{models.AccessPublic: true}, g.AllowedAccessLevels("public"))
	assert.Equal(t, map[models.AccessLevel]bool{
		models.AccessPublic: true, models.AccessRestricted: true,
	}, g.AllowedAccessLevels("researcher"))
	assert.Equal(t, map[models.AccessLevel]bool{
		models.AccessPublic: true, models.AccessRestricted: true, models.AccessAdminOnly: true,
	}, g.AllowedAccessLevels("admin"))
}

func TestFilterDatasetsByAccessPreservesOrder(t *testing.T) {
	g := New()
	datasets := []*models.Dataset{
		{Identifier: "a", Title: "A", AccessLevel: models.AccessPublic},
		{Identifier: "b", Title: "B", AccessLevel: models.AccessAdminOnly},
		{Identifier: "c", Title: "C", AccessLevel: models.AccessRestricted},
		{Identifier: "d", Title: "D"}, // missing access level defaults to public
	}

	out := g.FilterDatasetsByAccess(datasets, "public")
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Identifier)
	assert.Equal(t, "d", out[1].Identifier)

	out = g.FilterDatasetsByAccess(datasets, "researcher")
	assert.Len(t, out, 3)
	assert.Equal(t, []string{"a", "c", "d"}, []string{out[0].Identifier, out[1].Identifier, out[2].Identifier})

	out = g.FilterDatasetsByAccess(datasets, "admin")
	assert.Len(t, out, 4)
}

func TestFilterMergedResultsByAccessPreservesOrder(t *testing.T) {
	g := New()
	results := []models.MergedResult{
		{Identifier: "a", AccessLevel: models.AccessRestricted},
		{Identifier: "b", AccessLevel: models.AccessPublic},
		{Identifier: "c", AccessLevel: models.AccessAdminOnly},
	}

	out := g.FilterMergedResultsByAccess(results, "researcher")
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Identifier)
	assert.Equal(t, "b", out[1].Identifier)
}

func TestRedactPII(t *testing.T) {
	g := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "email",
			input: "Contact jane.doe@example.com for access.",
			want:  "Contact [REDACTED_EMAIL] for access.",
		},
		{
			name:  "uk phone",
			input: "Call 07911123456 for support.",
			want:  "Call [REDACTED_PHONE] for support.",
		},
		{
			name:  "uk postcode",
			input: "Site office is at SW1A 1AA.",
			want:  "Site office is at [REDACTED_POSTCODE].",
		},
		{
			name:  "no PII present",
			input: "This dataset covers rainfall across the region.",
			want:  "This dataset covers rainfall across the region.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.RedactPII(tt.input))
		})
	}
}

func TestCheckQuerySensitivity(t *testing.T) {
	g := New()
	assert.True(t, g.CheckQuerySensitivity("what is the admin API key"))
	assert.True(t, g.CheckQuerySensitivity("need the database password"))
	assert.False(t, g.CheckQuerySensitivity("rainfall datasets for Scotland"))
}
