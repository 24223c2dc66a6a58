package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name    string
		dataset Dataset
		wantErr bool
	}{
		{
			name:    "missing identifier",
			dataset: Dataset{Title: "A dataset"},
			wantErr: true,
		},
		{
			name:    "missing title",
			dataset: Dataset{Identifier: "ds-1"},
			wantErr: true,
		},
		{
			name:    "valid minimal",
			dataset: Dataset{Identifier: "ds-1", Title: "A dataset"},
			wantErr: false,
		},
		{
			name: "invalid bounding box propagates",
			dataset: Dataset{
				Identifier:  "ds-1",
				Title:       "A dataset",
				BoundingBox: &BoundingBox{West: -200, East: 10, South: -10, North: 10},
			},
			wantErr: true,
		},
		{
			name: "invalid temporal extent propagates",
			dataset: Dataset{
				Identifier:     "ds-1",
				Title:          "A dataset",
				TemporalExtent: &TemporalExtent{Start: "2020-01-01", End: "2019-01-01"},
			},
			wantErr: true,
		},
		{
			name: "responsible party without name or org",
			dataset: Dataset{
				Identifier:         "ds-1",
				Title:              "A dataset",
				ResponsibleParties: []ResponsibleParty{{Role: RoleOwner}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dataset.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundingBoxValidateAllowsAntimeridianCrossing(t *testing.T) {
	// East < West is a legal antimeridian crossing, not a validation error.
	box := BoundingBox{West: 170, East: -170, South: -10, North: 10}
	assert.NoError(t, box.Validate())
}

func TestDedupeKeywordsPreservesFirstSeenOrder(t *testing.T) {
	got := DedupeKeywords([]string{"soil", "water", "soil", "", "climate", "water"})
	assert.Equal(t, []string{"soil", "water", "climate"}, got)
}

func TestEmbeddingText(t *testing.T) {
	d := Dataset{Title: "Soil Moisture", Abstract: "Daily soil moisture readings."}
	assert.Equal(t, "Soil Moisture\n\nDaily soil moisture readings.", d.EmbeddingText())
}

func TestDefaultAccessLevel(t *testing.T) {
	assert.Equal(t, AccessPublic, DefaultAccessLevel(""))
	assert.Equal(t, AccessRestricted, DefaultAccessLevel(AccessRestricted))
}

func TestRoleFromStringFallsBackToOther(t *testing.T) {
	assert.Equal(t, RoleOwner, RoleFromString("owner"))
	assert.Equal(t, RoleOther, RoleFromString("unknown-role"))
}

func TestIsKnownTopicCategory(t *testing.T) {
	assert.True(t, IsKnownTopicCategory("oceans"))
	assert.False(t, IsKnownTopicCategory("not-a-real-category"))
}
