package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/models"
)

const minimalCatalogueJSON = `{
	"id": "ds-rainfall-001",
	"title": "South West Rainfall Gauge Network",
	"description": "Daily rainfall totals from gauges across the south west.",
	"keywordsOther": ["rainfall", {"value": "precipitation"}],
	"keywordsTheme": [{"value": "rainfall"}],
	"topicCategories": ["climatologyMeteorologyAtmosphere", "bogusCategory"],
	"boundingBoxes": [{"westBoundLongitude": -5.7, "eastBoundLongitude": -2.9, "southBoundLatitude": 50.0, "northBoundLatitude": 51.2}],
	"temporalExtents": [{"begin": "2010-01-01", "end": "2020-12-31"}],
	"responsibleParties": [
		{"givenName": "Jane", "familyName": "Doe", "organisationName": "Met Office", "role": "pointOfContact", "email": "jane.doe@example.com", "nameIdentifier": "https://orcid.org/0000-0001-2345-6789"},
		{"organisationName": "Regional Authority", "role": ""}
	],
	"onlineResources": [{"url": "https://data.example.com/ds-rainfall-001.csv", "name": "CSV download", "function": "download"}],
	"relationships": [{"target": "ds-rainfall-000", "relation": "isMemberOf", "url": "https://catalogue.example.com/id/ds-rainfall-000"}],
	"infoLinks": [{"url": "https://catalogue.example.com/docs/rainfall-qc.pdf", "name": "QC methodology"}]
}`

func TestJSONParserParsesFullRecord(t *testing.T) {
	p := NewJSONParser()
	d, err := p.Parse([]byte(minimalCatalogueJSON))
	require.NoError(t, err)

	assert.Equal(t, "ds-rainfall-001", d.Identifier)
	assert.Equal(t, "South West Rainfall Gauge Network", d.Title)
	assert.Equal(t, "catalogue-json", d.SourceFormat)
	assert.Equal(t, models.AccessPublic, d.AccessLevel)

	// "rainfall" appears in two keyword groups and must be deduped.
	assert.Equal(t, []string{"rainfall", "precipitation"}, d.Keywords)

	// Unknown topic category code is dropped.
	require.Len(t, d.TopicCategories, 1)
	assert.Equal(t, models.TopicCategory("climatologyMeteorologyAtmosphere"), d.TopicCategories[0])

	require.NotNil(t, d.BoundingBox)
	assert.InDelta(t, -5.7, d.BoundingBox.West, 0.0001)
	assert.InDelta(t, 51.2, d.BoundingBox.North, 0.0001)

	require.NotNil(t, d.TemporalExtent)
	assert.Equal(t, "2010-01-01", d.TemporalExtent.Start)
	assert.Equal(t, "2020-12-31", d.TemporalExtent.End)

	require.Len(t, d.ResponsibleParties, 2)
	assert.Equal(t, "Jane Doe", d.ResponsibleParties[0].Name)
	assert.Equal(t, "https://orcid.org/0000-0001-2345-6789", d.ResponsibleParties[0].ORCID)
	assert.Equal(t, models.RolePointOfContact, d.ResponsibleParties[0].Role)
	assert.Equal(t, "", d.ResponsibleParties[1].Name)
	assert.Equal(t, "Regional Authority", d.ResponsibleParties[1].Organisation)
	assert.Equal(t, models.RoleOther, d.ResponsibleParties[1].Role)

	require.Len(t, d.Distributions, 1)
	assert.Equal(t, "https://data.example.com/ds-rainfall-001.csv", d.Distributions[0].URL)

	require.Len(t, d.RelatedDocuments, 1)
	assert.Equal(t, models.RelationParent, d.RelatedDocuments[0].RelationshipType)

	require.Len(t, d.SupportingDocuments, 1)
	assert.Equal(t, "rainfall-qc.pdf", d.SupportingDocuments[0].Filename)

	assert.NoError(t, d.Validate())
}

func TestJSONParserMissingIdentifierIsParseError(t *testing.T) {
	p := NewJSONParser()
	_, err := p.Parse([]byte(`{"title": "No ID Dataset"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestJSONParserMissingTitleIsParseError(t *testing.T) {
	p := NewJSONParser()
	_, err := p.Parse([]byte(`{"id": "ds-no-title"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestJSONParserInvalidJSONIsParseError(t *testing.T) {
	p := NewJSONParser()
	_, err := p.Parse([]byte(`not json at all`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestJSONParserMissingBoundingBoxAndTemporalExtentAreOptional(t *testing.T) {
	p := NewJSONParser()
	d, err := p.Parse([]byte(`{"id": "ds-minimal", "title": "Minimal Dataset"}`))
	require.NoError(t, err)
	assert.Nil(t, d.BoundingBox)
	assert.Nil(t, d.TemporalExtent)
	assert.Empty(t, d.Keywords)
}

func TestJSONParserCanParse(t *testing.T) {
	p := NewJSONParser()
	assert.True(t, p.CanParse("application/json"))
	assert.True(t, p.CanParse("application/json; charset=utf-8"))
	assert.False(t, p.CanParse("application/xml"))
}

func TestJSONParserRejectsNonNumericBoundingBox(t *testing.T) {
	p := NewJSONParser()
	d, err := p.Parse([]byte(`{"id": "ds-bad-bbox", "title": "Bad Bbox", "boundingBoxes": [{"westBoundLongitude": "not-a-number"}]}`))
	require.NoError(t, err)
	assert.Nil(t, d.BoundingBox)
}

func TestParseDateAcceptsMultipleLayouts(t *testing.T) {
	assert.Equal(t, "2015-06-01", parseDate("2015-06-01"))
	assert.Equal(t, "2015-06-01", parseDate("2015/06/01"))
	assert.Equal(t, "2015-01-01", parseDate("2015"))
	assert.Equal(t, "2015-06-01", parseDate("2015-06-01T00:00:00Z"))
	assert.Equal(t, "", parseDate("not a date"))
	assert.Equal(t, "", parseDate(""))
}
