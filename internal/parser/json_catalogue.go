package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/models"
)

// JSONParser maps the catalogue's custom JSON metadata format to the
// canonical Dataset. The shape mirrors a typical environmental data
// catalogue record: a flat-ish document with several sibling keyword
// arrays and nested party/resource/relationship lists.
type JSONParser struct{}

// NewJSONParser returns the catalogue JSON parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) FormatName() string { return "catalogue-json" }

func (p *JSONParser) SupportedContentTypes() []string {
	return []string{"application/json", "json"}
}

func (p *JSONParser) CanParse(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

type jsonKeyword struct {
	Value string `json:"value"`
}

// rawJSONKeyword unmarshals either a bare string or {"value": "..."}.
type rawJSONKeyword struct {
	Value string
}

func (k *rawJSONKeyword) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.Value = s
		return nil
	}
	var obj jsonKeyword
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.Value = obj.Value
	return nil
}

type rawTopicCategory struct {
	Value string
}

func (t *rawTopicCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Value = obj.Value
	return nil
}

// jsonBoundingBox keeps each coordinate raw so a non-numeric value
// leaves the bounding box absent instead of failing the whole record.
type jsonBoundingBox struct {
	West  json.RawMessage `json:"westBoundLongitude"`
	East  json.RawMessage `json:"eastBoundLongitude"`
	South json.RawMessage `json:"southBoundLatitude"`
	North json.RawMessage `json:"northBoundLatitude"`
}

type jsonTemporalExtent struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
}

type jsonResponsibleParty struct {
	GivenName        string `json:"givenName"`
	FamilyName       string `json:"familyName"`
	OrganisationName string `json:"organisationName"`
	Role             string `json:"role"`
	Email            string `json:"email"`
	NameIdentifier   string `json:"nameIdentifier"`
}

type jsonOnlineResource struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Function    string `json:"function"`
	Description string `json:"description"`
}

type jsonRelationship struct {
	Target   string `json:"target"`
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type jsonInfoLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type jsonDataset struct {
	ID                 string                 `json:"id"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Lineage            string                 `json:"lineage"`
	KeywordsOther      []rawJSONKeyword       `json:"keywordsOther"`
	KeywordsPlace      []rawJSONKeyword       `json:"keywordsPlace"`
	KeywordsProject    []rawJSONKeyword       `json:"keywordsProject"`
	KeywordsTheme      []rawJSONKeyword       `json:"keywordsTheme"`
	KeywordsInstrument []rawJSONKeyword       `json:"keywordsInstrument"`
	TopicCategories    []rawTopicCategory     `json:"topicCategories"`
	BoundingBoxes      []jsonBoundingBox      `json:"boundingBoxes"`
	TemporalExtents    []jsonTemporalExtent   `json:"temporalExtents"`
	ResponsibleParties []jsonResponsibleParty `json:"responsibleParties"`
	OnlineResources    []jsonOnlineResource   `json:"onlineResources"`
	Relationships      []jsonRelationship     `json:"relationships"`
	InfoLinks          []jsonInfoLink         `json:"infoLinks"`
}

// Parse decodes content as the catalogue's JSON shape and maps it to a
// Dataset. Missing identifier or title is a ParseError.
func (p *JSONParser) Parse(content []byte) (*models.Dataset, error) {
	var raw jsonDataset
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", dcerrors.ErrParse, err)
	}

	if raw.ID == "" {
		return nil, fmt.Errorf("%w: missing required field identifier", dcerrors.ErrParse)
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("%w: missing required field title", dcerrors.ErrParse)
	}

	d := &models.Dataset{
		Identifier:          raw.ID,
		Title:               raw.Title,
		Abstract:            raw.Description,
		Lineage:             raw.Lineage,
		Keywords:            models.DedupeKeywords(p.parseKeywords(raw)),
		TopicCategories:     p.parseTopicCategories(raw.TopicCategories),
		BoundingBox:         p.parseBoundingBox(raw.BoundingBoxes),
		TemporalExtent:      p.parseTemporalExtent(raw.TemporalExtents),
		ResponsibleParties:  p.parseResponsibleParties(raw.ResponsibleParties),
		Distributions:       p.parseDistributions(raw.OnlineResources),
		RelatedDocuments:    p.parseRelationships(raw.Relationships),
		SupportingDocuments: p.parseSupportingDocuments(raw.InfoLinks),
		AccessLevel:         models.AccessPublic,
		SourceFormat:        p.FormatName(),
		RawDocument:         string(content),
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dcerrors.ErrParse, err)
	}

	return d, nil
}

func (p *JSONParser) parseKeywords(raw jsonDataset) []string {
	var keywords []string
	for _, group := range [][]rawJSONKeyword{
		raw.KeywordsOther, raw.KeywordsPlace, raw.KeywordsProject,
		raw.KeywordsTheme, raw.KeywordsInstrument,
	} {
		for _, kw := range group {
			if kw.Value != "" {
				keywords = append(keywords, kw.Value)
			}
		}
	}
	return keywords
}

func (p *JSONParser) parseTopicCategories(raw []rawTopicCategory) []models.TopicCategory {
	var categories []models.TopicCategory
	for _, tc := range raw {
		if tc.Value != "" && models.IsKnownTopicCategory(tc.Value) {
			categories = append(categories, models.TopicCategory(tc.Value))
		}
	}
	return categories
}

func (p *JSONParser) parseBoundingBox(boxes []jsonBoundingBox) *models.BoundingBox {
	if len(boxes) == 0 {
		return nil
	}
	box := boxes[0]
	west, err1 := strconv.ParseFloat(strings.Trim(string(box.West), `"`), 64)
	east, err2 := strconv.ParseFloat(strings.Trim(string(box.East), `"`), 64)
	south, err3 := strconv.ParseFloat(strings.Trim(string(box.South), `"`), 64)
	north, err4 := strconv.ParseFloat(strings.Trim(string(box.North), `"`), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil
	}
	return &models.BoundingBox{West: west, East: east, South: south, North: north}
}

func (p *JSONParser) parseTemporalExtent(extents []jsonTemporalExtent) *models.TemporalExtent {
	if len(extents) == 0 {
		return nil
	}
	start := parseDate(extents[0].Begin)
	end := parseDate(extents[0].End)
	if start == "" && end == "" {
		return nil
	}
	return &models.TemporalExtent{Start: start, End: end}
}

// parseDate accepts YYYY-MM-DD, YYYY/MM/DD, YYYY, or the leading
// YYYY-MM-DD of an ISO timestamp, normalising to YYYY-MM-DD. Unparseable
// values yield an absent field, not an error.
func parseDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}

	if len(value) >= 10 {
		if t, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return ""
}

func (p *JSONParser) parseResponsibleParties(raw []jsonResponsibleParty) []models.ResponsibleParty {
	var parties []models.ResponsibleParty
	for _, party := range raw {
		var nameParts []string
		if party.GivenName != "" {
			nameParts = append(nameParts, party.GivenName)
		}
		if party.FamilyName != "" {
			nameParts = append(nameParts, party.FamilyName)
		}
		name := strings.Join(nameParts, " ")

		if name == "" && party.OrganisationName == "" {
			continue
		}

		var orcid string
		if strings.Contains(party.NameIdentifier, "orcid.org") {
			orcid = party.NameIdentifier
		}

		role := party.Role
		if role == "" {
			role = "other"
		}

		parties = append(parties, models.ResponsibleParty{
			Name:         name,
			Organisation: party.OrganisationName,
			Role:         models.RoleFromString(role),
			Email:        party.Email,
			ORCID:        orcid,
		})
	}
	return parties
}

func (p *JSONParser) parseDistributions(raw []jsonOnlineResource) []models.Distribution {
	var distributions []models.Distribution
	for _, resource := range raw {
		if resource.URL == "" {
			continue
		}
		distributions = append(distributions, models.Distribution{
			URL:         resource.URL,
			Name:        resource.Name,
			Description: resource.Description,
			AccessType:  models.DistributionAccessTypeFromString(strings.ToLower(resource.Function)),
		})
	}
	return distributions
}

func (p *JSONParser) parseRelationships(raw []jsonRelationship) []models.RelatedDocument {
	var related []models.RelatedDocument
	for _, rel := range raw {
		if rel.Target == "" {
			continue
		}
		related = append(related, models.RelatedDocument{
			Identifier:       rel.Target,
			RelationshipType: mapRelationURI(rel.Relation),
			URL:              rel.URL,
		})
	}
	return related
}

// mapRelationURI maps a relation URI fragment to a RelationshipType,
// falling back to RelationOther for anything unrecognised.
func mapRelationURI(relationURI string) models.RelationshipType {
	lower := strings.ToLower(relationURI)
	switch {
	case strings.Contains(lower, "memberof"), strings.Contains(lower, "parent"):
		return models.RelationParent
	case strings.Contains(lower, "child"):
		return models.RelationChild
	case strings.Contains(lower, "supersedes"), strings.Contains(lower, "revision"):
		return models.RelationRevisionOf
	case strings.Contains(lower, "source"):
		return models.RelationSource
	case strings.Contains(lower, "series"):
		return models.RelationSeries
	default:
		return models.RelationOther
	}
}

func (p *JSONParser) parseSupportingDocuments(raw []jsonInfoLink) []models.SupportingDocument {
	var docs []models.SupportingDocument
	for _, link := range raw {
		if link.URL == "" {
			continue
		}
		filename := link.URL
		if idx := strings.LastIndex(link.URL, "/"); idx >= 0 && idx+1 < len(link.URL) {
			filename = link.URL[idx+1:]
		}
		docs = append(docs, models.SupportingDocument{
			Filename:    filename,
			URL:         link.URL,
			Description: link.Name,
		})
	}
	return docs
}
