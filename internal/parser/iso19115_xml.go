package parser

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/models"
)

// XMLParser maps ISO 19115 (UK GEMINI profile) XML metadata to the
// canonical Dataset. Element lookups are namespace-agnostic: the struct
// tags below match local names so the same parser works whether the
// document declares gmd/gco/gml prefixes or not.
type XMLParser struct{}

// NewXMLParser returns the ISO 19115 XML catalogue parser.
func NewXMLParser() *XMLParser {
	return &XMLParser{}
}

func (p *XMLParser) FormatName() string { return "iso19115-xml" }

func (p *XMLParser) SupportedContentTypes() []string {
	return []string{"application/xml", "text/xml", "gemini"}
}

func (p *XMLParser) CanParse(contentType string) bool {
	lower := strings.ToLower(contentType)
	return strings.Contains(lower, "xml") || strings.Contains(lower, "gemini")
}

type xmlCharacterString struct {
	Value string `xml:"CharacterString"`
}

type xmlCitation struct {
	Title                  xmlCharacterString      `xml:"title"`
	CitedResponsibleParty  []xmlResponsiblePartyEl `xml:"citedResponsibleParty>CI_ResponsibleParty"`
}

type xmlKeyword struct {
	Value string `xml:"CharacterString"`
}

type xmlDescriptiveKeywords struct {
	Keyword []xmlKeyword `xml:"MD_Keywords>keyword"`
}

type xmlGeographicBoundingBox struct {
	West  string `xml:"westBoundLongitude>Decimal"`
	East  string `xml:"eastBoundLongitude>Decimal"`
	South string `xml:"southBoundLatitude>Decimal"`
	North string `xml:"northBoundLatitude>Decimal"`
}

type xmlGeographicElement struct {
	BoundingBox *xmlGeographicBoundingBox `xml:"EX_GeographicBoundingBox"`
}

type xmlTimePeriod struct {
	Begin string `xml:"beginPosition"`
	End   string `xml:"endPosition"`
}

type xmlTemporalElement struct {
	TimePeriod *xmlTimePeriod `xml:"TimePeriod"`
}

type xmlExtent struct {
	GeographicElement []xmlGeographicElement `xml:"geographicElement"`
	TemporalElement   []xmlTemporalElement    `xml:"temporalElement>EX_TemporalExtent>extent"`
}

type xmlRoleCode struct {
	CodeListValue string `xml:"codeListValue,attr"`
}

type xmlContactInfo struct {
	Email xmlCharacterString `xml:"address>CI_Address>electronicMailAddress"`
}

type xmlResponsiblePartyEl struct {
	IndividualName   xmlCharacterString `xml:"individualName"`
	OrganisationName xmlCharacterString `xml:"organisationName"`
	ContactInfo      xmlContactInfo     `xml:"contactInfo>CI_Contact"`
	Role             struct {
		RoleCode xmlRoleCode `xml:"CI_RoleCode"`
	} `xml:"role"`
}

type xmlPointOfContact struct {
	ResponsibleParty xmlResponsiblePartyEl `xml:"CI_ResponsibleParty"`
}

type xmlDataIdentification struct {
	Citation             xmlCitation              `xml:"citation>CI_Citation"`
	Abstract             xmlCharacterString       `xml:"abstract"`
	PointOfContact       []xmlPointOfContact      `xml:"pointOfContact"`
	DescriptiveKeywords  []xmlDescriptiveKeywords `xml:"descriptiveKeywords"`
	TopicCategory        []string                 `xml:"topicCategory>MD_TopicCategoryCode"`
	Extent               xmlExtent                `xml:"extent>EX_Extent"`
}

type xmlIdentificationInfo struct {
	DataIdentification xmlDataIdentification `xml:"MD_DataIdentification"`
}

type xmlOnlineResource struct {
	Linkage     string             `xml:"linkage>URL"`
	Name        xmlCharacterString `xml:"name"`
	Description xmlCharacterString `xml:"description"`
	Function    struct {
		FunctionCode xmlRoleCode `xml:"CI_OnLineFunctionCode"`
	} `xml:"function"`
}

type xmlTransferOptions struct {
	OnLine []xmlOnlineResource `xml:"onLine>CI_OnlineResource"`
}

type xmlDistributionInfo struct {
	TransferOptions []xmlTransferOptions `xml:"MD_Distribution>transferOptions>MD_DigitalTransferOptions"`
}

type xmlLineage struct {
	Statement xmlCharacterString `xml:"LI_Lineage>statement"`
}

type xmlDataQualityInfo struct {
	Lineage xmlLineage `xml:"DQ_DataQuality>lineage"`
}

type xmlMetadata struct {
	XMLName            xml.Name                `xml:"MD_Metadata"`
	FileIdentifier     xmlCharacterString      `xml:"fileIdentifier"`
	IdentificationInfo []xmlIdentificationInfo `xml:"identificationInfo"`
	DistributionInfo   xmlDistributionInfo     `xml:"distributionInfo"`
	DataQualityInfo    xmlDataQualityInfo      `xml:"dataQualityInfo"`
}

// Parse decodes content as ISO 19115 XML and maps it to a Dataset.
// Missing fileIdentifier or title is a ParseError; malformed numeric
// fields (bounding box, dates) yield an absent field rather than an
// error.
func (p *XMLParser) Parse(content []byte) (*models.Dataset, error) {
	var raw xmlMetadata
	if err := xml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid xml: %v", dcerrors.ErrParse, err)
	}

	identifier := strings.TrimSpace(raw.FileIdentifier.Value)
	if identifier == "" {
		return nil, fmt.Errorf("%w: missing required field fileIdentifier", dcerrors.ErrParse)
	}

	if len(raw.IdentificationInfo) == 0 {
		return nil, fmt.Errorf("%w: missing identificationInfo", dcerrors.ErrParse)
	}
	ident := raw.IdentificationInfo[0].DataIdentification

	title := strings.TrimSpace(ident.Citation.Title.Value)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", dcerrors.ErrParse)
	}

	d := &models.Dataset{
		Identifier:         identifier,
		Title:              title,
		Abstract:           strings.TrimSpace(ident.Abstract.Value),
		Lineage:            strings.TrimSpace(raw.DataQualityInfo.Lineage.Statement.Value),
		Keywords:           models.DedupeKeywords(p.parseKeywords(ident.DescriptiveKeywords)),
		TopicCategories:    p.parseTopicCategories(ident.TopicCategory),
		BoundingBox:        p.parseBoundingBox(ident.Extent),
		TemporalExtent:     p.parseTemporalExtent(ident.Extent),
		ResponsibleParties: p.parseResponsibleParties(ident),
		Distributions:      p.parseDistributions(raw.DistributionInfo),
		AccessLevel:        models.AccessPublic,
		SourceFormat:       p.FormatName(),
		RawDocument:        string(content),
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dcerrors.ErrParse, err)
	}

	return d, nil
}

func (p *XMLParser) parseKeywords(groups []xmlDescriptiveKeywords) []string {
	var keywords []string
	for _, group := range groups {
		for _, kw := range group.Keyword {
			v := strings.TrimSpace(kw.Value)
			if v != "" {
				keywords = append(keywords, v)
			}
		}
	}
	return keywords
}

func (p *XMLParser) parseTopicCategories(codes []string) []models.TopicCategory {
	var categories []models.TopicCategory
	for _, code := range codes {
		v := strings.TrimSpace(code)
		if v != "" && models.IsKnownTopicCategory(v) {
			categories = append(categories, models.TopicCategory(v))
		}
	}
	return categories
}

func (p *XMLParser) parseBoundingBox(extent xmlExtent) *models.BoundingBox {
	var box *xmlGeographicBoundingBox
	for _, el := range extent.GeographicElement {
		if el.BoundingBox != nil {
			box = el.BoundingBox
			break
		}
	}
	if box == nil {
		return nil
	}

	west, err1 := strconv.ParseFloat(strings.TrimSpace(box.West), 64)
	east, err2 := strconv.ParseFloat(strings.TrimSpace(box.East), 64)
	south, err3 := strconv.ParseFloat(strings.TrimSpace(box.South), 64)
	north, err4 := strconv.ParseFloat(strings.TrimSpace(box.North), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil
	}

	return &models.BoundingBox{West: west, East: east, South: south, North: north}
}

func (p *XMLParser) parseTemporalExtent(extent xmlExtent) *models.TemporalExtent {
	var period *xmlTimePeriod
	for _, el := range extent.TemporalElement {
		if el.TimePeriod != nil {
			period = el.TimePeriod
			break
		}
	}
	if period == nil {
		return nil
	}

	start := parseDate(period.Begin)
	end := parseDate(period.End)
	if start == "" && end == "" {
		return nil
	}
	return &models.TemporalExtent{Start: start, End: end}
}

func (p *XMLParser) parseResponsibleParties(ident xmlDataIdentification) []models.ResponsibleParty {
	var elements []xmlResponsiblePartyEl
	for _, poc := range ident.PointOfContact {
		elements = append(elements, poc.ResponsibleParty)
	}
	elements = append(elements, ident.Citation.CitedResponsibleParty...)

	var parties []models.ResponsibleParty
	for _, el := range elements {
		name := strings.TrimSpace(el.IndividualName.Value)
		org := strings.TrimSpace(el.OrganisationName.Value)
		if name == "" && org == "" {
			continue
		}

		role := strings.TrimSpace(el.Role.RoleCode.CodeListValue)
		if role == "" {
			role = "other"
		}

		parties = append(parties, models.ResponsibleParty{
			Name:         name,
			Organisation: org,
			Role:         models.RoleFromString(role),
			Email:        strings.TrimSpace(el.ContactInfo.Email.Value),
		})
	}
	return parties
}

func (p *XMLParser) parseDistributions(info xmlDistributionInfo) []models.Distribution {
	var distributions []models.Distribution
	for _, transfer := range info.TransferOptions {
		for _, online := range transfer.OnLine {
			url := strings.TrimSpace(online.Linkage)
			if url == "" {
				continue
			}
			function := strings.TrimSpace(online.Function.FunctionCode.CodeListValue)
			if function == "" {
				function = "other"
			}
			distributions = append(distributions, models.Distribution{
				URL:         url,
				Name:        strings.TrimSpace(online.Name.Value),
				Description: strings.TrimSpace(online.Description.Value),
				AccessType:  models.DistributionAccessTypeFromString(strings.ToLower(function)),
			})
		}
	}
	return distributions
}
