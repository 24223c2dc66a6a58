package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/models"
)

const fullISO19115XML = `<?xml version="1.0" encoding="UTF-8"?>
<MD_Metadata>
	<fileIdentifier><CharacterString>ds-wave-buoy-001</CharacterString></fileIdentifier>
	<identificationInfo>
		<MD_DataIdentification>
			<citation>
				<CI_Citation>
					<title><CharacterString>North Sea Wave Buoy Network</CharacterString></title>
					<citedResponsibleParty>
						<CI_ResponsibleParty>
							<organisationName><CharacterString>Marine Survey Office</CharacterString></organisationName>
							<role><CI_RoleCode codeListValue="publisher"/></role>
						</CI_ResponsibleParty>
					</citedResponsibleParty>
				</CI_Citation>
			</citation>
			<abstract><CharacterString>Hourly wave height and period measurements.</CharacterString></abstract>
			<pointOfContact>
				<CI_ResponsibleParty>
					<individualName><CharacterString>Jane Doe</CharacterString></individualName>
					<contactInfo><CI_Contact><address><CI_Address><electronicMailAddress><CharacterString>jane.doe@example.com</CharacterString></electronicMailAddress></CI_Address></address></CI_Contact></contactInfo>
					<role><CI_RoleCode codeListValue="pointOfContact"/></role>
				</CI_ResponsibleParty>
			</pointOfContact>
			<descriptiveKeywords><MD_Keywords><keyword><CharacterString>wave height</CharacterString></keyword></MD_Keywords></descriptiveKeywords>
			<descriptiveKeywords><MD_Keywords><keyword><CharacterString>North Sea</CharacterString></keyword></MD_Keywords></descriptiveKeywords>
			<topicCategory><MD_TopicCategoryCode>oceans</MD_TopicCategoryCode></topicCategory>
			<topicCategory><MD_TopicCategoryCode>notARealCategory</MD_TopicCategoryCode></topicCategory>
			<extent>
				<EX_Extent>
					<geographicElement>
						<EX_GeographicBoundingBox>
							<westBoundLongitude><Decimal>-2.5</Decimal></westBoundLongitude>
							<eastBoundLongitude><Decimal>3.1</Decimal></eastBoundLongitude>
							<southBoundLatitude><Decimal>53.0</Decimal></southBoundLatitude>
							<northBoundLatitude><Decimal>58.0</Decimal></northBoundLatitude>
						</EX_GeographicBoundingBox>
					</geographicElement>
					<temporalElement>
						<EX_TemporalExtent>
							<extent>
								<TimePeriod>
									<beginPosition>2012-03-01</beginPosition>
									<endPosition>2023-09-30</endPosition>
								</TimePeriod>
							</extent>
						</EX_TemporalExtent>
					</temporalElement>
				</EX_Extent>
			</extent>
		</MD_DataIdentification>
	</identificationInfo>
	<distributionInfo>
		<MD_Distribution>
			<transferOptions>
				<MD_DigitalTransferOptions>
					<onLine>
						<CI_OnlineResource>
							<linkage><URL>https://data.example.com/wave-buoy-001.csv</URL></linkage>
							<name><CharacterString>CSV download</CharacterString></name>
							<function><CI_OnLineFunctionCode codeListValue="download"/></function>
						</CI_OnlineResource>
					</onLine>
				</MD_DigitalTransferOptions>
			</transferOptions>
		</MD_Distribution>
	</distributionInfo>
	<dataQualityInfo>
		<DQ_DataQuality>
			<lineage>
				<LI_Lineage>
					<statement><CharacterString>Derived from buoy telemetry, QC'd hourly.</CharacterString></statement>
				</LI_Lineage>
			</lineage>
		</DQ_DataQuality>
	</dataQualityInfo>
</MD_Metadata>`

func TestXMLParserParsesFullRecord(t *testing.T) {
	p := NewXMLParser()
	d, err := p.Parse([]byte(fullISO19115XML))
	require.NoError(t, err)

	assert.Equal(t, "ds-wave-buoy-001", d.Identifier)
	assert.Equal(t, "North Sea Wave Buoy Network", d.Title)
	assert.Equal(t, "iso19115-xml", d.SourceFormat)
	assert.Contains(t, d.Abstract, "Hourly wave height")

	assert.Equal(t, []string{"wave height", "North Sea"}, d.Keywords)

	require.Len(t, d.TopicCategories, 1)
	assert.Equal(t, models.TopicCategory("oceans"), d.TopicCategories[0])

	require.NotNil(t, d.BoundingBox)
	assert.InDelta(t, -2.5, d.BoundingBox.West, 0.0001)
	assert.InDelta(t, 58.0, d.BoundingBox.North, 0.0001)

	require.NotNil(t, d.TemporalExtent)
	assert.Equal(t, "2012-03-01", d.TemporalExtent.Start)
	assert.Equal(t, "2023-09-30", d.TemporalExtent.End)

	require.Len(t, d.ResponsibleParties, 2)
	assert.Equal(t, "Jane Doe", d.ResponsibleParties[0].Name)
	assert.Equal(t, "jane.doe@example.com", d.ResponsibleParties[0].Email)
	assert.Equal(t, models.RolePointOfContact, d.ResponsibleParties[0].Role)
	assert.Equal(t, "Marine Survey Office", d.ResponsibleParties[1].Organisation)
	assert.Equal(t, models.RolePublisher, d.ResponsibleParties[1].Role)

	require.Len(t, d.Distributions, 1)
	assert.Equal(t, "https://data.example.com/wave-buoy-001.csv", d.Distributions[0].URL)

	assert.Contains(t, d.Lineage, "QC'd hourly")
	assert.NoError(t, d.Validate())
}

func TestXMLParserMissingFileIdentifierIsParseError(t *testing.T) {
	p := NewXMLParser()
	_, err := p.Parse([]byte(`<MD_Metadata><identificationInfo><MD_DataIdentification><citation><CI_Citation><title><CharacterString>No ID</CharacterString></title></CI_Citation></citation></MD_DataIdentification></identificationInfo></MD_Metadata>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestXMLParserMissingTitleIsParseError(t *testing.T) {
	p := NewXMLParser()
	_, err := p.Parse([]byte(`<MD_Metadata><fileIdentifier><CharacterString>ds-no-title</CharacterString></fileIdentifier><identificationInfo><MD_DataIdentification></MD_DataIdentification></identificationInfo></MD_Metadata>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestXMLParserMissingIdentificationInfoIsParseError(t *testing.T) {
	p := NewXMLParser()
	_, err := p.Parse([]byte(`<MD_Metadata><fileIdentifier><CharacterString>ds-no-ident</CharacterString></fileIdentifier></MD_Metadata>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestXMLParserInvalidXMLIsParseError(t *testing.T) {
	p := NewXMLParser()
	_, err := p.Parse([]byte(`not xml at all`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dcerrors.ErrParse))
}

func TestXMLParserMalformedBoundingBoxYieldsNilNotError(t *testing.T) {
	p := NewXMLParser()
	content := `<MD_Metadata><fileIdentifier><CharacterString>ds-bad-bbox</CharacterString></fileIdentifier><identificationInfo><MD_DataIdentification><citation><CI_Citation><title><CharacterString>Bad Bbox</CharacterString></title></CI_Citation></citation><extent><EX_Extent><geographicElement><EX_GeographicBoundingBox><westBoundLongitude><Decimal>not-a-number</Decimal></westBoundLongitude></EX_GeographicBoundingBox></geographicElement></EX_Extent></extent></MD_DataIdentification></identificationInfo></MD_Metadata>`
	d, err := p.Parse([]byte(content))
	require.NoError(t, err)
	assert.Nil(t, d.BoundingBox)
}

func TestXMLParserCanParse(t *testing.T) {
	p := NewXMLParser()
	assert.True(t, p.CanParse("application/xml"))
	assert.True(t, p.CanParse("text/xml; charset=utf-8"))
	assert.True(t, p.CanParse("application/vnd.iso.19139+xml; profile=gemini"))
	assert.False(t, p.CanParse("application/json"))
}
