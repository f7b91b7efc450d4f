package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vc-research-engine/internal/gateway"
)

func TestSpecs_CatalogComplete(t *testing.T) {
	specs := Specs()
	require.Len(t, specs, 12)

	want := []string{
		SectionCompanyInfo,
		SectionTeamAnalysis,
		SectionMarketAnalysis,
		SectionFinancialMetrics,
		SectionGrowthMetrics,
		SectionCompetitiveLandscape,
		SectionProductAnalysis,
		SectionCustomerAnalysis,
		SectionRiskAssessment,
		SectionInvestmentAnalysis,
		SectionMediaAndNews,
		SectionResearchMetadata,
	}
	assert.Equal(t, want, SectionNames())

	for i, s := range specs {
		assert.Equal(t, want[i], s.ID)
		assert.NotEmpty(t, s.Instructions, s.ID)
		assert.NotEmpty(t, s.AllowedTools, s.ID)
		assert.NotEmpty(t, s.Schema.Fields, s.ID)
		assert.Positive(t, s.MaxTokens, s.ID)
	}
}

func TestSpecs_ReturnsCopy(t *testing.T) {
	a := Specs()
	a[0].ID = "mutated"
	b := Specs()
	assert.Equal(t, SectionCompanyInfo, b[0].ID)
}

func TestSpecs_ToolRestrictions(t *testing.T) {
	byID := make(map[string]SectionSpec)
	for _, s := range Specs() {
		byID[s.ID] = s
	}

	assert.Equal(t, []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape}, byID[SectionMediaAndNews].AllowedTools)
	assert.Equal(t, []gateway.Tool{gateway.ToolSearch}, byID[SectionResearchMetadata].AllowedTools)
	assert.Equal(t, []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape, gateway.ToolExecCode}, byID[SectionCompanyInfo].AllowedTools)
}

func TestFilter_Empty(t *testing.T) {
	specs := Specs()
	got, err := Filter(specs, nil)
	require.NoError(t, err)
	assert.Equal(t, specs, got)
}

func TestFilter_PreservesCatalogOrder(t *testing.T) {
	// Request order does not matter; catalog order wins.
	got, err := Filter(Specs(), []string{SectionMediaAndNews, SectionCompanyInfo})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SectionCompanyInfo, got[0].ID)
	assert.Equal(t, SectionMediaAndNews, got[1].ID)
}

func TestFilter_Unknown(t *testing.T) {
	_, err := Filter(Specs(), []string{SectionCompanyInfo, "market_share"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown focus area "market_share"`)
}

func TestFilter_Duplicates(t *testing.T) {
	got, err := Filter(Specs(), []string{SectionCompanyInfo, SectionCompanyInfo})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, SectionCompanyInfo, got[0].ID)
}

func TestSchemas_SkeletonsRender(t *testing.T) {
	for _, s := range Specs() {
		skel := s.Schema.Skeleton()
		assert.NotEmpty(t, skel, s.ID)
	}
}
