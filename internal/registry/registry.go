// Package registry holds the fixed catalog of extraction tasks that make up
// a company research run. The catalog is populated at process start and never
// mutated; a run may narrow which entries it dispatches but the registry
// itself is immutable.
package registry

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/schema"
)

// SectionSpec is the immutable definition of one extraction task: the report
// section it fills, the research goal, the tool subset it may use, and the
// record schema its output must conform to.
type SectionSpec struct {
	ID           string
	Instructions string
	AllowedTools []gateway.Tool
	Schema       schema.Record
	MaxTokens    int64
}

// Section IDs, in report order. Adding a section requires extending the
// composite schema in lockstep.
const (
	SectionCompanyInfo          = "company_info"
	SectionTeamAnalysis         = "team_analysis"
	SectionMarketAnalysis       = "market_analysis"
	SectionFinancialMetrics     = "financial_metrics"
	SectionGrowthMetrics        = "growth_metrics"
	SectionCompetitiveLandscape = "competitive_landscape"
	SectionProductAnalysis      = "product_analysis"
	SectionCustomerAnalysis     = "customer_analysis"
	SectionRiskAssessment       = "risk_assessment"
	SectionInvestmentAnalysis   = "investment_analysis"
	SectionMediaAndNews         = "media_and_news"
	SectionResearchMetadata     = "research_metadata"
)

var allTools = []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape, gateway.ToolExecCode}

var catalog = []SectionSpec{
	{
		ID: SectionCompanyInfo,
		Instructions: "Research basic information about the company: official name, " +
			"tagline, description, website, founding year, headquarters, stage, " +
			"employee count, business model, revenue model, and industry. Prefer " +
			"authoritative sources such as the company website and its LinkedIn page.",
		AllowedTools: allTools,
		Schema:       companyInfoSchema,
		MaxTokens:    1024,
	},
	{
		ID: SectionTeamAnalysis,
		Instructions: "Research the team behind the company: founders and key " +
			"executives with their roles and backgrounds, board members, advisors, " +
			"and an overall assessment of team strength.",
		AllowedTools: allTools,
		Schema:       teamAnalysisSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionMarketAnalysis,
		Instructions: "Research the market the company operates in: total addressable " +
			"market (TAM), serviceable addressable market (SAM), and serviceable " +
			"obtainable market (SOM) with sizes, years, CAGR and sources, plus the " +
			"major market trends. Use code execution for any sizing arithmetic.",
		AllowedTools: allTools,
		Schema:       marketAnalysisSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionFinancialMetrics,
		Instructions: "Research the company's financials: total funding raised, last " +
			"round, full funding history with lead investors, notable investors, " +
			"revenue indicators (ARR, growth, burn, runway), valuation, and unit " +
			"economics (CAC, LTV, margins, payback).",
		AllowedTools: allTools,
		Schema:       financialMetricsSchema,
		MaxTokens:    3072,
	},
	{
		ID: SectionGrowthMetrics,
		Instructions: "Research the company's growth: user growth, revenue growth " +
			"with quarterly data where available, other key metrics, and chart data " +
			"for user growth, revenue growth, and market comparison.",
		AllowedTools: allTools,
		Schema:       growthMetricsSchema,
		MaxTokens:    3072,
	},
	{
		ID: SectionCompetitiveLandscape,
		Instructions: "Map the competitive landscape: direct competitors with " +
			"strengths and weaknesses, indirect competitors, the company's " +
			"competitive advantage, and a category-by-category comparison chart.",
		AllowedTools: allTools,
		Schema:       competitiveLandscapeSchema,
		MaxTokens:    3072,
	},
	{
		ID: SectionProductAnalysis,
		Instructions: "Research the company's product: what it does, key features, " +
			"technology stack, roadmap, intellectual property, and any public " +
			"product screenshots.",
		AllowedTools: allTools,
		Schema:       productAnalysisSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionCustomerAnalysis,
		Instructions: "Research the company's customers: target customers and " +
			"demographics, major clients, case studies, and how the company " +
			"acquires and retains customers.",
		AllowedTools: allTools,
		Schema:       customerAnalysisSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionRiskAssessment,
		Instructions: "Assess the risks facing the company across market, " +
			"competitive, financial, and regulatory dimensions, each with a " +
			"description and possible mitigation.",
		AllowedTools: allTools,
		Schema:       riskAssessmentSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionInvestmentAnalysis,
		Instructions: "Analyze the investment potential: investment thesis, exit " +
			"strategies with potential acquirers, comparable exits, a " +
			"recommendation, and the main highlights and concerns.",
		AllowedTools: allTools,
		Schema:       investmentAnalysisSchema,
		MaxTokens:    3072,
	},
	{
		ID: SectionMediaAndNews,
		Instructions: "Gather recent media coverage: news articles with sources and " +
			"dates, official press releases, and the company's social media " +
			"presence.",
		AllowedTools: []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape},
		Schema:       mediaAndNewsSchema,
		MaxTokens:    2048,
	},
	{
		ID: SectionResearchMetadata,
		Instructions: "Record research metadata: the research date, the analyst " +
			"identity, the sources consulted with URLs, and the last-updated " +
			"timestamp.",
		AllowedTools: []gateway.Tool{gateway.ToolSearch},
		Schema:       researchMetadataSchema,
		MaxTokens:    1024,
	},
}

// Specs returns the full ordered catalog. The returned slice is a copy; spec
// values share the underlying immutable schema definitions.
func Specs() []SectionSpec {
	out := make([]SectionSpec, len(catalog))
	copy(out, catalog)
	return out
}

// SectionNames returns the fixed set of composite section keys in report order.
func SectionNames() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.ID
	}
	return names
}

// Filter narrows specs to the given focus areas, preserving catalog order.
// An empty focusAreas returns specs unchanged. Unknown focus areas are a
// caller error, reported rather than silently ignored.
func Filter(specs []SectionSpec, focusAreas []string) ([]SectionSpec, error) {
	if len(focusAreas) == 0 {
		return specs, nil
	}

	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.ID] = true
	}

	want := make(map[string]bool, len(focusAreas))
	for _, fa := range focusAreas {
		if !known[fa] {
			return nil, eris.Errorf("registry: unknown focus area %q", fa)
		}
		want[fa] = true
	}

	var out []SectionSpec
	for _, s := range specs {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}
