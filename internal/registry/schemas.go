package registry

import "github.com/sells-group/vc-research-engine/internal/schema"

// Shorthand constructors for the section schema declarations below.

func str(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindString}
}

func optStr(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindString, Optional: true}
}

func integer(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindInt}
}

func rec(name string, r schema.Record) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindRecord, Record: &r}
}

func list(name string, elem schema.Record) schema.Field {
	return schema.Field{
		Name: name,
		Kind: schema.KindList,
		Elem: &schema.Field{Kind: schema.KindRecord, Record: &elem},
	}
}

func strList(name string) schema.Field {
	return schema.Field{
		Name: name,
		Kind: schema.KindList,
		Elem: &schema.Field{Kind: schema.KindString},
	}
}

func optStrList(name string) schema.Field {
	f := strList(name)
	f.Optional = true
	return f
}

func anyList(name string) schema.Field {
	return schema.Field{
		Name: name,
		Kind: schema.KindList,
		Elem: &schema.Field{Kind: schema.KindAny},
	}
}

var companyInfoSchema = schema.Record{
	Name: SectionCompanyInfo,
	Fields: []schema.Field{
		str("name"),
		str("tagline"),
		str("description"),
		str("website"),
		integer("founded_year"),
		str("headquarters"),
		str("company_stage"),
		integer("employee_count"),
		str("business_model"),
		str("revenue_model"),
		str("industry"),
	},
}

var marketSizeSchema = schema.Record{
	Name: "market_size",
	Fields: []schema.Field{
		str("size"),
		integer("year"),
		str("cagr"),
		str("description"),
		strList("sources"),
	},
}

var marketAnalysisSchema = schema.Record{
	Name: SectionMarketAnalysis,
	Fields: []schema.Field{
		rec("tam", marketSizeSchema),
		rec("sam", marketSizeSchema),
		rec("som", marketSizeSchema),
		list("market_trends", schema.Record{
			Name:   "market_trend",
			Fields: []schema.Field{str("trend"), str("description")},
		}),
	},
}

var fundingRoundSchema = schema.Record{
	Name: "funding_round",
	Fields: []schema.Field{
		str("date"),
		str("round_type"),
		str("amount"),
		optStr("valuation"),
		strList("lead_investors"),
	},
}

var financialMetricsSchema = schema.Record{
	Name: SectionFinancialMetrics,
	Fields: []schema.Field{
		rec("funding", schema.Record{
			Name: "funding",
			Fields: []schema.Field{
				str("total_raised"),
				rec("last_round", schema.Record{
					Name: "last_round",
					Fields: []schema.Field{
						str("date"),
						str("amount"),
						str("round_type"),
						strList("lead_investors"),
					},
				}),
				list("funding_history", fundingRoundSchema),
				strList("notable_investors"),
			},
		}),
		rec("revenue", schema.Record{
			Name: "revenue",
			Fields: []schema.Field{
				str("current_arr"),
				str("growth_rate"),
				str("burn_rate"),
				str("runway"),
			},
		}),
		rec("valuation", schema.Record{
			Name:   "valuation",
			Fields: []schema.Field{str("current"), str("date"), str("multiple")},
		}),
		rec("unit_economics", schema.Record{
			Name: "unit_economics",
			Fields: []schema.Field{
				str("cac"),
				str("ltv"),
				str("ltv_cac_ratio"),
				str("gross_margin"),
				str("payback_period"),
			},
		}),
	},
}

// chartSchema accepts heterogeneous data points (time series and pie slices),
// so elements are left untyped.
var chartSchema = schema.Record{
	Name: "chart",
	Fields: []schema.Field{
		str("title"),
		str("type"),
		optStr("x_axis"),
		optStr("y_axis"),
		anyList("data_points"),
	},
}

var growthMetricsSchema = schema.Record{
	Name: SectionGrowthMetrics,
	Fields: []schema.Field{
		rec("user_growth", schema.Record{
			Name: "user_growth",
			Fields: []schema.Field{
				str("current_users"),
				str("growth_rate"),
				str("description"),
			},
		}),
		rec("revenue_growth", schema.Record{
			Name: "revenue_growth",
			Fields: []schema.Field{
				str("description"),
				list("quarterly_data", schema.Record{
					Name:   "quarterly_data",
					Fields: []schema.Field{str("quarter"), str("revenue")},
				}),
			},
		}),
		list("key_metrics", schema.Record{
			Name:   "key_metric",
			Fields: []schema.Field{str("metric"), str("value"), str("growth")},
		}),
		rec("chart_data", schema.Record{
			Name: "chart_data",
			Fields: []schema.Field{
				rec("user_growth_chart", chartSchema),
				rec("revenue_growth_chart", chartSchema),
				rec("market_comparison_chart", chartSchema),
			},
		}),
	},
}

var competitiveLandscapeSchema = schema.Record{
	Name: SectionCompetitiveLandscape,
	Fields: []schema.Field{
		list("direct_competitors", schema.Record{
			Name: "competitor",
			Fields: []schema.Field{
				str("name"),
				str("description"),
				str("funding"),
				strList("strengths"),
				strList("weaknesses"),
			},
		}),
		list("indirect_competitors", schema.Record{
			Name:   "indirect_competitor",
			Fields: []schema.Field{str("name"), str("description"), str("funding")},
		}),
		str("competitive_advantage"),
		rec("comparison_chart", schema.Record{
			Name: "comparison_chart",
			Fields: []schema.Field{
				str("title"),
				strList("categories"),
				list("companies", schema.Record{
					Name:   "company_comparison",
					Fields: []schema.Field{str("name"), strList("values")},
				}),
			},
		}),
	},
}

var teamAnalysisSchema = schema.Record{
	Name: SectionTeamAnalysis,
	Fields: []schema.Field{
		list("key_people", schema.Record{
			Name: "person",
			Fields: []schema.Field{
				str("name"),
				str("role"),
				str("background"),
				optStr("linkedin"),
			},
		}),
		list("board_members", schema.Record{
			Name: "board_member",
			Fields: []schema.Field{
				str("name"),
				str("role"),
				str("organization"),
				str("background"),
			},
		}),
		list("advisors", schema.Record{
			Name:   "advisor",
			Fields: []schema.Field{str("name"), str("role"), str("background")},
		}),
		str("team_strength"),
	},
}

var productAnalysisSchema = schema.Record{
	Name: SectionProductAnalysis,
	Fields: []schema.Field{
		str("product_description"),
		list("key_features", schema.Record{
			Name:   "feature",
			Fields: []schema.Field{str("feature"), str("description")},
		}),
		strList("technology_stack"),
		str("product_roadmap"),
		str("intellectual_property"),
		list("product_screenshots", schema.Record{
			Name:   "screenshot",
			Fields: []schema.Field{str("title"), str("url"), str("description")},
		}),
	},
}

var customerAnalysisSchema = schema.Record{
	Name: SectionCustomerAnalysis,
	Fields: []schema.Field{
		str("target_customers"),
		str("customer_demographics"),
		list("major_clients", schema.Record{
			Name:   "client",
			Fields: []schema.Field{str("name"), str("industry"), str("description")},
		}),
		list("case_studies", schema.Record{
			Name: "case_study",
			Fields: []schema.Field{
				str("title"),
				str("client"),
				str("description"),
				str("results"),
			},
		}),
		str("customer_acquisition"),
		str("customer_retention"),
	},
}

var riskSchema = schema.Record{
	Name:   "risk",
	Fields: []schema.Field{str("risk"), str("description"), str("mitigation")},
}

var riskAssessmentSchema = schema.Record{
	Name: SectionRiskAssessment,
	Fields: []schema.Field{
		list("market_risks", riskSchema),
		list("competitive_risks", riskSchema),
		list("financial_risks", riskSchema),
		list("regulatory_risks", riskSchema),
	},
}

var investmentAnalysisSchema = schema.Record{
	Name: SectionInvestmentAnalysis,
	Fields: []schema.Field{
		str("investment_thesis"),
		list("potential_exit_strategies", schema.Record{
			Name: "exit_strategy",
			Fields: []schema.Field{
				str("strategy"),
				str("description"),
				optStrList("potential_acquirers"),
				optStr("timeline"),
			},
		}),
		list("comparable_exits", schema.Record{
			Name: "comparable_exit",
			Fields: []schema.Field{
				str("company"),
				str("exit_type"),
				str("date"),
				str("amount"),
				str("acquirer"),
				str("multiple"),
			},
		}),
		str("investment_recommendation"),
		strList("investment_highlights"),
		strList("investment_concerns"),
	},
}

var mediaAndNewsSchema = schema.Record{
	Name: SectionMediaAndNews,
	Fields: []schema.Field{
		list("recent_news", schema.Record{
			Name: "news",
			Fields: []schema.Field{
				str("title"),
				str("source"),
				str("date"),
				str("url"),
				str("summary"),
			},
		}),
		rec("social_media", schema.Record{
			Name: "social_media",
			Fields: []schema.Field{
				optStr("twitter"),
				optStr("linkedin"),
				optStr("facebook"),
				optStr("instagram"),
			},
		}),
		list("press_releases", schema.Record{
			Name: "press_release",
			Fields: []schema.Field{
				str("title"),
				str("date"),
				str("url"),
				str("summary"),
			},
		}),
	},
}

var researchMetadataSchema = schema.Record{
	Name: SectionResearchMetadata,
	Fields: []schema.Field{
		str("research_date"),
		str("analyst"),
		list("sources", schema.Record{
			Name:   "source",
			Fields: []schema.Field{str("name"), str("url")},
		}),
		str("last_updated"),
	},
}
