package registry

import "stockmcp/internal/models"

// Upstream operation names understood by the provider adapter.
const (
	OpStockDaily     = "stock_daily"
	OpIndexDaily     = "index_daily"
	OpIndexPE        = "index_pe"
	OpIndexPB        = "index_pb"
	OpFundNames      = "fund_names"
	OpFundNAV        = "fund_nav"
	OpFundBasic      = "fund_basic"
	OpFundHoldings   = "fund_holdings"
	OpFundIndustry   = "fund_industry"
	OpFundRating     = "fund_rating"
	OpFundManagers   = "fund_managers"
	OpETFSpot        = "etf_spot"
	OpETFDaily       = "etf_daily"
	OpMoneyFund      = "money_fund"
	OpFundEstimation = "fund_estimation"
	OpFundRanking    = "fund_ranking"
	OpFundPurchase   = "fund_purchase"
	OpFundFees       = "fund_fees"
	OpFundPosition   = "fund_position"
	OpStockNews      = "stock_news"
)

const (
	// Six-digit A-share / open-fund codes.
	codePattern = `^[0-9]{6}$`
	// Index symbols carry an exchange prefix (sh000300, sz399006).
	indexPattern = `^(sh|sz|SH|SZ)?[0-9]{6}$`
	// Dates are accepted compact, dashed, or slash-delimited and
	// canonicalized before they reach the provider.
	datePattern = `^([0-9]{8}|[0-9]{4}[-/][0-9]{1,2}[-/][0-9]{1,2})$`
	yearPattern = `^[0-9]{4}$`
)

// Index boards the valuation endpoints publish PE/PB series for.
var indexBoards = []any{
	"上证50", "沪深300", "上证380", "创业板50", "中证500", "上证180",
	"深证红利", "深证100", "中证1000", "上证红利", "中证100", "中证800",
}

func objectSchema(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func strProp(desc, pattern string) map[string]any {
	p := map[string]any{"type": "string", "description": desc}
	if pattern != "" {
		p["pattern"] = pattern
	}
	return p
}

func enumProp(desc string, values []any, def any) map[string]any {
	p := map[string]any{"type": "string", "description": desc, "enum": values}
	if def != nil {
		p["default"] = def
	}
	return p
}

func withDefault(p map[string]any, def any) map[string]any {
	p["default"] = def
	return p
}

func field(name string, t models.FieldType, required bool, upstream string) models.FieldSpec {
	return models.FieldSpec{Name: name, Type: t, Required: required, Upstream: upstream}
}

// dailyBarFields is the canonical shape shared by stock, index, and ETF
// daily history.
func dailyBarFields() []models.FieldSpec {
	return []models.FieldSpec{
		field("date", models.FieldDate, true, "日期"),
		field("open", models.FieldNumber, true, "开盘"),
		field("high", models.FieldNumber, true, "最高"),
		field("low", models.FieldNumber, true, "最低"),
		field("close", models.FieldNumber, true, "收盘"),
		field("volume", models.FieldNumber, true, "成交量"),
		field("turnover", models.FieldNumber, false, "成交额"),
		field("amplitude_pct", models.FieldNumber, false, "振幅"),
		field("change_pct", models.FieldNumber, false, "涨跌幅"),
		field("change", models.FieldNumber, false, "涨跌额"),
		field("turnover_rate_pct", models.FieldNumber, false, "换手率"),
	}
}

// Catalog returns the full built-in tool catalogue, in the order it is
// exposed for capability discovery.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			Name:        "get_daily_quote",
			Description: "Daily OHLCV quote for one A-share stock on one trading day.",
			ArgumentSchema: objectSchema([]string{"symbol", "date"}, map[string]any{
				"symbol": strProp("Six-digit stock code, e.g. 600000", codePattern),
				"date":   strProp("Trading date (yyyyMMdd or yyyy-MM-dd)", datePattern),
			}),
			ResultFields: dailyBarFields(),
			Upstream:     OpStockDaily,
			TTL:          TTLDaily,
		},
		{
			Name:        "get_stock_history",
			Description: "Daily OHLCV history for one A-share stock over a date range.",
			ArgumentSchema: objectSchema([]string{"symbol", "start_date", "end_date"}, map[string]any{
				"symbol":     strProp("Six-digit stock code", codePattern),
				"start_date": strProp("Range start (yyyyMMdd or yyyy-MM-dd)", datePattern),
				"end_date":   strProp("Range end (yyyyMMdd or yyyy-MM-dd)", datePattern),
				"adjust": enumProp("Price adjustment: qfq forward, hfq backward, empty raw",
					[]any{"", "qfq", "hfq"}, "hfq"),
			}),
			ResultFields: dailyBarFields(),
			Upstream:     OpStockDaily,
			TTL:          TTLDaily,
		},
		{
			Name:        "get_index_daily",
			Description: "Daily history for a market index.",
			ArgumentSchema: objectSchema([]string{"symbol"}, map[string]any{
				"symbol": strProp("Index symbol with exchange prefix, e.g. sh000300", indexPattern),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "日期"),
				field("open", models.FieldNumber, true, "开盘"),
				field("high", models.FieldNumber, true, "最高"),
				field("low", models.FieldNumber, true, "最低"),
				field("close", models.FieldNumber, true, "收盘"),
				field("volume", models.FieldNumber, false, "成交量"),
			},
			Upstream: OpIndexDaily,
			TTL:      TTLDaily,
		},
		{
			Name:        "get_index_pe",
			Description: "Historical equal-weighted rolling PE series for an index board.",
			ArgumentSchema: objectSchema(nil, map[string]any{
				"index_name": enumProp("Index board", indexBoards, "沪深300"),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "日期"),
				field("pe", models.FieldNumber, false, "等权滚动市盈率"),
			},
			Upstream: OpIndexPE,
			TTL:      TTLDaily,
		},
		{
			Name:        "get_index_pb",
			Description: "Historical equal-weighted PB series for an index board.",
			ArgumentSchema: objectSchema(nil, map[string]any{
				"index_name": enumProp("Index board", indexBoards, "沪深300"),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "日期"),
				field("pb", models.FieldNumber, false, "等权市净率"),
			},
			Upstream: OpIndexPB,
			TTL:      TTLDaily,
		},
		{
			Name:           "list_funds",
			Description:    "All listed funds with code, short name, and type.",
			ArgumentSchema: objectSchema(nil, map[string]any{}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "基金代码"),
				field("fund_name", models.FieldString, true, "基金简称"),
				field("fund_type", models.FieldString, false, "基金类型"),
				field("abbreviation", models.FieldString, false, "拼音缩写"),
			},
			Upstream: OpFundNames,
			TTL:      TTLSlow,
		},
		{
			Name:        "get_fund_nav_history",
			Description: "Unit and cumulative NAV history for an open-end or exchange-traded fund.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code":  strProp("Six-digit fund code", codePattern),
				"start_date": strProp("Range start (yyyyMMdd or yyyy-MM-dd)", datePattern),
				"end_date":   strProp("Range end (yyyyMMdd or yyyy-MM-dd)", datePattern),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "净值日期"),
				field("unit_nav", models.FieldNumber, true, "单位净值"),
				field("cumulative_nav", models.FieldNumber, false, "累计净值"),
				field("daily_growth_pct", models.FieldNumber, false, "日增长率"),
			},
			Upstream: OpFundNAV,
			TTL:      TTLDaily,
		},
		{
			Name:        "get_fund_basic_info",
			Description: "Basic profile for one fund: name, type, inception, size, manager.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code": strProp("Six-digit fund code", codePattern),
			}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "基金代码"),
				field("fund_name", models.FieldString, true, "基金名称"),
				field("fund_type", models.FieldString, false, "基金类型"),
				field("inception_date", models.FieldDate, false, "成立时间"),
				field("latest_size", models.FieldString, false, "最新规模"),
				field("company", models.FieldString, false, "基金公司"),
				field("manager", models.FieldString, false, "基金经理"),
				field("custodian", models.FieldString, false, "托管银行"),
			},
			Upstream: OpFundBasic,
			TTL:      TTLSlow,
		},
		{
			Name:        "get_fund_holdings",
			Description: "Equity holdings reported by one fund for a given year.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code": strProp("Six-digit fund code", codePattern),
				"year":      strProp("Report year, e.g. 2024", yearPattern),
			}),
			ResultFields: []models.FieldSpec{
				field("stock_code", models.FieldString, true, "股票代码"),
				field("stock_name", models.FieldString, true, "股票名称"),
				field("weight_pct", models.FieldNumber, false, "占净值比例"),
				field("shares", models.FieldNumber, false, "持股数"),
				field("market_value", models.FieldNumber, false, "持仓市值"),
				field("quarter", models.FieldString, false, "季度"),
			},
			Upstream: OpFundHoldings,
			TTL:      TTLSlow,
		},
		{
			Name:        "get_fund_industry_allocation",
			Description: "Industry allocation reported by one fund for a given year.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code": strProp("Six-digit fund code", codePattern),
				"year":      strProp("Report year, e.g. 2024", yearPattern),
			}),
			ResultFields: []models.FieldSpec{
				field("industry", models.FieldString, true, "行业类别"),
				field("weight_pct", models.FieldNumber, false, "占净值比例"),
				field("market_value", models.FieldNumber, false, "市值"),
				field("report_date", models.FieldDate, false, "截止时间"),
			},
			Upstream: OpFundIndustry,
			TTL:      TTLSlow,
		},
		{
			Name:           "get_fund_rating",
			Description:    "Composite agency ratings for all rated funds.",
			ArgumentSchema: objectSchema(nil, map[string]any{}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "代码"),
				field("fund_name", models.FieldString, true, "简称"),
				field("manager", models.FieldString, false, "基金经理"),
				field("company", models.FieldString, false, "基金公司"),
				field("five_star_count", models.FieldInteger, false, "5星评级家数"),
			},
			Upstream: OpFundRating,
			TTL:      TTLSlow,
		},
		{
			Name:           "get_fund_managers",
			Description:    "Fund manager directory with tenure and assets under management.",
			ArgumentSchema: objectSchema(nil, map[string]any{}),
			ResultFields: []models.FieldSpec{
				field("name", models.FieldString, true, "姓名"),
				field("company", models.FieldString, false, "所属公司"),
				field("current_funds", models.FieldString, false, "现任基金"),
				field("tenure_days", models.FieldNumber, false, "累计从业时间"),
				field("total_assets", models.FieldNumber, false, "现任基金资产总规模"),
			},
			Upstream: OpFundManagers,
			TTL:      TTLSlow,
		},
		{
			Name:        "get_fund_ranking",
			Description: "Open-end fund performance ranking, optionally filtered by fund type.",
			ArgumentSchema: objectSchema(nil, map[string]any{
				"category": enumProp("Fund type filter",
					[]any{"全部", "股票型", "混合型", "债券型", "指数型", "QDII", "FOF"}, "全部"),
			}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "基金代码"),
				field("fund_name", models.FieldString, true, "基金简称"),
				field("date", models.FieldDate, false, "日期"),
				field("unit_nav", models.FieldNumber, false, "单位净值"),
				field("daily_growth_pct", models.FieldNumber, false, "日增长率"),
				field("one_month_pct", models.FieldNumber, false, "近1月"),
				field("one_year_pct", models.FieldNumber, false, "近1年"),
				field("three_year_pct", models.FieldNumber, false, "近3年"),
				field("ytd_pct", models.FieldNumber, false, "今年来"),
				field("since_inception_pct", models.FieldNumber, false, "成立来"),
			},
			Upstream: OpFundRanking,
			TTL:      TTLDaily,
		},
		{
			Name:           "get_fund_purchase_status",
			Description:    "Subscription and redemption status for all funds.",
			ArgumentSchema: objectSchema(nil, map[string]any{}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "基金代码"),
				field("fund_name", models.FieldString, true, "基金简称"),
				field("fund_type", models.FieldString, false, "基金类型"),
				field("subscription_status", models.FieldString, false, "申购状态"),
				field("redemption_status", models.FieldString, false, "赎回状态"),
				field("next_open_date", models.FieldDate, false, "下一开放日"),
				field("min_purchase", models.FieldNumber, false, "购买起点"),
				field("daily_limit", models.FieldNumber, false, "日累计限定金额"),
				field("fee_pct", models.FieldNumber, false, "手续费"),
			},
			Upstream: OpFundPurchase,
			TTL:      TTLDaily,
		},
		{
			Name:        "get_fund_fees",
			Description: "Trading rules and fee schedule for one fund.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code": strProp("Six-digit fund code", codePattern),
				"indicator": enumProp("Rule or fee table to fetch",
					[]any{"交易状态", "申购与赎回金额", "交易确认日", "运作费用", "认购费率", "申购费率", "赎回费率"},
					"认购费率"),
			}),
			ResultFields: []models.FieldSpec{
				field("item", models.FieldString, true, "项目"),
				field("detail", models.FieldString, false, "内容"),
				field("original_rate_pct", models.FieldNumber, false, "原费率"),
				field("discount_rate_pct", models.FieldNumber, false, "优惠费率"),
			},
			Upstream: OpFundFees,
			TTL:      TTLSlow,
		},
		{
			Name:        "get_fund_stock_position",
			Description: "Aggregate equity position gauge for a fund category over time.",
			ArgumentSchema: objectSchema(nil, map[string]any{
				"fund_type": enumProp("Fund category the gauge covers",
					[]any{"股票型", "平衡混合型", "灵活配置型"}, "股票型"),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "日期"),
				field("close", models.FieldNumber, false, "收盘价"),
				field("position_pct", models.FieldNumber, false, "仓位"),
			},
			Upstream: OpFundPosition,
			TTL:      TTLDaily,
		},
		{
			Name:           "get_etf_spot",
			Description:    "Real-time quotes for all exchange-traded funds.",
			ArgumentSchema: objectSchema(nil, map[string]any{}),
			ResultFields: []models.FieldSpec{
				field("symbol", models.FieldString, true, "代码"),
				field("name", models.FieldString, true, "名称"),
				field("price", models.FieldNumber, false, "最新价"),
				field("change_pct", models.FieldNumber, false, "涨跌幅"),
				field("volume", models.FieldNumber, false, "成交量"),
				field("turnover", models.FieldNumber, false, "成交额"),
				field("open", models.FieldNumber, false, "开盘价"),
				field("high", models.FieldNumber, false, "最高价"),
				field("low", models.FieldNumber, false, "最低价"),
			},
			Upstream: OpETFSpot,
			TTL:      TTLRealtime,
		},
		{
			Name:        "get_etf_history",
			Description: "Bar history for one ETF at daily, weekly, or monthly granularity.",
			ArgumentSchema: objectSchema([]string{"symbol"}, map[string]any{
				"symbol": strProp("Six-digit ETF code", codePattern),
				"period": enumProp("Bar granularity",
					[]any{"daily", "weekly", "monthly"}, "daily"),
				"start_date": withDefault(strProp("Range start", datePattern), "19700101"),
				"end_date":   withDefault(strProp("Range end", datePattern), "20500101"),
				"adjust": enumProp("Price adjustment: qfq forward, hfq backward, empty raw",
					[]any{"", "qfq", "hfq"}, ""),
			}),
			ResultFields: dailyBarFields(),
			Upstream:     OpETFDaily,
			TTL:          TTLDaily,
		},
		{
			Name:        "get_money_fund_yield",
			Description: "Historical yield of one money-market fund.",
			ArgumentSchema: objectSchema([]string{"fund_code"}, map[string]any{
				"fund_code": strProp("Six-digit money-market fund code", codePattern),
			}),
			ResultFields: []models.FieldSpec{
				field("date", models.FieldDate, true, "净值日期"),
				field("per_10k_yield", models.FieldNumber, false, "每万份收益"),
				field("seven_day_yield_pct", models.FieldNumber, false, "7日年化收益率"),
			},
			Upstream: OpMoneyFund,
			TTL:      TTLDaily,
		},
		{
			Name:        "get_fund_value_estimation",
			Description: "Intraday NAV estimation across funds, optionally filtered by category.",
			ArgumentSchema: objectSchema(nil, map[string]any{
				"category": enumProp("Fund category filter",
					[]any{"全部", "股票型", "混合型", "债券型", "指数型", "QDII", "ETF联接", "LOF", "场内交易基金"},
					"全部"),
			}),
			ResultFields: []models.FieldSpec{
				field("fund_code", models.FieldString, true, "基金代码"),
				field("fund_name", models.FieldString, true, "基金名称"),
				field("estimated_nav", models.FieldNumber, false, "估算值"),
				field("estimated_growth_pct", models.FieldNumber, false, "估算增长率"),
				field("unit_nav", models.FieldNumber, false, "单位净值"),
			},
			Upstream: OpFundEstimation,
			TTL:      TTLRealtime,
		},
		{
			Name:        "get_stock_news",
			Description: "Most recent news articles for one stock.",
			ArgumentSchema: objectSchema([]string{"symbol"}, map[string]any{
				"symbol": strProp("Six-digit stock code", codePattern),
			}),
			ResultFields: []models.FieldSpec{
				field("title", models.FieldString, true, "新闻标题"),
				field("content", models.FieldString, false, "新闻内容"),
				field("publish_time", models.FieldString, false, "发布时间"),
				field("source", models.FieldString, false, "文章来源"),
				field("url", models.FieldString, false, "新闻链接"),
			},
			Upstream: OpStockNews,
			TTL:      TTLRealtime,
		},
	}
}
