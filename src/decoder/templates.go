package decoder

import (
	"mdp-book/src/codec"
)

var (
	u8   = codec.U8
	u8n  = codec.U8N
	i8   = codec.I8
	i8n  = codec.I8N
	i16  = codec.I16
	u16  = codec.U16
	u16n = codec.U16N
	date = codec.Date
	i32  = codec.I32
	i32n = codec.I32N
	u32  = codec.U32
	u32n = codec.U32N
	u64  = codec.U64
	u64n = codec.U64N
	px   = codec.Px
	pxn  = codec.PxN
	qty  = codec.Qty
	ch   = codec.Ch
	m8   = codec.Mask8
	m32  = codec.Mask32
	mmy  = codec.MatDate
	str  = codec.Str
)

// Shared fixed block of the incremental refresh family: TransactTime,
// MatchEventIndicator and two bytes of padding (BlockLength 11).
var incremental = []col{f("TransactTime", u64), f("MatchEventIndicator", m8)}

var definitionHeader = []col{
	f("MatchEventIndicator", m8),
	f("TotNumReports", u32n),
	f("SecurityUpdateAction", ch),
	f("LastUpdateTime", u64),
	f("MDSecurityTradingStatus", u8n),
	f("ApplID", i16),
	f("MarketSegmentID", u8),
	f("UnderlyingProduct", u8),
	f("SecurityExchange", str(4)),
	f("SecurityGroup", str(6)),
	f("Asset", str(6)),
	f("Symbol", str(20)),
	f("SecurityID", i32),
	f("SecurityType", str(6)),
	f("CFICode", str(6)),
}

var snapshotHeader = []col{
	f("LastMsgSeqNumProcessed", u32),
	f("TotNumReports", u32),
	f("SecurityID", i32),
	f("RptSeq", u32),
	f("TransactTime", u64),
	f("LastUpdateTime", u64),
	f("TradeDate", date),
	f("MDSecurityTradingStatus", u8n),
	f("HighLimitPrice", pxn),
	f("LowLimitPrice", pxn),
	f("MaxPriceVariation", pxn),
}

var tcpSnapshotHeader = []col{
	f("TransactTime", u64),
	f("MatchEventIndicator", m8),
	f("SecurityID", i32),
	f("HighLimitPrice", pxn),
	f("LowLimitPrice", pxn),
	f("MaxPriceVariation", pxn),
}

var orderBookSnapshotHeader = []col{
	f("LastMsgSeqNumProcessed", u32),
	f("TotNumReports", u32),
	f("SecurityID", i32),
	f("NoChunks", u32),
	f("CurrentChunk", u32),
	f("TransactTime", u64),
}

func eventsGroup() GroupDef {
	return group("Events", f("EventType", u8), f("EventTime", u64))
}

func feedTypesGroup() GroupDef {
	return group("MDFeedTypes", f("MDFeedType", str(3)), f("MarketDepth", i8))
}

func instAttribGroup() GroupDef {
	return group("InstAttrib", f("InstAttribValue", m32))
}

func lotTypeRulesGroup() GroupDef {
	return group("LotTypeRules", f("LotType", i8), f("MinLotSize", qty))
}

func definitionGroups(extra ...GroupDef) []GroupDef {
	return append([]GroupDef{eventsGroup(), feedTypesGroup(), instAttribGroup(), lotTypeRulesGroup()}, extra...)
}

func legsGroup() GroupDef {
	return group("Legs",
		f("LegSecurityID", i32),
		f("LegSide", u8),
		f("LegRatioQty", i8),
		f("LegPrice", pxn),
		f("LegOptionDelta", qty),
	)
}

func mbpEntry() []col {
	return []col{
		f("MDEntryPx", pxn),
		f("MDEntrySize", i32n),
		f("SecurityID", i32),
		f("RptSeq", u32),
		f("NumberOfOrders", i32n),
		f("MDPriceLevel", u8),
		f("MDUpdateAction", u8),
		f("MDEntryType", ch),
	}
}

func orderDetailGroup() GroupDef {
	return group8("OrderIDEntries",
		f("OrderID", u64),
		f("MDOrderPriority", u64n),
		f("MDDisplayQty", i32n),
		f("ReferenceID", u8n),
		f("OrderUpdateAction", u8),
	)
}

func mboEntry() GroupDef {
	return group("MDEntries",
		f("OrderID", u64n),
		f("MDOrderPriority", u64n),
		f("MDEntryPx", pxn),
		f("MDDisplayQty", i32n),
		f("SecurityID", i32),
		f("MDUpdateAction", u8),
		f("MDEntryType", ch),
	)
}

func mboSnapshotEntry() GroupDef {
	return group("MDEntries",
		f("OrderID", u64),
		f("MDOrderPriority", u64n),
		f("MDEntryPx", px),
		f("MDDisplayQty", i32),
		f("MDEntryType", ch),
	)
}

func snapshotEntry() GroupDef {
	return group("MDEntries",
		f("MDEntryPx", pxn),
		f("MDEntrySize", i32n),
		f("NumberOfOrders", i32n),
		f("MDPriceLevel", i8n),
		f("TradingReferenceDate", date),
		f("OpenCloseSettlFlag", u8n),
		f("SettlPriceType", m8),
		f("MDEntryType", ch),
	)
}

func longQtySnapshotEntry() GroupDef {
	return group("MDEntries",
		f("MDEntryPx", pxn),
		f("MDEntrySize", u64n),
		f("NumberOfOrders", i32n),
		f("MDPriceLevel", i8n),
		f("OpenCloseSettlFlag", u8n),
		f("MDEntryType", ch),
	)
}

func dailyStatisticsEntry() GroupDef {
	return group("MDEntries",
		f("MDEntryPx", pxn),
		f("MDEntrySize", i32n),
		f("SecurityID", i32),
		f("RptSeq", u32),
		f("TradingReferenceDate", date),
		f("SettlPriceType", m8),
		f("MDUpdateAction", u8),
		f("MDEntryType", ch),
	)
}

// futureBody is the part of the future definition (27, 54) after CFICode.
var futureBody = []col{
	f("MaturityMonthYear", mmy),
	f("Currency", str(3)),
	f("SettlCurrency", str(3)),
	f("MatchAlgorithm", ch),
	f("MinTradeVol", u32),
	f("MaxTradeVol", u32),
	f("MinPriceIncrement", px),
	f("DisplayFactor", px),
	f("MainFraction", u8n),
	f("SubFraction", u8n),
	f("PriceDisplayFormat", u8n),
	f("UnitOfMeasure", str(30)),
	f("UnitOfMeasureQty", pxn),
	f("TradingReferencePrice", pxn),
	f("SettlPriceType", m8),
	f("OpenInterestQty", i32n),
	f("ClearedVolume", i32n),
	f("HighLimitPrice", pxn),
	f("LowLimitPrice", pxn),
	f("MaxPriceVariation", pxn),
	f("DecayQuantity", i32n),
	f("DecayStartDate", date),
	f("OriginalContractSize", i32n),
	f("ContractMultiplier", i32n),
	f("ContractMultiplierUnit", i8n),
	f("FlowScheduleType", i8n),
	f("MinPriceIncrementAmount", pxn),
	f("UserDefinedInstrument", ch),
}

// spreadBody is the part of the spread definition (29, 56) after CFICode.
var spreadBody = []col{
	f("MaturityMonthYear", mmy),
	f("Currency", str(3)),
	f("SecuritySubType", str(5)),
	f("UserDefinedInstrument", ch),
	f("MatchAlgorithm", ch),
	f("MinTradeVol", u32),
	f("MaxTradeVol", u32),
	f("MinPriceIncrement", px),
	f("DisplayFactor", px),
	f("PriceDisplayFormat", u8n),
	f("PriceRatio", pxn),
	f("TickRule", i8n),
	f("UnitOfMeasure", str(30)),
	f("TradingReferencePrice", pxn),
	f("SettlPriceType", m8),
	f("OpenInterestQty", i32n),
	f("ClearedVolume", i32n),
	f("HighLimitPrice", pxn),
	f("LowLimitPrice", pxn),
	f("MaxPriceVariation", pxn),
	f("MainFraction", u8n),
	f("SubFraction", u8n),
}

// optionBody is the part of the option definition (41, 55) after CFICode.
var optionBody = []col{
	f("PutOrCall", u8),
	f("MaturityMonthYear", mmy),
	f("Currency", str(3)),
	f("StrikePrice", pxn),
	f("StrikeCurrency", str(3)),
	f("SettlCurrency", str(3)),
	f("MinCabPrice", pxn),
	f("MatchAlgorithm", ch),
	f("MinTradeVol", u32),
	f("MaxTradeVol", u32),
	f("MinPriceIncrement", pxn),
	f("MinPriceIncrementAmount", pxn),
	f("DisplayFactor", px),
	f("TickRule", i8n),
	f("MainFraction", u8n),
	f("SubFraction", u8n),
	f("PriceDisplayFormat", u8n),
	f("UnitOfMeasure", str(30)),
	f("UnitOfMeasureQty", pxn),
	f("TradingReferencePrice", pxn),
	f("SettlPriceType", m8),
	f("ClearedVolume", i32n),
	f("OpenInterestQty", i32n),
	f("LowLimitPrice", pxn),
	f("HighLimitPrice", pxn),
	f("UserDefinedInstrument", ch),
}

func underlyingsGroup() GroupDef {
	return group("Underlyings", f("UnderlyingSecurityID", i32), f("UnderlyingSymbol", str(20)))
}

func builtinTemplates() []*Template {
	return []*Template{
		{
			ID:     4,
			Name:   "ChannelReset",
			Block:  layout(incremental...),
			Groups: []GroupDef{{Name: "MDEntries", Since: 4, Fields: layout(f("ApplID", i16))}},
		},
		{
			ID:    16,
			Name:  "AdminLogout",
			Block: layout(f("Text", str(180))),
		},
		{
			ID:     27,
			Name:   "MDInstrumentDefinitionFuture",
			Block:  layout(cols(definitionHeader, futureBody, []col{since(6, "TradingReferenceDate", date)})...),
			Groups: definitionGroups(),
		},
		{
			ID:     29,
			Name:   "MDInstrumentDefinitionSpread",
			Block:  layout(cols(definitionHeader, spreadBody, []col{since(6, "TradingReferenceDate", date)})...),
			Groups: definitionGroups(legsGroup()),
		},
		{
			ID:   30,
			Name: "SecurityStatus",
			Block: layout(
				f("TransactTime", u64),
				f("SecurityGroup", str(6)),
				f("Asset", str(6)),
				f("SecurityID", i32n),
				f("TradeDate", date),
				f("MatchEventIndicator", m8),
				f("SecurityTradingStatus", u8n),
				f("HaltReason", u8),
				f("SecurityTradingEvent", u8),
			),
		},
		{
			ID:          32,
			Name:        "MDIncrementalRefreshBook",
			Block:       layout(incremental...),
			Groups:      []GroupDef{group("MDEntries", mbpEntry()...)},
			EntriesOnly: true,
		},
		{
			ID:          33,
			Name:        "MDIncrementalRefreshDailyStatistics",
			Block:       layout(incremental...),
			Groups:      []GroupDef{dailyStatisticsEntry()},
			EntriesOnly: true,
		},
		{
			ID:    34,
			Name:  "MDIncrementalRefreshLimitsBanding",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("HighLimitPrice", pxn),
				f("LowLimitPrice", pxn),
				f("MaxPriceVariation", pxn),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("MDUpdateAction", u8),
			)},
			EntriesOnly: true,
		},
		{
			ID:    35,
			Name:  "MDIncrementalRefreshSessionStatistics",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntryPx", px),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("OpenCloseSettlFlag", u8n),
				f("MDUpdateAction", u8),
				f("MDEntryType", ch),
			)},
			EntriesOnly: true,
		},
		{
			ID:    36,
			Name:  "MDIncrementalRefreshTrade",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntryPx", px),
				f("MDEntrySize", i32),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("NumberOfOrders", i32n),
				f("TradeID", i32),
				f("AggressorSide", u8n),
				f("MDUpdateAction", u8),
			)},
			EntriesOnly: true,
		},
		{
			ID:    37,
			Name:  "MDIncrementalRefreshVolume",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntrySize", i32),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("MDUpdateAction", u8),
			)},
			EntriesOnly: true,
		},
		{
			ID:     38,
			Name:   "SnapshotFullRefresh",
			Block:  layout(snapshotHeader...),
			Groups: []GroupDef{snapshotEntry()},
		},
		{
			ID:    39,
			Name:  "QuoteRequest",
			Block: layout(f("TransactTime", u64), f("QuoteReqID", str(23)), f("MatchEventIndicator", m8)),
			Groups: []GroupDef{group("RelatedSym",
				f("Symbol", str(20)),
				f("SecurityID", i32),
				f("OrderQty", i32n),
				f("QuoteType", i8),
				f("Side", i8n),
			)},
			EntriesOnly: true,
		},
		{
			ID:     41,
			Name:   "MDInstrumentDefinitionOption",
			Block:  layout(cols(definitionHeader, optionBody, []col{since(6, "TradingReferenceDate", date)})...),
			Groups: definitionGroups(underlyingsGroup()),
		},
		{
			ID:    42,
			Name:  "MDIncrementalRefreshTradeSummary",
			Block: layout(incremental...),
			Groups: []GroupDef{
				group("MDEntries",
					f("MDEntryPx", px),
					f("MDEntrySize", i32),
					f("SecurityID", i32),
					f("RptSeq", u32),
					f("NumberOfOrders", i32),
					f("AggressorSide", u8n),
					f("MDUpdateAction", u8),
				),
				group8("OrderIDEntries", f("OrderID", u64), f("LastQty", i32)),
			},
			EntriesOnly: true,
		},
		{
			ID:          43,
			Name:        "MDIncrementalRefreshOrderBook",
			Block:       layout(incremental...),
			Groups:      []GroupDef{mboEntry()},
			EntriesOnly: true,
		},
		{
			ID:     44,
			Name:   "SnapshotFullRefreshOrderBook",
			Block:  layout(orderBookSnapshotHeader...),
			Groups: []GroupDef{mboSnapshotEntry()},
		},
		{
			ID:    46,
			Name:  "MDIncrementalRefreshBook",
			Block: layout(incremental...),
			Groups: []GroupDef{
				group("MDEntries", append(mbpEntry(), f("TradeableSize", i32n))...),
				orderDetailGroup(),
			},
			Join:        &JoinDef{Book: 0, Detail: 1, Reference: "ReferenceID"},
			EntriesOnly: true,
		},
		{
			ID:          47,
			Name:        "MDIncrementalRefreshOrderBook",
			Block:       layout(incremental...),
			Groups:      []GroupDef{mboEntry()},
			EntriesOnly: true,
		},
		{
			ID:    48,
			Name:  "MDIncrementalRefreshTradeSummary",
			Block: layout(incremental...),
			Groups: []GroupDef{
				group("MDEntries",
					f("MDEntryPx", px),
					f("MDEntrySize", i32),
					f("SecurityID", i32),
					f("RptSeq", u32),
					f("NumberOfOrders", i32),
					f("AggressorSide", u8n),
					f("MDUpdateAction", u8),
					f("MDTradeEntryID", u32n),
				),
				group8("OrderIDEntries", f("OrderID", u64), f("LastQty", i32)),
			},
			EntriesOnly: true,
		},
		{
			ID:          49,
			Name:        "MDIncrementalRefreshDailyStatistics",
			Block:       layout(incremental...),
			Groups:      []GroupDef{dailyStatisticsEntry()},
			EntriesOnly: true,
		},
		{
			ID:    50,
			Name:  "MDIncrementalRefreshLimitsBanding",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("HighLimitPrice", pxn),
				f("LowLimitPrice", pxn),
				f("MaxPriceVariation", pxn),
				f("SecurityID", i32),
				f("RptSeq", u32),
			)},
			EntriesOnly: true,
		},
		{
			ID:    51,
			Name:  "MDIncrementalRefreshSessionStatistics",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntryPx", px),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("OpenCloseSettlFlag", u8n),
				f("MDUpdateAction", u8),
				f("MDEntryType", ch),
				f("MDEntrySize", i32n),
			)},
			EntriesOnly: true,
		},
		{
			ID:     52,
			Name:   "SnapshotFullRefresh",
			Block:  layout(snapshotHeader...),
			Groups: []GroupDef{snapshotEntry()},
		},
		{
			ID:     53,
			Name:   "SnapshotFullRefreshOrderBook",
			Block:  layout(orderBookSnapshotHeader...),
			Groups: []GroupDef{mboSnapshotEntry()},
		},
		{
			ID:   54,
			Name: "MDInstrumentDefinitionFuture",
			Block: layout(cols(definitionHeader, futureBody, []col{
				f("TradingReferenceDate", date),
				since(10, "InstrumentGUID", u64n),
			})...),
			Groups: definitionGroups(),
		},
		{
			ID:   55,
			Name: "MDInstrumentDefinitionOption",
			Block: layout(cols(definitionHeader, optionBody, []col{
				f("TradingReferenceDate", date),
				since(10, "InstrumentGUID", u64n),
			})...),
			Groups: definitionGroups(
				underlyingsGroup(),
				group("RelatedInstruments", f("RelatedSecurityID", i32), f("RelatedSymbol", str(20))),
			),
		},
		{
			ID:   56,
			Name: "MDInstrumentDefinitionSpread",
			Block: layout(cols(definitionHeader, spreadBody, []col{
				f("TradingReferenceDate", date),
				since(10, "PriceQuoteMethod", str(5)),
				since(10, "RiskSet", str(6)),
				since(10, "MarketSet", str(6)),
				since(10, "InstrumentGUID", u64n),
				since(10, "FinancialInstrumentFullName", str(35)),
			})...),
			Groups: definitionGroups(legsGroup()),
		},
		{
			ID:   57,
			Name: "MDInstrumentDefinitionFixedIncome",
			Block: layout(cols(definitionHeader, []col{
				f("Currency", str(3)),
				f("SettlCurrency", str(3)),
				f("MatchAlgorithm", ch),
				f("MinTradeVol", u32),
				f("MaxTradeVol", u32),
				f("MinPriceIncrement", px),
				f("DisplayFactor", px),
				f("MainFraction", u8n),
				f("SubFraction", u8n),
				f("PriceDisplayFormat", u8n),
				f("UnitOfMeasure", str(30)),
				f("UnitOfMeasureQty", pxn),
				f("TradingReferencePrice", pxn),
				f("TradingReferenceDate", date),
				f("HighLimitPrice", pxn),
				f("LowLimitPrice", pxn),
				f("MaxPriceVariation", pxn),
				f("MinPriceIncrementAmount", pxn),
				f("IssueDate", date),
				f("DatedDate", date),
				f("MaturityDate", date),
				f("CouponRate", pxn),
				f("ParValue", pxn),
				f("CouponFrequencyUnit", str(3)),
				f("CouponFrequencyPeriod", u16n),
				f("CouponDayCount", str(20)),
				f("CountryOfIssue", str(2)),
				f("Issuer", str(25)),
				f("FinancialInstrumentFullName", str(35)),
				f("SecurityAltID", str(12)),
				f("SecurityAltIDSource", u8n),
				f("PriceQuoteMethod", str(5)),
				f("PartyRoleClearingOrg", str(5)),
				f("UserDefinedInstrument", ch),
				f("RiskSet", str(6)),
				f("MarketSet", str(6)),
				f("InstrumentGUID", u64n),
			})...),
			Groups: definitionGroups(),
		},
		{
			ID:   58,
			Name: "MDInstrumentDefinitionRepo",
			Block: layout(cols(definitionHeader, []col{
				f("Currency", str(3)),
				f("SettlCurrency", str(3)),
				f("MatchAlgorithm", ch),
				f("MinTradeVol", u32),
				f("MaxTradeVol", u32),
				f("MinPriceIncrement", px),
				f("DisplayFactor", px),
				f("UnitOfMeasure", str(30)),
				f("UnitOfMeasureQty", pxn),
				f("TradingReferencePrice", pxn),
				f("TradingReferenceDate", date),
				f("HighLimitPrice", pxn),
				f("LowLimitPrice", pxn),
				f("MaxPriceVariation", pxn),
				f("FinancialInstrumentFullName", str(35)),
				f("PartyRoleClearingOrg", str(5)),
				f("StartDate", date),
				f("EndDate", date),
				f("TerminationType", str(8)),
				f("SecuritySubType", u8n),
				f("MoneyOrPar", u8n),
				f("MaxNoOfSubstitutions", u8n),
				f("PriceQuoteMethod", str(5)),
				f("UserDefinedInstrument", ch),
				f("RiskSet", str(6)),
				f("MarketSet", str(6)),
				f("InstrumentGUID", u64n),
				since(11, "TermCode", str(20)),
				since(13, "BrokenDateTermType", u8n),
			})...),
			Groups: definitionGroups(
				group("Underlyings",
					f("UnderlyingSymbol", str(20)),
					f("UnderlyingSecurityID", i32),
					f("UnderlyingSecurityAltID", str(12)),
					f("UnderlyingSecurityAltIDSource", u8n),
					f("UnderlyingFinancialInstrumentFullName", str(35)),
					f("UnderlyingSecurityType", str(6)),
					f("UnderlyingCountryOfIssue", str(2)),
					f("UnderlyingIssuer", str(25)),
					f("UnderlyingMaxLifeTime", u8n),
					f("UnderlyingMinDaysToMaturity", u16n),
					since(11, "UnderlyingInstrumentGUID", u64n),
					since(11, "UnderlyingMaturityDate", date),
				),
				group("RelatedInstruments",
					f("RelatedSecurityID", i32),
					f("RelatedSymbol", str(20)),
					f("RelatedInstrumentGUID", u64n),
				),
				GroupDef{Name: "BrokenDates", Since: 13, Fields: layout(
					f("BrokenDateGUID", u64n),
					f("BrokenDateSecurityID", i32n),
					f("BrokenDateStart", u16n),
					f("BrokenDateEnd", u16n),
				)},
			),
		},
		{
			ID:          59,
			Name:        "SnapshotRefreshTopOrders",
			Block:       layout(f("TransactTime", u64), f("MatchEventIndicator", m8), f("SecurityID", i32)),
			Groups:      []GroupDef{mboSnapshotEntry()},
			EntriesOnly: true,
		},
		{
			ID:   60,
			Name: "SecurityStatusWorkup",
			Block: layout(
				f("TransactTime", u64),
				f("MDEntryPx", pxn),
				f("SecurityID", i32),
				f("MatchEventIndicator", m8),
				f("TradeDate", date),
				f("TradeLinkID", u32n),
				f("SecurityTradingStatus", u8n),
				f("HaltReason", u8),
				f("SecurityTradingEvent", u8),
			),
			Groups: []GroupDef{group("OrderIDEntries", f("OrderID", u64), f("Side", u8), f("AggressorIndicator", u8))},
		},
		{
			ID:    61,
			Name:  "SnapshotFullRefreshTCP",
			Block: layout(tcpSnapshotHeader...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntryPx", pxn),
				f("MDEntrySize", i32n),
				f("TradeableSize", i32n),
				f("NumberOfOrders", i32n),
				f("MDPriceLevel", i8n),
				f("OpenCloseSettlFlag", u8n),
				f("MDEntryType", ch),
				f("TradingReferenceDate", date),
				f("SettlPriceType", m8),
			)},
		},
		{
			ID:    62,
			Name:  "CollateralMarketValue",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("UnderlyingSecurityAltID", str(12)),
				f("UnderlyingSecurityAltIDSource", u8),
				f("CollateralMarketPrice", pxn),
				f("DirtyPrice", pxn),
				f("UnderlyingInstrumentGUID", u64n),
				f("MDStreamID", str(3)),
			)},
			EntriesOnly: true,
		},
		{
			ID:   63,
			Name: "MDInstrumentDefinitionFX",
			Block: layout(cols(definitionHeader, []col{
				f("Currency", str(3)),
				f("SettlCurrency", str(3)),
				f("PriceQuoteCurrency", str(3)),
				f("MatchAlgorithm", ch),
				f("MinTradeVol", u32),
				f("MaxTradeVol", u32),
				f("MinPriceIncrement", px),
				f("DisplayFactor", px),
				f("PricePrecision", u8),
				f("UnitOfMeasure", str(30)),
				f("UnitOfMeasureQty", pxn),
				f("HighLimitPrice", pxn),
				f("LowLimitPrice", pxn),
				f("MaxPriceVariation", pxn),
				f("UserDefinedInstrument", ch),
				f("FinancialInstrumentFullName", str(35)),
				f("FXCurrencySymbol", str(7)),
				f("SettlType", str(3)),
				f("InterveningDays", u16),
				f("FXBenchmarkRateFix", str(20)),
				f("RateSource", str(12)),
				f("FixRateLocalTime", str(8)),
				f("FixRateLocalTimeZone", str(20)),
				f("MinQuoteLife", u32n),
				f("MaxPriceDiscretionOffset", pxn),
				f("InstrumentGUID", u64n),
				f("MaturityMonthYear", mmy),
				f("SettlementLocale", str(8)),
				f("AltMinPriceIncrement", pxn),
				f("AltMinQuoteLife", u32n),
				f("AltPriceIncrementConstraint", pxn),
				f("MaxBidAskConstraint", pxn),
			})...),
			Groups: []GroupDef{
				eventsGroup(),
				feedTypesGroup(),
				instAttribGroup(),
				group("LotTypeRules", f("LotType", i8), f("MinLotSize", u64n)),
				group("TradingSessions",
					f("TradeDate", date),
					f("SettlDate", date),
					f("MaturityDate", date),
					f("SecurityAltID", str(12)),
				),
			},
		},
		{
			ID:    64,
			Name:  "MDIncrementalRefreshBookLongQty",
			Block: layout(incremental...),
			Groups: []GroupDef{
				group("MDEntries",
					f("MDEntryPx", pxn),
					f("MDEntrySize", u64n),
					f("SecurityID", i32),
					f("RptSeq", u32),
					f("NumberOfOrders", i32n),
					f("MDPriceLevel", u8),
					f("MDUpdateAction", u8),
					f("MDEntryType", ch),
				),
				orderDetailGroup(),
			},
			Join:        &JoinDef{Book: 0, Detail: 1, Reference: "ReferenceID"},
			EntriesOnly: true,
		},
		{
			ID:    65,
			Name:  "MDIncrementalRefreshTradeSummaryLongQty",
			Block: layout(incremental...),
			Groups: []GroupDef{
				group("MDEntries",
					f("MDEntryPx", px),
					f("MDEntrySize", u64),
					f("SecurityID", i32),
					f("RptSeq", u32),
					f("NumberOfOrders", i32),
					f("MDTradeEntryID", u32n),
					f("AggressorSide", u8n),
					f("MDUpdateAction", u8),
				),
				group8("OrderIDEntries", f("OrderID", u64), f("LastQty", u64)),
			},
			EntriesOnly: true,
		},
		{
			ID:    66,
			Name:  "MDIncrementalRefreshVolumeLongQty",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntrySize", u64),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("MDUpdateAction", u8),
			)},
			EntriesOnly: true,
		},
		{
			ID:    67,
			Name:  "MDIncrementalRefreshSessionStatisticsLongQty",
			Block: layout(incremental...),
			Groups: []GroupDef{group("MDEntries",
				f("MDEntryPx", px),
				f("MDEntrySize", u64n),
				f("SecurityID", i32),
				f("RptSeq", u32),
				f("OpenCloseSettlFlag", u8n),
				f("MDUpdateAction", u8),
				f("MDEntryType", ch),
			)},
			EntriesOnly: true,
		},
		{
			ID:     68,
			Name:   "SnapshotFullRefreshTCPLongQty",
			Block:  layout(tcpSnapshotHeader...),
			Groups: []GroupDef{longQtySnapshotEntry()},
		},
		{
			ID:     69,
			Name:   "SnapshotFullRefreshLongQty",
			Block:  layout(snapshotHeader...),
			Groups: []GroupDef{longQtySnapshotEntry()},
		},
	}
}
