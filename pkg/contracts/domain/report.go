package domain

// Exchange identifies a commodity exchange
type Exchange string

const (
	ExchangeSHFE Exchange = "shfe" // Shanghai Futures Exchange
	ExchangeDCE  Exchange = "dce"  // Dalian Commodity Exchange
	ExchangeCZCE Exchange = "czce" // Zhengzhou Commodity Exchange
)

// ReportID names one published delivery statistics report
type ReportID string

const (
	ReportFuturesToSpotSHFE        ReportID = "futures_to_spot_shfe"
	ReportFuturesDeliverySHFE      ReportID = "futures_delivery_shfe"
	ReportFuturesDeliveryDCE       ReportID = "futures_delivery_dce"
	ReportFuturesToSpotDCE         ReportID = "futures_to_spot_dce"
	ReportFuturesDeliveryMatchDCE  ReportID = "futures_delivery_match_dce"
	ReportFuturesToSpotCZCE        ReportID = "futures_to_spot_czce"
	ReportFuturesDeliveryMatchCZCE ReportID = "futures_delivery_match_czce"
	ReportFuturesDeliveryCZCE      ReportID = "futures_delivery_czce"
)

// ParamKind tells which request parameter a report is keyed by
type ParamKind string

const (
	ParamMonth  ParamKind = "yyyymm"
	ParamDay    ParamKind = "yyyymmdd"
	ParamSymbol ParamKind = "symbol"
)

// ReportInfo describes a report in the catalogue
type ReportInfo struct {
	ID       ReportID  `json:"id"`
	Exchange Exchange  `json:"exchange"`
	Title    string    `json:"title"`
	Param    ParamKind `json:"param"`
	Example  string    `json:"example"`
	Columns  []Column  `json:"columns"`
}

// ReportParams carries the caller supplied inputs of a report request
type ReportParams struct {
	Period string `json:"period,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// ReportResult is a fetched and normalized report
type ReportResult struct {
	Report ReportInfo   `json:"report"`
	Params ReportParams `json:"params"`
	Table  *Table       `json:"table"`
}
