package services

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"deliverystats/internal/dataprocessing"
	"deliverystats/internal/exchange"
	"deliverystats/pkg/contracts/domain"
)

// Endpoints holds the base URLs of the three exchange websites
type Endpoints struct {
	SHFE string
	DCE  string
	CZCE string
}

// DefaultEndpoints are the public exchange hosts
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SHFE: "http://www.shfe.com.cn",
		DCE:  "http://www.dce.com.cn",
		CZCE: "http://www.czce.com.cn",
	}
}

// definition binds a catalogue entry to its request builder and parser
type definition struct {
	info    domain.ReportInfo
	request func(e Endpoints, p domain.ReportParams) (exchange.Request, error)
	parse   func(p *exchange.Payload) (*domain.Table, error)
}

const (
	browserAccept   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	browserLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z]{1,4}$`)

func browserHeaders(referer string) http.Header {
	h := http.Header{}
	h.Set("Accept", browserAccept)
	h.Set("Accept-Language", browserLanguage)
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

func parseMonth(period string) (time.Time, error) {
	t, err := time.Parse("200601", period)
	if err != nil || len(period) != 6 {
		return time.Time{}, fmt.Errorf("%w: period %q must be YYYYMM", ErrInvalidInput, period)
	}
	return t, nil
}

func parseDay(period string) (time.Time, error) {
	t, err := time.Parse("20060102", period)
	if err != nil || len(period) != 8 {
		return time.Time{}, fmt.Errorf("%w: period %q must be YYYYMMDD", ErrInvalidInput, period)
	}
	return t, nil
}

func checkSymbol(symbol string) (string, error) {
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: symbol %q must be a variety code such as \"a\"", ErrInvalidInput, symbol)
	}
	return strings.ToLower(symbol), nil
}

func col(name string, kind domain.Kind) domain.Column {
	return domain.Column{Name: name, Kind: kind}
}

func normalizedColumns(schema dataprocessing.Schema) []domain.Column {
	cols := make([]domain.Column, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		name := f.Name
		if name == "" {
			name = f.Source
		}
		cols = append(cols, col(name, f.Kind))
	}
	return cols
}

// SHFE futures-to-spot: JSON list of eight positional fields
var shfeToSpotLayout = dataprocessing.ColumnLayout{
	Width: 8,
	Columns: []dataprocessing.ColumnSpec{
		{Index: 1, Name: "date"},
		{Index: 5, Name: "contract"},
		{Index: 2, Name: "delivery_volume"},
		{Index: 4, Name: "futures_to_spot_volume"},
	},
}

var shfeToSpotSchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "date", Kind: domain.KindDate},
		{Source: "contract", Kind: domain.KindString},
		{Source: "delivery_volume", Kind: domain.KindNumber},
		{Source: "futures_to_spot_volume", Kind: domain.KindNumber},
	},
	LabelColumn: "contract",
}

// SHFE monthly delivery: JSON list of seven positional fields
var shfeDeliveryLayout = dataprocessing.ColumnLayout{
	Width: 7,
	Columns: []dataprocessing.ColumnSpec{
		{Index: 0, Name: "variety"},
		{Index: 3, Name: "delivery_volume_month"},
		{Index: 4, Name: "delivery_volume_share"},
		{Index: 5, Name: "delivery_volume_ytd"},
		{Index: 6, Name: "delivery_volume_ytd_yoy"},
	},
}

var shfeDeliverySchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "variety", Kind: domain.KindString},
		{Source: "delivery_volume_month", Kind: domain.KindNumber},
		{Source: "delivery_volume_share", Kind: domain.KindNumber},
		{Source: "delivery_volume_ytd", Kind: domain.KindNumber},
		{Source: "delivery_volume_ytd_yoy", Kind: domain.KindNumber},
	},
	LabelColumn: "variety",
}

var dceDeliverySchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "品种", Name: "variety", Kind: domain.KindString},
		{Source: "合约", Name: "contract", Kind: domain.KindString},
		{Source: "交割日期", Name: "delivery_date", Kind: domain.KindDate},
		{Source: "交割量", Name: "delivery_volume", Kind: domain.KindNumber},
		{Source: "交割金额", Name: "delivery_amount", Kind: domain.KindNumber},
	},
	KeepUnlisted: true,
	LabelColumn:  "variety",
}

var dceToSpotSchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "品种", Name: "variety", Kind: domain.KindString, Optional: true},
		{Source: "合约代码", Name: "contract", Kind: domain.KindString},
		{Source: "期转现发生日期", Name: "date", Kind: domain.KindDate},
		{Source: "期转现数量", Name: "futures_to_spot_volume", Kind: domain.KindNumber},
	},
	KeepUnlisted: true,
	LabelColumn:  "contract",
}

var dceMatchSchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "合约号", Name: "contract", Kind: domain.KindString},
		{Source: "配对日期", Name: "match_date", Kind: domain.KindDate},
		{Source: "买会员号", Name: "buyer_member", Kind: domain.KindString, Optional: true},
		{Source: "卖会员号", Name: "seller_member", Kind: domain.KindString, Optional: true},
		{Source: "配对手数", Name: "matched_lots", Kind: domain.KindNumber},
		{Source: "交割结算价", Name: "delivery_settlement_price", Kind: domain.KindNumber},
	},
	KeepUnlisted: true,
	LabelColumn:  "contract",
	DropTrailing: 1,
}

var czceToSpotLayout = dataprocessing.ColumnLayout{
	Width: 2,
	Columns: []dataprocessing.ColumnSpec{
		{Index: 0, Name: "contract"},
		{Index: 1, Name: "futures_to_spot_volume"},
	},
}

var czceToSpotSchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "contract", Kind: domain.KindString},
		{Source: "futures_to_spot_volume", Kind: domain.KindNumber},
	},
	LabelColumn: "contract",
}

var czceMatchLayout = dataprocessing.BlockLayout{
	MarkerLabel:    "配对日期",
	Columns:        []string{"seller_member", "seller_member_name", "buyer_member", "buyer_member_name", "delivery_volume"},
	DateColumn:     "match_date",
	ContractColumn: "contract",
}

var czceMatchSchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "seller_member", Kind: domain.KindString},
		{Source: "seller_member_name", Kind: domain.KindString},
		{Source: "buyer_member", Kind: domain.KindString},
		{Source: "buyer_member_name", Kind: domain.KindString},
		{Source: "delivery_volume", Kind: domain.KindNumber},
		{Source: "match_date", Kind: domain.KindDate},
		{Source: "contract", Kind: domain.KindString},
	},
	LabelColumn: "seller_member",
}

var czceDeliveryLayout = dataprocessing.ColumnLayout{
	Width: 3,
	Columns: []dataprocessing.ColumnSpec{
		{Index: 0, Name: "variety"},
		{Index: 1, Name: "delivery_volume"},
		{Index: 2, Name: "delivery_amount"},
	},
}

var czceDeliverySchema = dataprocessing.Schema{
	Fields: []dataprocessing.Field{
		{Source: "variety", Kind: domain.KindString},
		{Source: "delivery_volume", Kind: domain.KindNumber},
		{Source: "delivery_amount", Kind: domain.KindNumber},
	},
	LabelColumn: "variety",
}

func jsonReport(listKey string, layout dataprocessing.ColumnLayout, schema dataprocessing.Schema) func(*exchange.Payload) (*domain.Table, error) {
	return func(p *exchange.Payload) (*domain.Table, error) {
		raw, err := dataprocessing.ParseJSONList(p.Body, listKey, layout)
		if err != nil {
			return nil, err
		}
		return dataprocessing.Normalize(raw, schema)
	}
}

func htmlReport(schema dataprocessing.Schema) func(*exchange.Payload) (*domain.Table, error) {
	return func(p *exchange.Payload) (*domain.Table, error) {
		text, err := p.Text()
		if err != nil {
			return nil, err
		}
		raw, err := dataprocessing.ParseHTMLTable(text)
		if err != nil {
			return nil, err
		}
		return dataprocessing.Normalize(raw, schema)
	}
}

func sheetReport(layout dataprocessing.ColumnLayout, schema dataprocessing.Schema) func(*exchange.Payload) (*domain.Table, error) {
	return func(p *exchange.Payload) (*domain.Table, error) {
		rows, err := dataprocessing.ReadSheetRows(p.Body)
		if err != nil {
			return nil, err
		}
		raw, err := dataprocessing.ParseSheet(rows, 1, layout)
		if err != nil {
			return nil, err
		}
		return dataprocessing.Normalize(raw, schema)
	}
}

func blockReport(layout dataprocessing.BlockLayout, schema dataprocessing.Schema) func(*exchange.Payload) (*domain.Table, error) {
	return func(p *exchange.Payload) (*domain.Table, error) {
		rows, err := dataprocessing.ReadSheetRows(p.Body)
		if err != nil {
			return nil, err
		}
		raw, err := dataprocessing.ParseBlocks(rows, layout)
		if err != nil {
			return nil, err
		}
		return dataprocessing.Normalize(raw, schema)
	}
}

func shfeRequest(pattern string) func(Endpoints, domain.ReportParams) (exchange.Request, error) {
	return func(e Endpoints, p domain.ReportParams) (exchange.Request, error) {
		if _, err := parseMonth(p.Period); err != nil {
			return exchange.Request{}, err
		}
		return exchange.Request{
			Exchange: domain.ExchangeSHFE,
			Method:   http.MethodGet,
			URL:      e.SHFE + fmt.Sprintf(pattern, p.Period),
			Encoding: "utf-8",
		}, nil
	}
}

func czceRequest(file string) func(Endpoints, domain.ReportParams) (exchange.Request, error) {
	return func(e Endpoints, p domain.ReportParams) (exchange.Request, error) {
		if _, err := parseDay(p.Period); err != nil {
			return exchange.Request{}, err
		}
		return exchange.Request{
			Exchange: domain.ExchangeCZCE,
			Method:   http.MethodGet,
			URL:      fmt.Sprintf("%s/cn/DFSStaticFiles/Future/%s/%s/%s", e.CZCE, p.Period[:4], p.Period, file),
			Header:   browserHeaders(e.CZCE + "/"),
			Encoding: "utf-8",
		}, nil
	}
}

func dceDeliveryRequest(e Endpoints, p domain.ReportParams) (exchange.Request, error) {
	month, err := parseMonth(p.Period)
	if err != nil {
		return exchange.Request{}, err
	}
	return exchange.Request{
		Exchange: domain.ExchangeDCE,
		Method:   http.MethodPost,
		URL:      e.DCE + "/publicweb/quotesdata/delivery.html",
		Query: url.Values{
			"deliveryQuotes.variety":     {"all"},
			"year":                       {""},
			"month":                      {""},
			"deliveryQuotes.begin_month": {p.Period},
			"deliveryQuotes.end_month":   {month.AddDate(0, 1, 0).Format("200601")},
		},
		Header: browserHeaders(""),
	}, nil
}

func dceToSpotRequest(e Endpoints, p domain.ReportParams) (exchange.Request, error) {
	if _, err := parseMonth(p.Period); err != nil {
		return exchange.Request{}, err
	}
	return exchange.Request{
		Exchange: domain.ExchangeDCE,
		Method:   http.MethodPost,
		URL:      e.DCE + "/publicweb/quotesdata/ftsDeal.html",
		Query: url.Values{
			"ftsDealQuotes.variety":     {"all"},
			"year":                      {""},
			"month":                     {""},
			"ftsDealQuotes.begin_month": {p.Period},
			"ftsDealQuotes.end_month":   {p.Period},
		},
		Header: browserHeaders(""),
	}, nil
}

func dceMatchRequest(e Endpoints, p domain.ReportParams) (exchange.Request, error) {
	symbol, err := checkSymbol(p.Symbol)
	if err != nil {
		return exchange.Request{}, err
	}
	return exchange.Request{
		Exchange: domain.ExchangeDCE,
		Method:   http.MethodPost,
		URL:      e.DCE + "/publicweb/quotesdata/deliveryMatch.html",
		Query: url.Values{
			"deliveryMatchQuotes.variety": {symbol},
			"contract.contract_id":        {"all"},
			"contract.variety_id":         {symbol},
		},
		Header: browserHeaders(""),
	}, nil
}

// catalogue lists the reports in presentation order
var catalogue = []definition{
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesToSpotSHFE,
			Exchange: domain.ExchangeSHFE,
			Title:    "SHFE futures-to-spot (期转现)",
			Param:    domain.ParamMonth,
			Example:  "202312",
			Columns:  normalizedColumns(shfeToSpotSchema),
		},
		request: shfeRequest("/data/instrument/ExchangeDelivery%s.dat"),
		parse:   jsonReport("ExchangeDelivery", shfeToSpotLayout, shfeToSpotSchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesDeliverySHFE,
			Exchange: domain.ExchangeSHFE,
			Title:    "SHFE monthly delivery (交割情况表)",
			Param:    domain.ParamMonth,
			Example:  "202312",
			Columns:  normalizedColumns(shfeDeliverySchema),
		},
		request: shfeRequest("/data/dailydata/%smonthvarietystatistics.dat"),
		parse:   jsonReport("o_curdelivery", shfeDeliveryLayout, shfeDeliverySchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesDeliveryDCE,
			Exchange: domain.ExchangeDCE,
			Title:    "DCE delivery statistics (交割统计)",
			Param:    domain.ParamMonth,
			Example:  "202312",
			Columns:  normalizedColumns(dceDeliverySchema),
		},
		request: dceDeliveryRequest,
		parse:   htmlReport(dceDeliverySchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesToSpotDCE,
			Exchange: domain.ExchangeDCE,
			Title:    "DCE futures-to-spot (期转现)",
			Param:    domain.ParamMonth,
			Example:  "202312",
			Columns:  normalizedColumns(dceToSpotSchema),
		},
		request: dceToSpotRequest,
		parse:   htmlReport(dceToSpotSchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesDeliveryMatchDCE,
			Exchange: domain.ExchangeDCE,
			Title:    "DCE delivery matching (交割配对表)",
			Param:    domain.ParamSymbol,
			Example:  "a",
			Columns:  normalizedColumns(dceMatchSchema),
		},
		request: dceMatchRequest,
		parse:   htmlReport(dceMatchSchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesToSpotCZCE,
			Exchange: domain.ExchangeCZCE,
			Title:    "CZCE futures-to-spot (期转现统计)",
			Param:    domain.ParamDay,
			Example:  "20231228",
			Columns:  normalizedColumns(czceToSpotSchema),
		},
		request: czceRequest("FutureDataTrdtrades.xls"),
		parse:   sheetReport(czceToSpotLayout, czceToSpotSchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesDeliveryMatchCZCE,
			Exchange: domain.ExchangeCZCE,
			Title:    "CZCE delivery matching (交割配对)",
			Param:    domain.ParamDay,
			Example:  "20210106",
			Columns:  normalizedColumns(czceMatchSchema),
		},
		request: czceRequest("FutureDataDelsettle.xls"),
		parse:   blockReport(czceMatchLayout, czceMatchSchema),
	},
	{
		info: domain.ReportInfo{
			ID:       domain.ReportFuturesDeliveryCZCE,
			Exchange: domain.ExchangeCZCE,
			Title:    "CZCE monthly delivery (月度交割查询)",
			Param:    domain.ParamDay,
			Example:  "20210112",
			Columns:  normalizedColumns(czceDeliverySchema),
		},
		request: czceRequest("FutureDataSettlematched.xls"),
		parse:   sheetReport(czceDeliveryLayout, czceDeliverySchema),
	},
}

// ParamName returns the query parameter a report reads its input from
func ParamName(kind domain.ParamKind) string {
	if kind == domain.ParamSymbol {
		return "symbol"
	}
	return "period"
}

// paramValue picks the input a report is keyed by
func paramValue(kind domain.ParamKind, p domain.ReportParams) string {
	if kind == domain.ParamSymbol {
		return p.Symbol
	}
	return p.Period
}
