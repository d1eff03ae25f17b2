package exporter

import (
	"fmt"
	"strings"

	"deliverystats/pkg/contracts/domain"
)

// Format is an output encoding for report tables
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, xlsx or json)", s)
	}
}

// ContentType returns the media type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName names the export of one report run, e.g. futures_to_spot_shfe_202312.csv
func FileName(result *domain.ReportResult, f Format) string {
	input := result.Params.Period
	if result.Report.Param == domain.ParamSymbol {
		input = strings.ToLower(result.Params.Symbol)
	}
	if input == "" {
		return fmt.Sprintf("%s.%s", result.Report.ID, f)
	}
	return fmt.Sprintf("%s_%s.%s", result.Report.ID, input, f)
}
