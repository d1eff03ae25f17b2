// Package services implements the report pipelines that sit between the
// transports (CLI and HTTP) and the exchange websites.
//
// # Reports
//
// Every published statistic is a catalogue entry: an id, the exchange, the
// parameter it is keyed by and the columns it returns. A report run is always
// the same four steps:
//
//	1. validate the period or symbol and build the exchange request
//	2. fetch the payload through a Fetcher (normally *exchange.Client)
//	3. parse the JSON list, HTML table or spreadsheet into a raw table
//	4. normalize: rename columns, coerce numbers and dates, drop summary rows
//
// # Usage
//
//	client := exchange.NewClient(exchange.WithTimeout(30 * time.Second))
//	svc := services.NewDeliveryService(client, services.DefaultEndpoints(), logger)
//
//	table, err := svc.FuturesToSpotSHFE(ctx, "202312")
//	result, err := svc.Report(ctx, domain.ReportFuturesDeliveryCZCE, domain.ReportParams{Period: "20210112"})
//
// # Errors
//
// Bad input wraps ErrInvalidInput and is rejected before any request is sent.
// Unknown report ids wrap ErrUnknownReport. Network and HTTP status failures
// wrap exchange.ErrTransport, and payloads of the wrong layout wrap
// dataprocessing.ErrShape. None of these are retried.
//
// The service keeps no per-call state; one instance may serve concurrent
// requests.
package services
