// Package http implements the HTTP handlers of the delivery statistics
// service. Handlers stay thin: they parse and validate the query, call the
// report service and format the response.
//
// # Routes
//
//	GET /api/reports                     catalogue of the eight reports
//	GET /api/reports/{report}?period=    run a month or day keyed report
//	GET /api/reports/{report}?symbol=    run a variety keyed report
//	GET /healthz /readyz /livez /version health and build information
//	GET /metrics                         Prometheus scrape endpoint
//
// A report answers JSON by default. format=csv or format=xlsx returns the
// table as an attachment named after the report and its input:
//
//	GET /api/reports/futures_to_spot_shfe?period=202312&format=csv
//	Content-Disposition: attachment; filename=futures_to_spot_shfe_202312.csv
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/upstream/transport",
//	    "title": "Exchange Unreachable",
//	    "status": 502,
//	    "detail": "dce: status 503",
//	    "instance": "/api/reports/futures_to_spot_dce",
//	    "exchange": "dce",
//	    "trace_id": "..."
//	}
//
// Query validation failures answer 400, unknown report ids 404, exchange
// failures and unexpected layouts 502.
//
// # Testing
//
// Handlers are tested with httptest against a stub report service.
package http
