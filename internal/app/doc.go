// Package app wires the delivery statistics HTTP service together:
// configuration, logging, OpenTelemetry, the exchange client, the report
// service and the chi router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and DELIVERY_* variables
//	2. Initialize the JSON logger and OpenTelemetry (metrics always, tracing when enabled)
//	3. Build the exchange client and report service with the shared metrics
//	4. Mount health, metrics and report routes behind the middleware chain
//	5. Serve until SIGINT or SIGTERM, then shut down gracefully
//
// # Usage
//
//	application, err := app.NewApplication("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// NewReportService is shared with the command line tool so both entry points
// fetch reports with the same client settings.
package app
