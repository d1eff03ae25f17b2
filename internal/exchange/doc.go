// Package exchange is the HTTP transport to the exchange websites.
//
// A Client issues one request per Fetch with a browser User-Agent and returns
// the raw payload. Non-2xx responses, timeouts and network failures are
// reported as *TransportError, which matches ErrTransport under errors.Is.
// Nothing is retried.
//
// Payload.Text decodes HTML bodies using the request's declared encoding or
// the response charset, so GBK pages read correctly.
package exchange
