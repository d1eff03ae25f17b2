package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"

	"deliverystats/pkg/contracts/domain"
)

const tracerName = "deliverystats/exchange"

// ErrTransport is matched by every network, timeout or status failure
var ErrTransport = errors.New("exchange transport failure")

// TransportError reports a failed exchange request.
type TransportError struct {
	Exchange   domain.Exchange
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request %s: status %d %s", e.Exchange, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s request %s: %v", e.Exchange, e.URL, e.Err)
}

// Unwrap exposes the underlying network or context error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) succeed
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Request describes one exchange report request
type Request struct {
	Exchange domain.Exchange
	Method   string
	URL      string
	Query    url.Values
	Header   http.Header
	// Encoding overrides the charset declared by the response
	Encoding string
}

// Payload is the raw body of a report response
type Payload struct {
	URL         string
	Body        []byte
	ContentType string
	// Encoding is the declared charset, empty when the server declared none
	Encoding string
}

// Text decodes the body to UTF-8 using the declared encoding, or by sniffing
// the content when none was declared.
func (p *Payload) Text() (string, error) {
	var (
		r   io.Reader
		err error
	)
	if p.Encoding != "" {
		r, err = charset.NewReaderLabel(p.Encoding, bytes.NewReader(p.Body))
	} else {
		r, err = charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	}
	if err != nil {
		return "", fmt.Errorf("decode %s payload: %w", p.Encoding, err)
	}

	text, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	return string(text), nil
}

// Fetch issues exactly one request and returns the response body. Network
// errors, timeouts and non-2xx statuses return a *TransportError; nothing is
// retried.
func (c *Client) Fetch(ctx context.Context, req Request) (*Payload, error) {
	fullURL := req.URL
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "exchange.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("exchange", string(req.Exchange)),
			attribute.String("http.method", method),
			attribute.String("http.url", fullURL),
		))
	defer span.End()

	start := time.Now()
	payload, err := c.do(ctx, method, fullURL, req)
	elapsed := time.Since(start)

	outcome := "ok"
	size := 0
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "exchange request failed",
			slog.String("exchange", string(req.Exchange)),
			slog.String("url", fullURL),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
	} else {
		size = len(payload.Body)
		span.SetAttributes(attribute.Int("http.response_size", size))
		c.logger.DebugContext(ctx, "exchange request completed",
			slog.String("exchange", string(req.Exchange)),
			slog.String("url", fullURL),
			slog.Duration("elapsed", elapsed),
			slog.Int("bytes", size),
			slog.String("encoding", payload.Encoding))
	}
	if c.recorder != nil {
		c.recorder.ObserveFetch(string(req.Exchange), outcome, elapsed, size)
	}

	return payload, err
}

func (c *Client) do(ctx context.Context, method, fullURL string, req Request) (*Payload, error) {
	fail := func(status int, err error) error {
		return &TransportError{Exchange: req.Exchange, URL: fullURL, StatusCode: status, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("create request: %w", err))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fail(0, fmt.Errorf("read response: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		return nil, fail(0, fmt.Errorf("response body exceeds %d bytes", c.maxBody))
	}

	contentType := resp.Header.Get("Content-Type")
	encoding := req.Encoding
	if encoding == "" {
		encoding = declaredCharset(contentType)
	}

	return &Payload{
		URL:         fullURL,
		Body:        body,
		ContentType: contentType,
		Encoding:    encoding,
	}, nil
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
