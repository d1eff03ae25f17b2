package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"deliverystats/internal/shared/testutil"
	"deliverystats/pkg/contracts/domain"
)

type fetchObservation struct {
	exchange string
	outcome  string
	size     int
}

type recorderStub struct {
	mu   sync.Mutex
	seen []fetchObservation
}

func (r *recorderStub) ObserveFetch(exchange, outcome string, _ time.Duration, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, fetchObservation{exchange, outcome, size})
}

func TestFetch_SendsQueryAndHeaders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<table></table>"))
	}))
	defer server.Close()

	rec := &recorderStub{}
	client := NewClient(WithRecorder(rec), WithTimeout(5*time.Second))

	payload, err := client.Fetch(context.Background(), Request{
		Exchange: domain.ExchangeDCE,
		Method:   http.MethodPost,
		URL:      server.URL + "/delivery.html",
		Query:    url.Values{"year": {"2024"}, "month": {"2"}},
		Header:   http.Header{"Referer": {"http://www.dce.com.cn/"}},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "2024", got.URL.Query().Get("year"))
	assert.Equal(t, "2", got.URL.Query().Get("month"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "http://www.dce.com.cn/", got.Header.Get("Referer"))

	assert.Equal(t, "utf-8", payload.Encoding)
	assert.Equal(t, []byte("<table></table>"), payload.Body)
	assert.Equal(t, []fetchObservation{{"dce", "ok", len(payload.Body)}}, rec.seen)
}

func TestFetch_Non2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	rec := &recorderStub{}
	client := NewClient(WithRecorder(rec))

	payload, err := client.Fetch(context.Background(), Request{
		Exchange: domain.ExchangeCZCE,
		URL:      server.URL + "/FutureDataTrdtrades.xls",
	})
	require.Error(t, err)
	assert.Nil(t, payload)
	assert.True(t, errors.Is(err, ErrTransport))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, domain.ExchangeCZCE, te.Exchange)
	assert.Equal(t, "error", rec.seen[0].outcome)
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	t.Run("body over the limit fails", func(t *testing.T) {
		rec := &recorderStub{}
		client := NewClient(WithMaxBodyBytes(63), WithRecorder(rec))

		payload, err := client.Fetch(context.Background(), Request{
			Exchange: domain.ExchangeDCE,
			URL:      server.URL + "/publicweb/quotesdata/delivery.html",
		})
		require.Error(t, err)
		assert.Nil(t, payload)
		assert.True(t, errors.Is(err, ErrTransport))
		assert.Contains(t, err.Error(), "exceeds 63 bytes")
		assert.Equal(t, "error", rec.seen[0].outcome)
	})

	t.Run("body at the limit is read whole", func(t *testing.T) {
		client := NewClient(WithMaxBodyBytes(64))

		payload, err := client.Fetch(context.Background(), Request{
			Exchange: domain.ExchangeDCE,
			URL:      server.URL + "/publicweb/quotesdata/delivery.html",
		})
		require.NoError(t, err)
		assert.Len(t, payload.Body, 64)
	})
}

func TestFetch_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Fetch(context.Background(), Request{Exchange: domain.ExchangeSHFE, URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestFetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().Fetch(ctx, Request{Exchange: domain.ExchangeSHFE, URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_LogsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger, handler := testutil.NewTestLogger(t)
	_, err := NewClient(WithLogger(logger)).Fetch(context.Background(), Request{
		Exchange: domain.ExchangeDCE,
		URL:      server.URL,
	})
	require.Error(t, err)
	assert.True(t, handler.ContainsMessage("exchange request failed"))
}

func TestPayloadText_DecodesGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("<td>豆一</td>")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload Payload
	}{
		{
			name:    "declared charset",
			payload: Payload{Body: []byte(encoded), Encoding: "gbk"},
		},
		{
			name:    "content type",
			payload: Payload{Body: []byte(encoded), ContentType: "text/html; charset=GBK"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.payload.Text()
			require.NoError(t, err)
			assert.Equal(t, "<td>豆一</td>", text)
		})
	}

	utf := Payload{Body: []byte("<td>豆一</td>"), Encoding: "utf-8"}
	text, err := utf.Text()
	require.NoError(t, err)
	assert.Equal(t, "<td>豆一</td>", text)
}

func TestDeclaredCharset(t *testing.T) {
	assert.Equal(t, "gb2312", declaredCharset("text/html;charset=gb2312"))
	assert.Equal(t, "", declaredCharset("application/json"))
	assert.Equal(t, "", declaredCharset(""))
	assert.Equal(t, "", declaredCharset(";;;"))
}
