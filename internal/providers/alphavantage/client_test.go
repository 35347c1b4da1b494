package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/advisor/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	client.baseURL = server.URL
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", zerolog.New(nil).Level(zerolog.Disabled))

	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ProviderName, ce.Provider)
}

func TestQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "AAPL",
				"05. price": "190.5000",
				"06. volume": "52000000",
				"08. previous close": "188.0000",
				"10. change percent": "1.3298%"
			}
		}`))
	})

	q, err := client.Quote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, 190.5, q.Price)
	assert.Equal(t, 188.0, q.PreviousClose)
	assert.InDelta(t, 1.3298, q.PercentChange, 1e-9)
	assert.Equal(t, 52000000.0, q.Volume)
}

func TestQuoteMissingPayloadIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.Quote(context.Background(), "UNKNOWN")

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestQuoteErrorMessageIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call"}`))
	})

	_, err := client.Quote(context.Background(), "???")

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestQuoteThrottleNoteIsRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Alpha Vantage answers 200 with a Note when throttled.
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`))
	})

	_, err := client.Quote(context.Background(), "AAPL")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.KindRateLimit, pe.Kind)
	assert.True(t, pe.Retryable())
}

func TestCandlesDailySeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2023-11-15": {"1. open": "101", "2. high": "103", "3. low": "100", "4. close": "102", "6. volume": "1100"},
				"2023-11-14": {"1. open": "100", "2. high": "102", "3. low": "99", "4. close": "101", "6. volume": "1000"}
			}
		}`))
	})
	client.now = func() time.Time {
		return time.Date(2023, 11, 16, 12, 0, 0, 0, time.UTC)
	}

	series, err := client.Candles(context.Background(), "AAPL", "D", 7)

	require.NoError(t, err)
	require.True(t, series.Valid())
	require.Equal(t, 2, series.Len())
	// Ascending by time.
	assert.Less(t, series.Timestamps[0], series.Timestamps[1])
	assert.Equal(t, []float64{101, 102}, series.Closes)
}

func TestCandlesNonDailyResolutionUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for non-daily resolution")
	})

	_, err := client.Candles(context.Background(), "EUR_USD", "60", 14)

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		w.Write([]byte(`{"Symbol": "AAPL", "Name": "Apple Inc"}`))
	})

	p, err := client.Profile(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", p.Name)
}

func TestNewsSentimentUnsupported(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.NewsSentiment(context.Background(), "AAPL")

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestServerErrorClassifiedTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Quote(context.Background(), "AAPL")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.KindTransport, pe.Kind)
}
