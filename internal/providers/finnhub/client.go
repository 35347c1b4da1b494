// Package finnhub implements the primary market-data provider.
// Free tier: 60 API calls/minute.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
)

// ProviderName identifies this client to the rate limiter and logs.
const ProviderName = "finnhub"

// QuotaPerMinute is the free-tier call budget.
const QuotaPerMinute = 60

// Client talks to the Finnhub REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a Finnhub client. A missing API key is a
// configuration error, fatal for this provider at startup.
func NewClient(apiKey string, log zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Provider: ProviderName, Missing: "FINNHUB_API_KEY"}
	}
	return &Client{
		baseURL: "https://finnhub.io/api/v1",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", ProviderName).Logger(),
	}, nil
}

// Name implements providers.Provider.
func (c *Client) Name() string {
	return ProviderName
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	PreviousClose float64 `json:"pc"`
	PercentChange float64 `json:"dp"`
	Volume        float64 `json:"v"`
	Timestamp     int64   `json:"t"`
}

// Quote fetches the latest price snapshot. Forex pairs are addressed
// through the OANDA exchange prefix.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var resp quoteResponse
	params := url.Values{"symbol": {exchangeSymbol(symbol)}}
	if err := c.get(ctx, "/quote", params, &resp); err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{
		Symbol:        symbol,
		Price:         resp.Current,
		PreviousClose: resp.PreviousClose,
		PercentChange: resp.PercentChange,
		Volume:        resp.Volume,
		Timestamp:     resp.Timestamp,
	}
	if q.Timestamp == 0 {
		q.Timestamp = time.Now().Unix()
	}
	return q, nil
}

type candleResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

// Candles fetches OHLCV history for the trailing lookbackDays.
// A "no_data" status is a valid empty result, not an error.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, lookbackDays int) (domain.CandleSeries, error) {
	to := time.Now().Unix()
	from := to - int64(lookbackDays)*24*60*60

	endpoint := "/stock/candle"
	if isForexPair(symbol) {
		endpoint = "/forex/candle"
	}

	params := url.Values{
		"symbol":     {exchangeSymbol(symbol)},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from, 10)},
		"to":         {strconv.FormatInt(to, 10)},
	}

	var resp candleResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return domain.CandleSeries{}, err
	}

	if resp.Status != "ok" {
		return domain.CandleSeries{}, domain.ErrDataUnavailable
	}

	series := domain.CandleSeries{
		Timestamps: resp.Timestamps,
		Opens:      resp.Opens,
		Highs:      resp.Highs,
		Lows:       resp.Lows,
		Closes:     resp.Closes,
		Volumes:    resp.Volumes,
	}
	if !series.Valid() {
		return domain.CandleSeries{}, fmt.Errorf("finnhub: candle arrays have mismatched lengths for %s", symbol)
	}
	return series, nil
}

type profileResponse struct {
	Name string `json:"name"`
}

// Profile fetches the company display name.
func (c *Client) Profile(ctx context.Context, symbol string) (domain.CompanyProfile, error) {
	var resp profileResponse
	params := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/stock/profile2", params, &resp); err != nil {
		return domain.CompanyProfile{}, err
	}

	if resp.Name == "" {
		return domain.CompanyProfile{}, domain.ErrDataUnavailable
	}
	return domain.CompanyProfile{Symbol: symbol, Name: resp.Name}, nil
}

type sentimentResponse struct {
	Sentiment float64 `json:"sentiment"`
}

// NewsSentiment fetches the aggregated news sentiment score in [-1,1].
func (c *Client) NewsSentiment(ctx context.Context, symbol string) (float64, error) {
	var resp sentimentResponse
	params := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/news-sentiment", params, &resp); err != nil {
		return 0, err
	}
	return resp.Sentiment, nil
}

// get performs a GET with the API key header and decodes the JSON body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Finnhub-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: ProviderName, Kind: domain.KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := domain.KindClient
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = domain.KindRateLimit
		case resp.StatusCode >= 500:
			kind = domain.KindTransport
		}
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("API returned non-200 status")
		return &domain.ProviderError{
			Provider: ProviderName,
			Kind:     kind,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("status %s", resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{
			Provider: ProviderName,
			Kind:     domain.KindTransport,
			Err:      fmt.Errorf("failed to parse response: %w", err),
		}
	}
	return nil
}

func isForexPair(symbol string) bool {
	// Forex pairs use the BASE_QUOTE convention, e.g. EUR_USD.
	for _, r := range symbol {
		if r == '_' {
			return true
		}
	}
	return false
}

func exchangeSymbol(symbol string) string {
	if isForexPair(symbol) {
		return "OANDA:" + symbol
	}
	return symbol
}
