// Package alphavantage implements the secondary market-data provider.
// Free tier: 5 API calls/minute, so it only serves as a fallback when
// the primary fails.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
)

// ProviderName identifies this client to the rate limiter and logs.
const ProviderName = "alphavantage"

// QuotaPerMinute is the free-tier call budget.
const QuotaPerMinute = 5

// Client talks to the Alpha Vantage query API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates an Alpha Vantage client. A missing API key is a
// configuration error, fatal for this provider at startup.
func NewClient(apiKey string, log zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Provider: ProviderName, Missing: "ALPHA_VANTAGE_API_KEY"}
	}
	return &Client{
		baseURL: "https://www.alphavantage.co/query",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", ProviderName).Logger(),
		now:     time.Now,
	}, nil
}

// Name implements providers.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// envelope carries the throttling and error notes Alpha Vantage mixes
// into every response body.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// check converts Alpha Vantage's in-body signals into classified errors.
// A Note/Information body is throttling (the API answers 200 for it);
// an Error Message means the symbol has no data.
func (e envelope) check() error {
	if e.ErrorMessage != "" {
		return domain.ErrDataUnavailable
	}
	if e.Note != "" || e.Information != "" {
		msg := e.Note
		if msg == "" {
			msg = e.Information
		}
		return &domain.ProviderError{
			Provider: ProviderName,
			Kind:     domain.KindRateLimit,
			Err:      fmt.Errorf("throttled: %s", msg),
		}
	}
	return nil
}

type globalQuoteResponse struct {
	envelope
	GlobalQuote *struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// Quote fetches a GLOBAL_QUOTE snapshot.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var resp globalQuoteResponse
	if err := c.get(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	}, &resp); err != nil {
		return domain.Quote{}, err
	}
	if err := resp.check(); err != nil {
		return domain.Quote{}, err
	}
	if resp.GlobalQuote == nil || resp.GlobalQuote.Price == "" {
		return domain.Quote{}, domain.ErrDataUnavailable
	}

	q := resp.GlobalQuote
	return domain.Quote{
		Symbol:        symbol,
		Price:         parseFloat(q.Price),
		PreviousClose: parseFloat(q.PreviousClose),
		PercentChange: parseFloat(strings.TrimSuffix(q.ChangePercent, "%")),
		Volume:        parseFloat(q.Volume),
		Timestamp:     c.now().Unix(),
	}, nil
}

type dailySeriesResponse struct {
	envelope
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"6. volume"`
	} `json:"Time Series (Daily)"`
}

// Candles fetches the daily adjusted series and trims it to the lookback
// window. Alpha Vantage only serves daily resolution; anything else is
// reported as unavailable so the chain skips the symbol.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, lookbackDays int) (domain.CandleSeries, error) {
	if resolution != "D" {
		return domain.CandleSeries{}, domain.ErrDataUnavailable
	}

	var resp dailySeriesResponse
	if err := c.get(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY_ADJUSTED"},
		"symbol":     {symbol},
		"outputsize": {"compact"},
	}, &resp); err != nil {
		return domain.CandleSeries{}, err
	}
	if err := resp.check(); err != nil {
		return domain.CandleSeries{}, err
	}
	if len(resp.Series) == 0 {
		return domain.CandleSeries{}, domain.ErrDataUnavailable
	}

	to := c.now().Unix()
	from := to - int64(lookbackDays)*24*60*60

	type entry struct {
		t             int64
		o, h, l, c, v float64
	}
	entries := make([]entry, 0, len(resp.Series))
	for date, v := range resp.Series {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		ts := day.Unix()
		if ts < from || ts > to {
			continue
		}
		entries = append(entries, entry{
			t: ts,
			o: parseFloat(v.Open),
			h: parseFloat(v.High),
			l: parseFloat(v.Low),
			c: parseFloat(v.Close),
			v: parseFloat(v.Volume),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].t < entries[j].t })

	series := domain.CandleSeries{
		Timestamps: make([]int64, 0, len(entries)),
		Opens:      make([]float64, 0, len(entries)),
		Highs:      make([]float64, 0, len(entries)),
		Lows:       make([]float64, 0, len(entries)),
		Closes:     make([]float64, 0, len(entries)),
		Volumes:    make([]float64, 0, len(entries)),
	}
	for _, e := range entries {
		series.Timestamps = append(series.Timestamps, e.t)
		series.Opens = append(series.Opens, e.o)
		series.Highs = append(series.Highs, e.h)
		series.Lows = append(series.Lows, e.l)
		series.Closes = append(series.Closes, e.c)
		series.Volumes = append(series.Volumes, e.v)
	}
	return series, nil
}

type overviewResponse struct {
	envelope
	Symbol string `json:"Symbol"`
	Name   string `json:"Name"`
}

// Profile fetches the company OVERVIEW for the display name.
func (c *Client) Profile(ctx context.Context, symbol string) (domain.CompanyProfile, error) {
	var resp overviewResponse
	if err := c.get(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {symbol},
	}, &resp); err != nil {
		return domain.CompanyProfile{}, err
	}
	if err := resp.check(); err != nil {
		return domain.CompanyProfile{}, err
	}
	if resp.Symbol == "" {
		return domain.CompanyProfile{}, domain.ErrDataUnavailable
	}

	name := resp.Name
	if name == "" {
		name = symbol
	}
	return domain.CompanyProfile{Symbol: resp.Symbol, Name: name}, nil
}

// NewsSentiment is not served by this provider.
func (c *Client) NewsSentiment(ctx context.Context, symbol string) (float64, error) {
	return 0, domain.ErrDataUnavailable
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	requestURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

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
			Str("function", params.Get("function")).
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

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
