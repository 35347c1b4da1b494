// Package mlsvc is the client for the ML inference sidecar. Predictions
// augment technical scoring but are strictly optional: a timeout or
// failure is scoped to the single symbol being scored.
package mlsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
)

// DefaultTimeout bounds a single inference call.
const DefaultTimeout = 2 * time.Second

// Client calls the inference service's /predict endpoint.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates an inference client. Both the URL and key are
// required; a service without either is simply not configured and the
// caller should pass a nil client to downstream consumers.
func NewClient(baseURL, apiKey string, log zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, &domain.ConfigurationError{Provider: "ml-service", Missing: "ML_SERVICE_URL"}
	}
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Provider: "ml-service", Missing: "ML_SERVICE_API_KEY"}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		client:  &http.Client{},
		log:     log.With().Str("client", "ml-service").Logger(),
	}, nil
}

type predictRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

type modelPrediction struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

type predictResponse struct {
	Symbol      string                     `json:"symbol"`
	Timeframe   string                     `json:"timeframe"`
	Predictions map[string]modelPrediction `json:"predictions"`
	Consensus   struct {
		Price      float64 `json:"price"`
		Confidence float64 `json:"confidence"`
	} `json:"consensus"`
}

// Predict posts {symbol, timeframe} and returns the consensus
// prediction. The call is cancelled at the configured timeout and the
// expiry surfaces as a *domain.MLTimeoutError for that symbol only.
func (c *Client) Predict(ctx context.Context, symbol, timeframe string) (domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Symbol: symbol, Timeframe: timeframe})
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Prediction{}, &domain.MLTimeoutError{Symbol: symbol, Timeout: c.timeout.String()}
		}
		return domain.Prediction{}, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Prediction{}, fmt.Errorf("ml service returned status %d", resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Prediction{}, fmt.Errorf("failed to parse prediction: %w", err)
	}

	return domain.Prediction{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Price:      parsed.Consensus.Price,
		Confidence: parsed.Consensus.Confidence,
	}, nil
}
