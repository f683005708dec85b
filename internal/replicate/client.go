package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codeberg.org/restage/server/internal/logger"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL           = "https://api.replicate.com/v1"
	defaultPollInterval      = 1500 * time.Millisecond
	defaultMaxWait           = 5 * time.Minute
	defaultMaxPolls          = 300
	defaultRequestsPerSecond = 10
	defaultBurst             = 5
	cancelTimeout            = 10 * time.Second
	maxErrorBody             = 4096
)

// shared HTTP client for Replicate API calls
var replicateHTTPClient = &http.Client{
	Timeout: 60 * time.Second, // per request; polling is bounded separately by MaxWait
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// talks to the Replicate predictions API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	if config.MaxWait <= 0 {
		config.MaxWait = defaultMaxWait
	}

	if config.MaxPolls <= 0 {
		config.MaxPolls = defaultMaxPolls
	}

	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultRequestsPerSecond
	}

	if config.Burst <= 0 {
		config.Burst = defaultBurst
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = replicateHTTPClient
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}
}

// creates a prediction and blocks until it finishes, returning its output URLs
func (c *Client) Run(ctx context.Context, model string, input map[string]any) ([]string, error) {
	prediction, err := c.CreatePrediction(ctx, model, input)
	if err != nil {
		return nil, err
	}

	prediction, err = c.Wait(ctx, prediction)
	if err != nil {
		return nil, err
	}

	if len(prediction.Output) == 0 {
		return nil, ErrEmptyOutput
	}

	return prediction.Output, nil
}

// starts a prediction. model is either "owner/name" for an official model
// or "owner/name:version" for a pinned version.
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	endpoint, body, err := c.createTarget(model, input)
	if err != nil {
		return nil, err
	}

	var prediction Prediction
	if err := c.do(ctx, http.MethodPost, endpoint, body, &prediction); err != nil {
		return nil, fmt.Errorf("failed to create prediction: %w", err)
	}

	return &prediction, nil
}

// fetches the current state of a prediction from its get URL
func (c *Client) GetPrediction(ctx context.Context, getURL string) (*Prediction, error) {
	var prediction Prediction
	if err := c.do(ctx, http.MethodGet, getURL, nil, &prediction); err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return &prediction, nil
}

// asks Replicate to stop a running prediction
func (c *Client) CancelPrediction(ctx context.Context, p *Prediction) error {
	cancelURL := p.URLs.Cancel
	if cancelURL == "" {
		cancelURL = fmt.Sprintf("%s/predictions/%s/cancel", c.config.BaseURL, p.ID)
	}

	if err := c.do(ctx, http.MethodPost, cancelURL, nil, nil); err != nil {
		return fmt.Errorf("failed to cancel prediction: %w", err)
	}

	return nil
}

// polls until the prediction is terminal. Returns ErrTimeout once MaxWait or
// MaxPolls is exceeded and the caller's context error if ctx ends first; in
// both cases the remote prediction is canceled.
func (c *Client) Wait(ctx context.Context, p *Prediction) (*Prediction, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.MaxWait)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	polls := 0

	for !p.Status.Terminal() {
		if polls >= c.config.MaxPolls {
			c.cancelDetached(ctx, p)
			return nil, ErrTimeout
		}

		select {
		case <-waitCtx.Done():
			c.cancelDetached(ctx, p)
			return nil, c.waitError(ctx)
		case <-ticker.C:
		}

		polls++

		next, err := c.GetPrediction(waitCtx, p.URLs.Get)
		if err != nil {
			if waitCtx.Err() != nil {
				c.cancelDetached(ctx, p)
				return nil, c.waitError(ctx)
			}

			return nil, err
		}

		// keep the known URLs if a poll response omits them
		if next.URLs.Get == "" {
			next.URLs = p.URLs
		}

		p = next
	}

	if p.Status != StatusSucceeded {
		message := p.Error
		if message == "" {
			message = "no error message provided"
		}

		return nil, &PredictionError{ID: p.ID, Status: p.Status, Message: message}
	}

	return p, nil
}

// distinguishes the caller going away from our own time budget running out
func (c *Client) waitError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ErrTimeout
}

// best-effort cancel that survives the caller's context being done
func (c *Client) cancelDetached(ctx context.Context, p *Prediction) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if err := c.CancelPrediction(cancelCtx, p); err != nil {
		logger.FromContext(ctx).Warn("failed to cancel abandoned prediction",
			"prediction_id", p.ID,
			"error", err,
		)
	}
}

func (c *Client) createTarget(model string, input map[string]any) (string, *createRequest, error) {
	ref, version, pinned := strings.Cut(model, ":")

	owner, name, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", nil, fmt.Errorf("invalid model reference %q, expected owner/name[:version]", model)
	}

	if pinned {
		if version == "" {
			return "", nil, fmt.Errorf("invalid model reference %q, empty version", model)
		}

		return c.config.BaseURL + "/predictions", &createRequest{Version: version, Input: input}, nil
	}

	endpoint := fmt.Sprintf("%s/models/%s/%s/predictions", c.config.BaseURL, owner, name)

	return endpoint, &createRequest{Input: input}, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
