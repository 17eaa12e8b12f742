package eloverblik

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	metering "energy-declaration/internal/metering/domain"
)

// DefaultBaseURL is the public Eloverblik host.
const DefaultBaseURL = "https://api.eloverblik.dk"

// Client is a minimal Eloverblik customer API client.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRateLimit bounds outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient constructs an Eloverblik client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("eloverblik: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tokenResponse struct {
	Result string `json:"result"`
}

type meteringPointsResponse struct {
	Result []metering.MeteringPoint `json:"result"`
}

type timeSeriesResponse struct {
	Result []metering.SeriesResult `json:"result"`
}

type timeSeriesRequest struct {
	MeteringPoints meteringPointIDs `json:"meteringPoints"`
}

type meteringPointIDs struct {
	MeteringPoint []string `json:"meteringPoint"`
}

// AccessToken exchanges a refresh token for a short-lived data access token.
func (c *Client) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.New("eloverblik: empty refresh token")
	}
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodGet, "/CustomerApi/api/Token", refreshToken, nil, &resp); err != nil {
		return "", err
	}
	if resp.Result == "" {
		return "", errors.New("eloverblik: empty access token")
	}
	return resp.Result, nil
}

// MeteringPoints lists the customer's metering points.
func (c *Client) MeteringPoints(ctx context.Context, accessToken string) ([]metering.MeteringPoint, error) {
	var resp meteringPointsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/CustomerApi/api/meteringpoints/meteringpoints?includeAll=false", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// TimeSeries retrieves hourly readings for the given points over one calendar year.
func (c *Client) TimeSeries(ctx context.Context, accessToken string, year int, ids []string) ([]metering.SeriesResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	path := fmt.Sprintf("/CustomerApi/api/MeterData/GetTimeSeries/%04d-01-01/%04d-01-01/Hour", year, year+1)
	body := timeSeriesRequest{MeteringPoints: meteringPointIDs{MeteringPoint: ids}}
	var resp timeSeriesResponse
	if err := c.doJSON(ctx, http.MethodPost, path, accessToken, body, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("eloverblik: %s %s: http %d", method, strings.SplitN(path, "?", 2)[0], resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("eloverblik: decode response: %w", err)
	}
	return nil
}
