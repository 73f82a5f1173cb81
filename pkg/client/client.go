// Package client provides the public Go SDK for the Phone Advisor API.
package client

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

	"github.com/google/uuid"
)

// DefaultBaseURL is used when ClientConfig.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000"

// ErrUnavailable is matched by errors returned while the server cannot
// generate chat replies (HTTP 503).
var ErrUnavailable = errors.New("generation unavailable")

// Client is the public SDK client for the Phone Advisor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
}

// NewClient creates a new Phone Advisor client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// Phone is one catalog record.
type Phone struct {
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Battery  int     `json:"battery"`
	RAM      int     `json:"ram"`
	CameraMP int     `json:"camera_mp"`
	ImageURL *string `json:"image_url"`
	Screen   float64 `json:"screen"`
}

// Match is a phone with its match score.
type Match struct {
	Phone
	MatchPercentage float64  `json:"match_percentage"`
	Reasons         []string `json:"reasons"`
}

// Preferences narrow and rank the catalog. Nil fields are unset.
type Preferences struct {
	Brand       *string  `json:"brand,omitempty"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	MinBattery  *int     `json:"min_battery,omitempty"`
	MinRAM      *int     `json:"min_ram,omitempty"`
	MinCameraMP *int     `json:"min_camera_mp,omitempty"`
	Screen      *float64 `json:"screen,omitempty"`
}

// PriceRange is the cheapest and most expensive catalog price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Stats are catalog maxima.
type Stats struct {
	MaxPrice   float64 `json:"max_price"`
	MaxBattery int     `json:"max_battery"`
	MaxRAM     int     `json:"max_ram"`
	MaxCamera  int     `json:"max_camera"`
}

// FilterResponse is the result of Filter.
type FilterResponse struct {
	Count   int     `json:"count"`
	Results []Match `json:"results"`
}

// ChatReply is a generated answer. Type is "RAG" when catalog data grounded
// the answer and "GENERAL" otherwise.
type ChatReply struct {
	Reply string `json:"reply"`
	Type  string `json:"type"`
}

// Recommendation is the structured reply to a chat message.
type Recommendation struct {
	Message         string  `json:"message"`
	Recommendations []Match `json:"recommendations"`
}

// RebuildResult describes a completed index build.
type RebuildResult struct {
	Documents int       `json:"documents"`
	Version   string    `json:"version"`
	Model     string    `json:"model"`
	BuiltAt   time.Time `json:"built_at"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("phone advisor: %d %s", e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports 503 responses as ErrUnavailable.
func (e *APIError) Is(target error) bool {
	return target == ErrUnavailable && e.StatusCode == http.StatusServiceUnavailable
}

// Brands returns the sorted unique brand list.
func (c *Client) Brands(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/brands", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PriceRange returns the catalog price range.
func (c *Client) PriceRange(ctx context.Context) (*PriceRange, error) {
	var out PriceRange
	if err := c.do(ctx, http.MethodGet, "/price-range", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns catalog maxima.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter returns admitted phones ranked by match percentage.
func (c *Client) Filter(ctx context.Context, prefs Preferences) (*FilterResponse, error) {
	var out FilterResponse
	if err := c.do(ctx, http.MethodPost, "/filter", prefs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat asks a free-text question.
func (c *Client) Chat(ctx context.Context, message string) (*ChatReply, error) {
	var out ChatReply
	if err := c.do(ctx, http.MethodPost, "/chat", map[string]string{"message": message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommend turns a free-text message into ranked recommendations.
func (c *Client) Recommend(ctx context.Context, message string) (*Recommendation, error) {
	var out Recommendation
	if err := c.do(ctx, http.MethodPost, "/chat/recommend", map[string]string{"message": message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RebuildIndex re-embeds the catalog on the server.
func (c *Client) RebuildIndex(ctx context.Context) (*RebuildResult, error) {
	var out RebuildResult
	if err := c.do(ctx, http.MethodPost, "/admin/index/rebuild", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns nil when the server reports healthy.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("unexpected health status %q", out.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
