// Package docent is a small client for the Docent collection service: it
// creates collections, publishes them, and uploads agent runs.
package docent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gso-bench/gso-ingest/internal/models"
)

const (
	// DefaultBaseURL is the REST root of the hosted service.
	DefaultBaseURL = "https://api.docent.transluce.org/rest"

	// DefaultAPIKeyEnv names the environment variable holding the API key.
	DefaultAPIKeyEnv = "DOCENT_API_KEY"

	defaultTimeout = 2 * time.Minute

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("docent: API key not set")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("docent: API error (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("docent: API error (status %d)", e.StatusCode)
}

// Client talks to the collection service. It satisfies ingest.Sink.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  "gso-ingest",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createResponse struct {
	CollectionID string `json:"collection_id"`
}

type agentRunsRequest struct {
	AgentRuns []*models.AgentRun `json:"agent_runs"`
}

// CreateCollection creates a collection and returns its id.
func (c *Client) CreateCollection(ctx context.Context, name, description string) (string, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/create", createRequest{Name: name, Description: description}, &resp); err != nil {
		return "", fmt.Errorf("creating collection %q: %w", name, err)
	}
	if resp.CollectionID == "" {
		return "", fmt.Errorf("creating collection %q: response has no collection_id", name)
	}
	return resp.CollectionID, nil
}

// MakeCollectionPublic makes a collection readable without credentials.
func (c *Client) MakeCollectionPublic(ctx context.Context, collectionID string) error {
	if err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(collectionID)+"/make_public", nil, nil); err != nil {
		return fmt.Errorf("making collection %s public: %w", collectionID, err)
	}
	return nil
}

// AddAgentRuns uploads one batch of runs into a collection.
func (c *Client) AddAgentRuns(ctx context.Context, collectionID string, runs []*models.AgentRun) error {
	if len(runs) == 0 {
		return nil
	}
	path := "/" + url.PathEscape(collectionID) + "/agent_runs"
	if err := c.do(ctx, http.MethodPost, path, agentRunsRequest{AgentRuns: runs}, nil); err != nil {
		return fmt.Errorf("adding %d agent runs: %w", len(runs), err)
	}
	return nil
}

// DashboardURL returns the browser link for a collection.
func DashboardURL(dashboardBase, collectionID string) string {
	return strings.TrimSuffix(dashboardBase, "/") + "/" + collectionID
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
