// Package ledger is the HTTP client and query gateway for the external
// financial ledger. It owns authentication (bearer token with a one-shot
// refresh on 401), query construction, and the flattening of heterogeneous
// ledger document types into a uniform candidate-record shape.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	sandboxBaseURL    = "https://sandbox-ledger.example.com"
	productionBaseURL = "https://ledger.example.com"
	apiVersion        = "v3"
	minorVersion      = "75"
)

// Config holds ledger API connection settings.
type Config struct {
	Environment  string `yaml:"environment"` // sandbox or production
	BaseURL      string `yaml:"base_url"`    // overrides Environment when set
	CompanyID    string `yaml:"company_id"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
}

// Client is an authenticated HTTP client for the ledger API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
}

// NewClient creates a ledger client. Transport-level retries and the
// request timeout come from retryablehttp; auth refresh is layered on top.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{
		cfg:         cfg,
		http:        rc.StandardClient(),
		logger:      logger.With("system", "ledger"),
		accessToken: cfg.AccessToken,
	}
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	if c.cfg.Environment == "production" {
		return productionBaseURL
	}
	return sandboxBaseURL
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/company/%s/%s", c.baseURL(), apiVersion, c.cfg.CompanyID, path)
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// refreshToken exchanges the refresh token for a new access token. Called
// once per request at most, when the API answers 401.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	if c.cfg.RefreshToken == "" || c.cfg.TokenURL == "" {
		return fmt.Errorf("token expired and no refresh credentials configured")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return newAPIError(resp, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	c.mu.Unlock()

	c.logger.Debug("refreshed ledger access token")
	return nil
}

// do performs one API request, refreshing the access token and retrying
// once when the first attempt comes back 401.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if params.Get("minorversion") == "" {
		params.Set("minorversion", minorVersion)
	}

	resp, raw, err := c.send(ctx, method, path, params, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.refreshAccessToken(ctx); err != nil {
			return nil, err
		}
		resp, raw, err = c.send(ctx, method, path, params, body)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp, raw)
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path)+"?"+params.Encode(), reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ledger request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, raw, nil
}

// Get performs a GET against the given API path and decodes the JSON
// response into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// GetAccount fetches a ledger account by id.
func (c *Client) GetAccount(ctx context.Context, accountID string) (Account, error) {
	var envelope struct {
		Account Account `json:"Account"`
	}
	if err := c.Get(ctx, "account/"+accountID, nil, &envelope); err != nil {
		return Account{}, err
	}
	return envelope.Account, nil
}

// QueryDocuments runs a bounded query for one document type and returns the
// raw wire documents. The where clause is embedded as-is; callers escape
// untrusted values with EscapeValue first.
func (c *Client) QueryDocuments(ctx context.Context, docType, where string, maxResults int) ([]document, error) {
	params := url.Values{}
	params.Set("query", BuildQuery(docType, where, maxResults))

	raw, err := c.do(ctx, http.MethodGet, "query", params, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	items, ok := envelope.QueryResponse[docType]
	if !ok {
		return nil, nil // empty result set
	}

	var docs []document
	if err := json.Unmarshal(items, &docs); err != nil {
		return nil, fmt.Errorf("decode %s documents: %w", docType, err)
	}
	return docs, nil
}

// Create posts a new document of the given type and returns the created
// document flattened to a Record (including its assigned id).
func (c *Client) Create(ctx context.Context, docType string, body any) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, strings.ToLower(docType), nil, body)
	if err != nil {
		return Record{}, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Record{}, fmt.Errorf("decode create response: %w", err)
	}

	var doc document
	if items, ok := envelope[docType]; ok {
		if err := json.Unmarshal(items, &doc); err != nil {
			return Record{}, fmt.Errorf("decode created %s: %w", docType, err)
		}
	}
	return flatten(docType, doc)
}
