// Package remote is the HTTP client for the duty API, used by deployments
// that run against a central instance while keeping a local working copy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ondutypro/onduty-api/internal/dto"
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// Client talks to a remote duty API over JSON.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient builds a client for the given base URL, e.g. "https://api.example.com/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, typically after login or refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope mirrors the API response contract.
type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// Health checks remote liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListRequests fetches duty requests matching the query.
func (c *Client) ListRequests(ctx context.Context, query dto.RequestQuery) ([]models.Request, error) {
	path := "/requests"
	if qs := encodeRequestQuery(query); qs != "" {
		path += "?" + qs
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var requests []models.Request
	if err := c.do(req, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateRequest submits a new duty request and returns the stored copy with
// its server-assigned id.
func (c *Client) CreateRequest(ctx context.Context, payload dto.CreateRequestRequest) (*models.Request, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/requests", payload)
	if err != nil {
		return nil, err
	}
	var created models.Request
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRequest patches a duty request.
func (c *Client) UpdateRequest(ctx context.Context, id string, patch dto.UpdateRequestRequest) (*models.Request, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/requests/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	var updated models.Request
	if err := c.do(req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRequest removes a duty request.
func (c *Client) DeleteRequest(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/requests/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListUsers fetches the user directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := c.do(req, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do executes the request and decodes the envelope. Transport failures and
// 5xx responses are reported as the remote being unavailable; application
// errors carried in the envelope pass through unchanged.
func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, appErrors.ErrRemoteUnavailable.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return appErrors.Wrap(
			fmt.Errorf("remote returned %d", resp.StatusCode),
			appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, appErrors.ErrRemoteUnavailable.Message,
		)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, "remote returned malformed response")
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return appErrors.New(appErrors.ErrInternal.Code, resp.StatusCode, fmt.Sprintf("remote returned %d", resp.StatusCode))
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, "remote returned malformed payload")
		}
	}
	return nil
}

func encodeRequestQuery(query dto.RequestQuery) string {
	values := url.Values{}
	if query.ManagerID != "" {
		values.Set("managerId", query.ManagerID)
	}
	if len(query.Status) > 0 {
		parts := make([]string, 0, len(query.Status))
		for _, s := range query.Status {
			parts = append(parts, string(s))
		}
		values.Set("status", strings.Join(parts, ","))
	}
	if query.Limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", query.Limit))
	}
	if query.Offset > 0 {
		values.Set("offset", fmt.Sprintf("%d", query.Offset))
	}
	return values.Encode()
}
