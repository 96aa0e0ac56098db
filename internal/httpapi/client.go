package httpapi

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

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
)

// ClientConfig is the configuration for the admin HTTP API client.
type ClientConfig struct {
	URL        string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.URL == "" {
		c.URL = "http://127.0.0.1:8080"
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "httpapi.Client"})

	return nil
}

// Client talks to a running tierd admin API.
type Client struct {
	url    string
	http   *http.Client
	logger log.Logger
}

// NewClient returns a new admin API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		url:    strings.TrimRight(cfg.URL, "/"),
		http:   cfg.HTTPClient,
		logger: cfg.Logger,
	}, nil
}

func (c *Client) ListTasks(ctx context.Context, status, taskType string) ([]TaskResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if taskType != "" {
		q.Set("type", taskType)
	}

	var resp []TaskResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	return resp, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*TaskResponse, error) {
	var resp TaskResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	return &resp, nil
}

func (c *Client) TaskLogs(ctx context.Context, id string) (string, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/logs", nil, nil, &buf); err != nil {
		return "", fmt.Errorf("could not get task logs: %w", err)
	}

	return buf.String(), nil
}

func (c *Client) TaskMoves(ctx context.Context, id string) ([]MoveResponse, error) {
	var resp []MoveResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/moves", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list task moves: %w", err)
	}

	return resp, nil
}

func (c *Client) PauseTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/pause", nil, nil, nil); err != nil {
		return fmt.Errorf("could not pause task: %w", err)
	}
	return nil
}

func (c *Client) ResumeTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/resume", nil, nil, nil); err != nil {
		return fmt.Errorf("could not resume task: %w", err)
	}
	return nil
}

func (c *Client) CreateOSRelease(ctx context.Context, req CreateOSReleaseRequest) (*CreateOSReleaseResponse, error) {
	var resp CreateOSReleaseResponse
	if err := c.do(ctx, http.MethodPost, "/api/os-releases", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("could not create os release: %w", err)
	}

	return &resp, nil
}

func (c *Client) ListOSReleases(ctx context.Context) ([]OSReleaseResponse, error) {
	var resp []OSReleaseResponse
	if err := c.do(ctx, http.MethodGet, "/api/os-releases", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list os releases: %w", err)
	}

	return resp, nil
}

func (c *Client) UpdateTesting(ctx context.Context, req UpdateTestingRequest) (string, error) {
	var resp EnqueueResponse
	if err := c.do(ctx, http.MethodPost, "/api/testing-repo/update", nil, req, &resp); err != nil {
		return "", fmt.Errorf("could not update testing repository: %w", err)
	}

	return resp.TaskID, nil
}

func (c *Client) ListPromotions(ctx context.Context, status, packageID string) ([]PromotionResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if packageID != "" {
		q.Set("package_id", packageID)
	}

	var resp []PromotionResponse
	if err := c.do(ctx, http.MethodGet, "/api/promotions", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list promotion requests: %w", err)
	}

	return resp, nil
}

func (c *Client) GetPromotion(ctx context.Context, id string) (*PromotionResponse, error) {
	var resp PromotionResponse
	if err := c.do(ctx, http.MethodGet, "/api/promotions/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not get promotion request: %w", err)
	}

	return &resp, nil
}

func (c *Client) CreatePromotion(ctx context.Context, req CreatePromotionRequest) (*PromotionResponse, error) {
	var resp PromotionResponse
	if err := c.do(ctx, http.MethodPost, "/api/promotions", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("could not create promotion request: %w", err)
	}

	return &resp, nil
}

func (c *Client) ApprovePromotion(ctx context.Context, id string, req ResolvePromotionRequest) (*PromotionResponse, error) {
	var resp PromotionResponse
	if err := c.do(ctx, http.MethodPost, "/api/promotions/"+url.PathEscape(id)+"/approve", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("could not approve promotion request: %w", err)
	}

	return &resp, nil
}

func (c *Client) DenyPromotion(ctx context.Context, id string, req ResolvePromotionRequest) (*PromotionResponse, error) {
	var resp PromotionResponse
	if err := c.do(ctx, http.MethodPost, "/api/promotions/"+url.PathEscape(id)+"/deny", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("could not deny promotion request: %w", err)
	}

	return &resp, nil
}

// APIError is a non-success admin API response. It unwraps to the model
// error of its status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusConflict:
		return model.ErrAlreadyExists
	case http.StatusBadRequest:
		return model.ErrNotValid
	case http.StatusBadGateway:
		return model.ErrRemote
	}
	return nil
}

// do sends the request, `out` gets the JSON decoded body or the raw one if it's a *bytes.Buffer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.url + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugf("%s %s", method, u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	switch o := out.(type) {
	case nil:
	case *bytes.Buffer:
		o.Write(data)
	default:
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("could not decode response: %w", err)
			}
		}
	}

	return nil
}
