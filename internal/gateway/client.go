// Package gateway is the HTTP client for the bus ticket REST API.
package gateway

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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
)

// Client sends requests to the booking API. Credentials come from the
// Session attached to each request's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *logrus.Logger
}

// NewClient creates a client for cfg.BaseURL with cfg.Timeout per attempt
func NewClient(cfg config.APIConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method    string
	path      string
	query     url.Values
	body      []byte
	noRefresh bool
	accept    string
	requestID string
}

// CallOption adjusts a single call
type CallOption func(*call)

// NoRefresh disables the 401 refresh-and-replay for this call
func NoRefresh() CallOption {
	return func(c *call) {
		c.noRefresh = true
	}
}

// WithQuery appends query parameters
func WithQuery(q url.Values) CallOption {
	return func(c *call) {
		c.query = q
	}
}

// Do sends a JSON request and decodes a JSON response into out. out may be
// nil, a *json.RawMessage, a *[]byte or any JSON-decodable pointer.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...CallOption) error {
	cl, err := c.newCall(method, path, body, opts...)
	if err != nil {
		return err
	}

	respBody, _, err := c.send(ctx, cl)
	if err != nil {
		return err
	}

	return decodeInto(respBody, out, method, path)
}

// Raw sends a request and returns the undecoded response body with its
// content type. Used for binary resources such as PDFs.
func (c *Client) Raw(ctx context.Context, method, path string, opts ...CallOption) ([]byte, string, error) {
	cl, err := c.newCall(method, path, nil, opts...)
	if err != nil {
		return nil, "", err
	}
	cl.accept = "application/pdf, application/octet-stream, */*"

	respBody, header, err := c.send(ctx, cl)
	if err != nil {
		return nil, "", err
	}
	return respBody, header.Get("Content-Type"), nil
}

// GetOrPost issues a GET with params as the query string. If the backend
// answers 400, 404 or 405 the same params are POSTed as a JSON body to the
// path without its query. This exists only for report routes whose method
// differs between backend deployments.
func (c *Client) GetOrPost(ctx context.Context, path string, params map[string]string, out interface{}) error {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	err := c.Do(ctx, http.MethodGet, path, nil, out, WithQuery(query))
	if err == nil || !IsStatus(err, http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed) {
		return err
	}

	postPath := path
	if i := strings.Index(postPath, "?"); i >= 0 {
		postPath = postPath[:i]
	}

	c.logger.WithFields(logrus.Fields{
		"path":   path,
		"status": statusOf(err),
	}).Debug("GET rejected, retrying report request as POST")

	return c.Do(ctx, http.MethodPost, postPath, params, out)
}

func (c *Client) newCall(method, path string, body interface{}, opts ...CallOption) (*call, error) {
	cl := &call{
		method:    method,
		path:      path,
		accept:    "application/json",
		requestID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(cl)
	}

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		cl.body = data
	}

	if strings.HasPrefix(path, "/auth/") {
		cl.noRefresh = true
	}

	return cl, nil
}

// send performs the call, refreshing the token and replaying at most once
// after a 401
func (c *Client) send(ctx context.Context, cl *call) ([]byte, http.Header, error) {
	session, hasSession := SessionFromContext(ctx)

	token := ""
	if hasSession {
		token = session.AccessToken()
	}

	status, header, body, err := c.roundTrip(ctx, cl, token)
	if err != nil {
		return nil, nil, err
	}

	if status == http.StatusUnauthorized && hasSession && !cl.noRefresh {
		newToken, renewErr := session.RenewAccessToken(ctx, token)
		if renewErr != nil {
			c.logger.WithFields(logrus.Fields{
				"method":     cl.method,
				"path":       cl.path,
				"request_id": cl.requestID,
			}).WithError(renewErr).Warn("Token refresh failed, session cleared")

			return nil, nil, &APIError{
				Kind:    KindAuth,
				Status:  http.StatusUnauthorized,
				Code:    "SESSION_EXPIRED",
				Message: "Your session has expired. Please log in again.",
				Method:  cl.method,
				Path:    cl.path,
				Err:     fmt.Errorf("%w: %v", ErrSessionExpired, renewErr),
			}
		}

		status, header, body, err = c.roundTrip(ctx, cl, newToken)
		if err != nil {
			return nil, nil, err
		}
	}

	if status < 200 || status >= 300 {
		return nil, nil, newAPIError(cl.method, cl.path, status, body)
	}

	return body, header, nil
}

func (c *Client) roundTrip(ctx context.Context, cl *call, token string) (int, http.Header, []byte, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}
		target += separator + cl.query.Encode()
	}

	var reader io.Reader
	if cl.body != nil {
		reader = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build %s %s request: %w", cl.method, cl.path, err)
	}

	req.Header.Set("Accept", cl.accept)
	req.Header.Set("X-Request-ID", cl.requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method":     cl.method,
			"path":       cl.path,
			"request_id": cl.requestID,
		}).WithError(err).Warn("Backend call failed")
		return 0, nil, nil, &NetworkError{Method: cl.method, Path: cl.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, &NetworkError{Method: cl.method, Path: cl.path, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"method":     cl.method,
		"path":       cl.path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
		"request_id": cl.requestID,
		"has_auth":   token != "",
	}).Debug("Backend call completed")

	return resp.StatusCode, resp.Header, body, nil
}

func decodeInto(body []byte, out interface{}, method, path string) error {
	switch dst := out.(type) {
	case nil:
		return nil
	case *json.RawMessage:
		*dst = append((*dst)[:0], body...)
		return nil
	case *[]byte:
		*dst = append((*dst)[:0], body...)
		return nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func pathf(format string, args ...interface{}) string {
	escaped := make([]interface{}, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return fmt.Sprintf(format, escaped...)
}
