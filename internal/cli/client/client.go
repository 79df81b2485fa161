package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/biocom-dev/biocom/internal/cli/session"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is kept in RequestError
	maxErrorBody = 64 << 10
)

// Client represents an HTTP client for the analysis backend API
type Client struct {
	baseURL    string
	authPrefix string
	httpClient *http.Client
	timeout    time.Duration
	sessions   *session.Store
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is never
// modified; WithTimeout applies to a copy.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithAuthPrefix sets the path prefix of the login/register/refresh endpoints
func WithAuthPrefix(prefix string) Option {
	return func(c *Client) {
		c.authPrefix = "/" + strings.Trim(prefix, "/")
		if c.authPrefix == "/" {
			c.authPrefix = ""
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new API client. Credentials are read from and written to
// sessions.
func New(baseURL string, sessions *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessions:   sessions,
		validate:   newValidator(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	c.logger = c.logger.With().Str("component", "api").Logger()
	return c
}

// resourceRequest describes one call. It is built by an operation, consumed by
// do and then dropped.
type resourceRequest struct {
	method       string
	endpoint     string
	query        url.Values
	body         any
	form         *multipartForm
	requiresAuth bool
}

type multipartForm struct {
	fields   [][2]string
	fileName string
	file     io.Reader
}

// do sends req and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req resourceRequest, out any) error {
	data, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req resourceRequest) ([]byte, error) {
	var token string
	if req.requiresAuth {
		var ok bool
		token, ok = c.sessions.Get(session.FieldAccessToken)
		if !ok {
			return nil, ErrUnauthenticated
		}
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	// Credentials are attached while building this request only.
	if token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	log := c.logger.With().
		Str("method", req.method).
		Str("endpoint", req.endpoint).
		Str("request_id", requestID).
		Logger()
	log.Debug().Msg("Sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Msg("Request failed")
		return nil, &NetworkError{Method: req.method, Endpoint: req.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if req.requiresAuth && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		log.Warn().Int("status", resp.StatusCode).Msg("Token rejected, clearing session")
		if err := c.sessions.Clear(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to clear persisted session")
		}
		return nil, &AuthExpiredError{Method: req.method, Endpoint: req.endpoint, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn().Int("status", resp.StatusCode).Msg("Request rejected")
		return nil, &RequestError{Method: req.method, Endpoint: req.endpoint, StatusCode: resp.StatusCode, Body: body}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.method, Endpoint: req.endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.Debug().Int("status", resp.StatusCode).Msg("Request succeeded")
	return data, nil
}

func (c *Client) buildRequest(ctx context.Context, req resourceRequest) (*http.Request, error) {
	target := c.baseURL + req.endpoint
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)

	switch {
	case req.form != nil:
		buf, ct, err := encodeMultipart(req.form)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.body != nil:
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body, contentType = bytes.NewReader(jsonData), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func encodeMultipart(form *multipartForm) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range form.fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field[0], err)
		}
	}

	part, err := w.CreateFormFile("file", form.fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, form.file); err != nil {
		return nil, "", fmt.Errorf("failed to read dataset file: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// page is the paginated list envelope the backend uses when pagination is on
type page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// listResource fetches a list endpoint answering either a JSON array or a page.
func listResource[T any](ctx context.Context, c *Client, req resourceRequest) ([]T, error) {
	data, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return items, nil
	}

	var p page[T]
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if p.Results == nil {
		p.Results = []T{}
	}
	return p.Results, nil
}

func (c *Client) authEndpoint(path string) string {
	return c.authPrefix + path
}
