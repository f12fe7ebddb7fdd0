// Package uspto talks to the public patent-grant API: one GET per page,
// decoded into grant records.
package uspto

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

const (
	// DefaultBaseURL is the grants endpoint of the USPTO bulk search API.
	DefaultBaseURL = "https://developer.uspto.gov/ibd-api/v1/application/grants"

	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "grantsync/1.0"

	maxErrorBody = 4096
)

// StatusError is returned (as the cause of an ErrCodeUpstream AppError) when
// the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("uspto: %s from %s", e.Status, e.URL)
}

// Query selects one page of grants.
type Query struct {
	From  patent.Date
	To    patent.Date
	Start int
	Rows  int
}

// Values renders q as the API's query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("grantFromDate", q.From.String())
	v.Set("grantToDate", q.To.String())
	v.Set("start", strconv.Itoa(q.Start))
	v.Set("rows", strconv.Itoa(q.Rows))
	return v
}

// Client issues page requests.  It is not safe to change its options after
// the first request; a single Client reuses one *http.Client for every page.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client, typically one built by NewHTTPClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient returns a Client for baseURL.  An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid grants base url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "grants base url scheme must be http or https").WithDetail(baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("uspto")
	return c, nil
}

// NewHTTPClient builds the HTTP client used for the API.  When caFile is set
// the server certificate is verified against the PEM bundle it contains
// instead of the system pool.
func NewHTTPClient(timeout time.Duration, caFile string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read uspto ca certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New(errors.ErrCodeValidation, "no certificates found in uspto ca file").WithDetail(caFile)
		}
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool}
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// URL returns the request URL for q.
func (c *Client) URL(q Query) string {
	return c.baseURL + "?" + q.Values().Encode()
}

// GetPage performs one GET and returns the raw body of a 2xx response.
// Transport failures and non-2xx statuses are ErrCodeUpstream; the latter
// carry a *StatusError.
func (c *Client) GetPage(ctx context.Context, q Query) ([]byte, error) {
	target := c.URL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to create grants request")
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("grants request failed",
			logging.String("url", target),
			logging.String("request_id", requestID),
			logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "grants request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        target,
			Body:       string(body),
		}
		c.logger.Warn("grants request rejected",
			logging.Int("status", resp.StatusCode),
			logging.String("url", target),
			logging.String("request_id", requestID))
		return nil, errors.New(errors.ErrCodeUpstream, "grants api returned non-success status").
			WithDetail(resp.Status).
			WithCause(statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to read grants response")
	}

	c.logger.Debug("grants page received",
		logging.Int("start", q.Start),
		logging.Int("rows", q.Rows),
		logging.Int("bytes", len(body)),
		logging.Duration("latency", time.Since(start)))
	return body, nil
}
