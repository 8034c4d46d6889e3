// Package transport sends JSON requests to the voucher backend. It attaches the bearer
// credential, decodes responses and converts every failure into an AppError at the
// boundary so no raw protocol error escapes.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/Alqudimi/wifi-network-manager/config"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/metrics"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
)

const (
	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

// Request describes one backend call.
type Request struct {
	Method string
	// Path is appended to the configured base URL and must start with "/".
	Path string
	// Body is JSON-encoded when non-nil.
	Body any
	// Token is attached as the Authorization header when it carries an access token.
	Token *oauth2.Token
	// Route tags metrics and logs; empty derives it from Path.
	Route string
}

// Options groups dependencies for Client.
type Options struct {
	Config config.APIConfig
	// HTTPClient overrides the default client; its Timeout and Jar are left untouched.
	HTTPClient *http.Client
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// Client is the JSON-over-HTTP transport. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    statsd.Sink
	logger     *slog.Logger
}

// New creates a Client from opts.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.CookiesEnabled {
			jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
			if err != nil {
				return nil, fmt.Errorf("create cookie jar: %w", err)
			}
			httpClient.Jar = jar
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "transport"),
	}, nil
}

// BaseURL returns the REST root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req and decodes a 2xx JSON body into out (when out is non-nil).
// Failures are *apperrors.AppError values:
// network failures are network_unavailable, undecodable bodies are server_error and
// non-2xx responses carry the backend's message with a code derived from the status.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	route := req.Route
	if route == "" {
		route = RouteOf(req.Path)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	status, err := c.do(ctx, method, req, out)
	elapsed := time.Since(start)

	metrics.EmitRequest(c.metrics, metrics.RequestMetric{
		Method:   method,
		Route:    route,
		Status:   status,
		Duration: elapsed,
		Err:      err,
	})
	if err != nil {
		c.logger.DebugContext(ctx, "backend request failed",
			"method", method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"error", err,
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, method string, req Request, out any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fromContextError(err)
	}
	if !strings.HasPrefix(req.Path, "/") {
		return 0, apperrors.ValidationField("path", "request path must start with /")
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "encode request body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, body)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != nil && req.Token.AccessToken != "" {
		req.Token.SetAuthHeader(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fromSendError(ctx, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fromSendError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, errorFromResponse(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		appErr := apperrors.Wrap(err, apperrors.ErrCodeServerError, "malformed response from server")
		appErr.Status = resp.StatusCode
		return resp.StatusCode, appErr
	}
	return resp.StatusCode, nil
}

func fromContextError(err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "request timed out")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "request canceled")
}

func fromSendError(ctx context.Context, err error) *apperrors.AppError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fromContextError(ctxErr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "request timed out")
	}
	return apperrors.NetworkUnavailable(err)
}
