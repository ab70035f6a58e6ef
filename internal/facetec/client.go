// Package facetec is a typed client for the FaceTec server REST API.
//
// The server is stateful: enrollments are keyed by an externalDatabaseRefID
// and 3D-DB searches match a fresh scan against enrolled groups. The client
// performs no retries; VendorError.Retryable tells callers what is transient.
package facetec

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bioauth/pkg/platform/circuit"
)

const (
	maxResponseBytes = 4 << 20
	defaultTimeout   = 30 * time.Second
)

// Client talks to a FaceTec server.
type Client struct {
	baseURL    string
	deviceKey  string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
	onDegraded func(bool)
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Callers that run vendor
// calls without a deadline rely on the client's Timeout to bound them.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBreaker tracks consecutive transient failures.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithDegradedObserver is called whenever the breaker opens or closes.
func WithDegradedObserver(fn func(degraded bool)) Option {
	return func(c *Client) {
		c.onDegraded = fn
	}
}

// New constructs a client for the server at baseURL.
func New(baseURL, deviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		deviceKey:  deviceKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		breaker:    circuit.New("facetec"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Degraded reports whether recent calls have been failing.
func (c *Client) Degraded() bool {
	return c.breaker.IsOpen()
}

// SessionToken requests a session token for the device SDK.
func (c *Client) SessionToken(ctx context.Context) (string, error) {
	var res SessionTokenResponse
	if err := c.do(ctx, "session-token", http.MethodGet, "/session-token", nil, &res); err != nil {
		return "", err
	}
	if err := checkBase("session-token", res.ResponseBase); err != nil {
		return "", err
	}
	if !res.Success || res.SessionToken == "" {
		return "", &VendorError{Op: "session-token", Message: "no session token issued"}
	}
	return res.SessionToken, nil
}

// Enrollment3D processes a face scan and stores it under req.ExternalDatabaseRefID.
func (c *Client) Enrollment3D(ctx context.Context, req Enrollment3DRequest) (*Enrollment3DResponse, error) {
	var res Enrollment3DResponse
	if err := c.do(ctx, "enrollment-3d", http.MethodPost, "/enrollment-3d", req, &res); err != nil {
		return nil, err
	}
	if err := checkBase("enrollment-3d", res.ResponseBase); err != nil {
		return nil, TranslateEnrollmentError(err)
	}
	if !res.Success {
		c.logRejection(ctx, req.ExternalDatabaseRefID, res)
		return &res, ErrFaceScanRejected
	}
	return &res, nil
}

// DBSearch matches an enrollment against a group.
func (c *Client) DBSearch(ctx context.Context, req DBSearchRequest) (*DBSearchResponse, error) {
	var res DBSearchResponse
	if err := c.do(ctx, "3d-db/search", http.MethodPost, "/3d-db/search", req, &res); err != nil {
		return nil, err
	}
	if err := checkBase("3d-db/search", res.ResponseBase); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, &VendorError{Op: "3d-db/search", Message: "search unsuccessful"}
	}
	return &res, nil
}

// DBEnroll adds an enrollment to a group so later searches can find it.
func (c *Client) DBEnroll(ctx context.Context, req DBEnrollRequest) error {
	var res ResponseBase
	if err := c.do(ctx, "3d-db/enroll", http.MethodPost, "/3d-db/enroll", req, &res); err != nil {
		return err
	}
	if err := checkBase("3d-db/enroll", res); err != nil {
		return err
	}
	if !res.Success {
		return &VendorError{Op: "3d-db/enroll", Message: "enroll unsuccessful"}
	}
	return nil
}

// checkBase turns an error envelope into a terminal VendorError.
func checkBase(op string, base ResponseBase) error {
	if base.Error {
		return &VendorError{Op: op, Message: base.ErrorMessage}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &VendorError{Op: op, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &VendorError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("X-Device-Key", c.deviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordOutcome(op, true)
		return &VendorError{Op: op, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordOutcome(op, true)
		return &VendorError{Op: op, Status: resp.StatusCode, Retryable: true, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		c.recordOutcome(op, true)
		return &VendorError{Op: op, Status: resp.StatusCode, Retryable: true, Message: http.StatusText(resp.StatusCode)}
	}
	c.recordOutcome(op, false)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &VendorError{Op: op, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &VendorError{Op: op, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

func (c *Client) logRejection(ctx context.Context, ref string, res Enrollment3DResponse) {
	attrs := []any{"ref", ref, "was_processed", res.WasProcessed}
	if res.CallData != nil {
		attrs = append(attrs, "tid", res.CallData.TID)
	}
	if checks := res.FaceScanSecurityChecks; checks != nil {
		attrs = append(attrs,
			"liveness", checks.FaceScanLivenessCheckSucceeded,
			"audit_trail", checks.AuditTrailVerificationCheckSucceeded,
			"replay", checks.ReplayCheckSucceeded,
			"session_token", checks.SessionTokenCheckSucceeded,
		)
	}
	c.logger.InfoContext(ctx, "face scan rejected", attrs...)
}

func (c *Client) recordOutcome(op string, transient bool) {
	if transient {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.Warn("facetec marked degraded", "op", op)
			c.notify(true)
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("facetec recovered", "op", op)
		c.notify(false)
	}
}

func (c *Client) notify(degraded bool) {
	if c.onDegraded != nil {
		c.onDegraded(degraded)
	}
}
