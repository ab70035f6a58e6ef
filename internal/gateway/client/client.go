// Package client is the Go SDK for the gateway HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bioauth/internal/facetec"
	"bioauth/internal/gateway/models"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/httputil"
)

// CodeUnreachable is reported when the gateway could not be reached at all.
const CodeUnreachable = "GATEWAY_UNREACHABLE"

// Error is a gateway failure as seen by the caller.
type Error struct {
	Status      int
	Code        string
	ShouldRetry bool
	Description string
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s", e.Code)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the gateway at baseURL. Biometric calls queue
// behind each other on the gateway, so the default timeout is generous.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SessionToken(ctx context.Context) (string, error) {
	var res models.SessionTokenResponse
	if err := c.do(ctx, http.MethodGet, "/facetec-session-token", nil, &res); err != nil {
		return "", err
	}
	return res.SessionToken, nil
}

func (c *Client) DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	var res facetec.DeviceSDKParams
	err := c.do(ctx, http.MethodGet, "/facetec-device-sdk-params", nil, &res)
	return res, err
}

func (c *Client) Enroll(ctx context.Context, req models.EnrollRequest) error {
	return c.do(ctx, http.MethodPost, "/enroll", req, nil)
}

func (c *Client) Authenticate(ctx context.Context, req models.AuthenticateRequest) (*ticket.SignedTicket, error) {
	var res models.AuthenticateResponse
	if err := c.do(ctx, http.MethodPost, "/authenticate", req, &res); err != nil {
		return nil, err
	}
	return &ticket.SignedTicket{
		Ticket:          res.AuthTicket,
		Signature:       res.AuthTicketSignature,
		SignerPublicKey: res.SignerPublicKey,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Code: CodeUnreachable, ShouldRetry: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb httputil.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.ErrorCode == "" {
			return &Error{
				Status:      resp.StatusCode,
				Code:        models.CodeInternal,
				ShouldRetry: resp.StatusCode >= 500,
				Description: http.StatusText(resp.StatusCode),
			}
		}
		return &Error{
			Status:      resp.StatusCode,
			Code:        eb.ErrorCode,
			ShouldRetry: eb.ShouldRetry != nil && *eb.ShouldRetry,
			Description: eb.Description,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
