package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"bioauth/internal/chain"
	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
	dErrors "bioauth/pkg/domain-errors"
	"bioauth/pkg/platform/httputil"
)

const Version = "2.0"

// Methods served on POST /.
const (
	MethodEnroll             = "bioauth_enroll"
	MethodAuthenticate       = "bioauth_authenticate"
	MethodStatus             = "bioauth_status"
	MethodDeviceSDKParams    = "bioauth_getFacetecDeviceSdkParams"
	MethodSessionToken       = "bioauth_getFacetecSessionToken"
	MethodTransactionReceipt = "bioauth_getTransactionReceipt"
)

// Request is a JSON-RPC 2.0 call. A missing ID makes it a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

type ErrorData struct {
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
	GatewayCode string `json:"gatewayCode,omitempty"`
}

// StatusResult is returned by bioauth_status.
type StatusResult struct {
	PublicKey  ticket.PublicKey   `json:"public_key"`
	Authorized bool               `json:"authorized"`
	ExpiresAt  models.BlockNumber `json:"expires_at,omitempty"`
	Block      models.BlockNumber `json:"block"`
}

// ReceiptResult is returned by bioauth_getTransactionReceipt.
type ReceiptResult struct {
	Included bool `json:"included"`
	chain.Receipt
}

// DeauthenticateRequest is the body of POST /admin/deauthenticate.
type DeauthenticateRequest struct {
	PublicKey ticket.PublicKey              `json:"public_key"`
	Reason    models.DeauthenticationReason `json:"reason"`
}

func (r *DeauthenticateRequest) Validate() error {
	if r.PublicKey.IsZero() {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: string(dErrors.CodeValidation), Description: "public_key is required"}
	}
	if !r.Reason.Kind.IsValid() {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: string(dErrors.CodeValidation), Description: "reason.kind must be offence, root or key_rotation"}
	}
	return nil
}

var errInvalidParams = errors.New("invalid params")
