// Package rpc exposes the node service as JSON-RPC 2.0 over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bioauth/internal/chain"
	"bioauth/internal/facetec"
	"bioauth/internal/ledger"
	"bioauth/internal/ledger/models"
	"bioauth/internal/node/service"
	"bioauth/internal/ticket"
	dErrors "bioauth/pkg/domain-errors"
	"bioauth/pkg/platform/httputil"
	"bioauth/pkg/platform/middleware/admin"
	"bioauth/pkg/platform/middleware/request"
	"bioauth/pkg/platform/middleware/requesttime"
	"bioauth/pkg/requestcontext"
)

const maxRequestBytes = 8 << 20

// Service is the node orchestration surface.
type Service interface {
	Enroll(ctx context.Context, liveness []byte) error
	Authenticate(ctx context.Context, liveness []byte) (service.AuthenticateResult, error)
	Status(ctx context.Context) (models.Status, error)
	DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error)
	SessionToken(ctx context.Context) (string, error)
}

// Receipts looks up included transactions.
type Receipts interface {
	Receipt(hash string) (chain.Receipt, bool)
}

// Deauthenticator force-removes authorizations.
type Deauthenticator interface {
	Deauthenticate(ctx context.Context, pk ticket.PublicKey, reason models.DeauthenticationReason) error
}

type Server struct {
	svc        Service
	receipts   Receipts
	ledger     Deauthenticator
	adminToken string
	logger     *slog.Logger
}

func NewServer(svc Service, receipts Receipts, ledger Deauthenticator, adminToken string, logger *slog.Logger) *Server {
	return &Server{
		svc:        svc,
		receipts:   receipts,
		ledger:     ledger,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Register mounts the RPC endpoint and the admin routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/", s.handleRPC)
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(s.adminToken, s.logger))
		r.Post("/deauthenticate", s.handleDeauthenticate)
	})
}

// NewRouter wires the node middleware stack around s.
func NewRouter(s *Server, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	s.Register(r)
	return r
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeResponse(w, Response{JSONRPC: Version, ID: json.RawMessage("null"), Error: &Error{Code: CodeParseError, Message: "parse error"}})
		return
	}
	if req.JSONRPC != Version || req.Method == "" {
		writeResponse(w, Response{JSONRPC: Version, ID: idOrNull(req.ID), Error: &Error{Code: CodeInvalidRequest, Message: "invalid request"}})
		return
	}

	started := time.Now()
	result, rpcErr := s.dispatch(ctx, req)
	s.logCall(ctx, req.Method, started, rpcErr)

	if len(req.ID) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	resp := Response{JSONRPC: Version, ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	writeResponse(w, resp)
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, *Error) {
	switch req.Method {
	case MethodEnroll:
		liveness, err := livenessParam(req.Params)
		if err != nil {
			return nil, invalidParams(err)
		}
		if err := s.svc.Enroll(ctx, liveness); err != nil {
			return nil, errorFor(err)
		}
		return true, nil

	case MethodAuthenticate:
		liveness, err := livenessParam(req.Params)
		if err != nil {
			return nil, invalidParams(err)
		}
		res, err := s.svc.Authenticate(ctx, liveness)
		if err != nil {
			return nil, errorFor(err)
		}
		return res, nil

	case MethodStatus:
		st, err := s.svc.Status(ctx)
		if err != nil {
			return nil, errorFor(err)
		}
		return StatusResult{PublicKey: st.PublicKey, Authorized: st.Authorized, ExpiresAt: st.ExpiresAt, Block: st.Block}, nil

	case MethodDeviceSDKParams:
		params, err := s.svc.DeviceSDKParams(ctx)
		if err != nil {
			return nil, errorFor(err)
		}
		return params, nil

	case MethodSessionToken:
		token, err := s.svc.SessionToken(ctx)
		if err != nil {
			return nil, errorFor(err)
		}
		return token, nil

	case MethodTransactionReceipt:
		hash, err := stringParam(req.Params, "tx_hash")
		if err != nil {
			return nil, invalidParams(err)
		}
		receipt, ok := s.receipts.Receipt(hash)
		return ReceiptResult{Included: ok, Receipt: receipt}, nil

	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func (s *Server) logCall(ctx context.Context, method string, started time.Time, rpcErr *Error) {
	attrs := []any{
		"method", method,
		"request_id", requestcontext.RequestID(ctx),
		"duration_ms", time.Since(started).Milliseconds(),
	}
	if rpcErr == nil {
		s.logger.DebugContext(ctx, "rpc call completed", attrs...)
		return
	}
	attrs = append(attrs, "code", rpcErr.Code, "error", rpcErr.Message)
	if rpcErr.Code == CodeInternalError {
		s.logger.ErrorContext(ctx, "rpc call failed", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "rpc call refused", attrs...)
}

func (s *Server) handleDeauthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DeauthenticateRequest](w, r, s.logger, ctx, requestID)
	if !ok {
		return
	}
	err := s.ledger.Deauthenticate(ctx, req.PublicKey, req.Reason)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "authorization removed",
			"request_id", requestID,
			"public_key", req.PublicKey.String(),
			"reason", req.Reason.String(),
		)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ledger.ErrNotAuthorized):
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "identity is not authorized"))
	case errors.Is(err, ledger.ErrInvalidReason):
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid deauthentication reason"))
	default:
		s.logger.ErrorContext(ctx, "deauthentication failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
	}
}

// livenessParam accepts [liveness] or {"liveness_data": liveness}, where
// liveness is the device SDK's JSON object. It is compacted before signing.
func livenessParam(params json.RawMessage) ([]byte, error) {
	raw, err := param(params, "liveness_data")
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: liveness_data must be an object", errInvalidParams)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return buf.Bytes(), nil
}

func stringParam(params json.RawMessage, name string) (string, error) {
	raw, err := param(params, name)
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", errInvalidParams, name)
	}
	return v, nil
}

// param extracts the single parameter from positional or named params.
func param(params json.RawMessage, name string) (json.RawMessage, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(params, &positional); err == nil {
		if len(positional) != 1 {
			return nil, fmt.Errorf("%w: expected 1 parameter, got %d", errInvalidParams, len(positional))
		}
		return positional[0], nil
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(params, &named); err != nil {
		return nil, fmt.Errorf("%w: params must be an array or object", errInvalidParams)
	}
	raw, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", errInvalidParams, name)
	}
	return raw, nil
}

func invalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: err.Error()}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeResponse(w http.ResponseWriter, resp Response) {
	httputil.WriteJSON(w, http.StatusOK, resp)
}
