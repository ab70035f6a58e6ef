// Package handler exposes the gateway logic over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bioauth/internal/facetec"
	"bioauth/internal/gateway/models"
	"bioauth/internal/gateway/service"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/httputil"
	"bioauth/pkg/requestcontext"
)

// Service is the gateway logic driven by the handler.
type Service interface {
	GetSessionToken(ctx context.Context) (string, error)
	GetDeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error)
	Enroll(ctx context.Context, req service.EnrollRequest) error
	Authenticate(ctx context.Context, req service.AuthenticateRequest) (*ticket.SignedTicket, error)
	SignerPublicKey() string
}

// VendorHealth reports whether the vendor is currently failing.
type VendorHealth interface {
	Degraded() bool
}

type Handler struct {
	svc    Service
	health VendorHealth
	logger *slog.Logger
}

// New creates a handler. health may be nil.
func New(svc Service, logger *slog.Logger, health VendorHealth) *Handler {
	return &Handler{svc: svc, health: health, logger: logger}
}

// Register mounts the gateway routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/facetec-session-token", h.handleSessionToken)
	r.Get("/facetec-device-sdk-params", h.handleDeviceSDKParams)
	r.Post("/enroll", h.handleEnroll)
	r.Post("/authenticate", h.handleAuthenticate)
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleSessionToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, err := h.svc.GetSessionToken(ctx)
	if err != nil {
		h.fail(ctx, w, "session_token", err, commonError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SessionTokenResponse{SessionToken: token})
}

func (h *Handler) handleDeviceSDKParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := h.svc.GetDeviceSDKParams(ctx)
	if err != nil {
		h.fail(ctx, w, "device_sdk_params", err, commonError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, params)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	err := h.svc.Enroll(ctx, service.EnrollRequest{
		LivenessData:          req.LivenessData,
		LivenessDataSignature: req.LivenessDataSignature,
		PublicKey:             req.PublicKey,
	})
	if err != nil {
		h.fail(ctx, w, "enroll", err, enrollError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.AuthenticateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	signed, err := h.svc.Authenticate(ctx, service.AuthenticateRequest{
		LivenessData:          req.LivenessData,
		LivenessDataSignature: req.LivenessDataSignature,
	})
	if err != nil {
		h.fail(ctx, w, "authenticate", err, authenticateError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AuthenticateResponse{
		AuthTicket:          signed.Ticket,
		AuthTicketSignature: signed.Signature,
		SignerPublicKey:     signed.SignerPublicKey,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := models.HealthResponse{Status: "ok", Vendor: "healthy", SignerPublicKey: h.svc.SignerPublicKey()}
	if h.health != nil && h.health.Degraded() {
		resp.Status = "degraded"
		resp.Vendor = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error, mapErr func(error) *httputil.APIError) {
	apiErr := mapErr(err)
	device := requestcontext.DeviceInfo(ctx)
	attrs := []any{
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error_code", apiErr.Code,
		"device_os", device.OS,
		"error", err,
	}
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "gateway operation failed", attrs...)
	} else {
		h.logger.InfoContext(ctx, "gateway operation refused", attrs...)
	}
	httputil.WriteError(w, apiErr)
}
