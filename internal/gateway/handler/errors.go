package handler

import (
	"context"
	"errors"
	"net/http"

	"bioauth/internal/facetec"
	"bioauth/internal/gateway/models"
	"bioauth/internal/gateway/service"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/httputil"
)

func apiError(status int, code string, retry bool) *httputil.APIError {
	return &httputil.APIError{Status: status, Code: code, ShouldRetry: retry}
}

func enrollError(err error) *httputil.APIError {
	switch {
	case errors.Is(err, ticket.ErrInvalidPublicKey):
		return apiError(http.StatusBadRequest, models.CodeEnrollInvalidPublicKey, false)
	case errors.Is(err, service.ErrInvalidLivenessData):
		return apiError(http.StatusBadRequest, models.CodeEnrollInvalidLivenessData, false)
	case errors.Is(err, service.ErrInvalidLivenessSignature):
		return apiError(http.StatusForbidden, models.CodeEnrollSignatureInvalid, false)
	case errors.Is(err, service.ErrPublicKeyAlreadyUsed):
		return apiError(http.StatusConflict, models.CodeEnrollPublicKeyAlreadyUsed, false)
	case errors.Is(err, service.ErrPersonAlreadyEnrolled):
		return apiError(http.StatusConflict, models.CodeEnrollPersonAlreadyEnrolled, false)
	case errors.Is(err, service.ErrFaceScanRejected):
		return apiError(http.StatusForbidden, models.CodeEnrollFaceScanRejected, true)
	}
	return commonError(err)
}

func authenticateError(err error) *httputil.APIError {
	switch {
	case errors.Is(err, service.ErrInvalidLivenessData):
		return apiError(http.StatusBadRequest, models.CodeAuthInvalidLivenessData, false)
	case errors.Is(err, service.ErrNoMatchFound):
		return apiError(http.StatusNotFound, models.CodeAuthPersonNotFound, false)
	case errors.Is(err, service.ErrInvalidLivenessSignature):
		return apiError(http.StatusForbidden, models.CodeAuthSignatureInvalid, false)
	case errors.Is(err, service.ErrFaceScanRejected):
		return apiError(http.StatusForbidden, models.CodeAuthFaceScanRejected, true)
	case errors.Is(err, service.ErrSigningFailed):
		return apiError(http.StatusInternalServerError, models.CodeAuthSigningFailed, false)
	}
	return commonError(err)
}

func commonError(err error) *httputil.APIError {
	var ve *facetec.VendorError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apiError(http.StatusGatewayTimeout, models.CodeRequestTimeout, true)
	case errors.Is(err, service.ErrSequenceUnavailable):
		return apiError(http.StatusServiceUnavailable, models.CodeSequenceUnavailable, true)
	case errors.As(err, &ve) && ve.Retryable:
		return apiError(http.StatusServiceUnavailable, models.CodeVendorUnavailable, true)
	case errors.As(err, &ve):
		return apiError(http.StatusBadGateway, models.CodeVendorError, false)
	}
	return apiError(http.StatusInternalServerError, models.CodeInternal, false)
}
