// Package models holds the wire types of the gateway HTTP API, shared by the
// handler and the Go client.
package models

import (
	"net/http"

	"bioauth/internal/ticket"
	"bioauth/pkg/platform/httputil"
)

// Error codes returned in the error_code field.
const (
	CodeEnrollInvalidPublicKey      = "ENROLL_INVALID_PUBLIC_KEY"
	CodeEnrollInvalidLivenessData   = "ENROLL_INVALID_LIVENESS_DATA"
	CodeEnrollSignatureInvalid      = "ENROLL_SIGNATURE_INVALID"
	CodeEnrollPublicKeyAlreadyUsed  = "ENROLL_PUBLIC_KEY_ALREADY_USED"
	CodeEnrollPersonAlreadyEnrolled = "ENROLL_PERSON_ALREADY_ENROLLED"
	CodeEnrollFaceScanRejected      = "ENROLL_FACE_SCAN_REJECTED"
	CodeAuthInvalidLivenessData     = "AUTHENTICATE_INVALID_LIVENESS_DATA"
	CodeAuthPersonNotFound          = "AUTHENTICATE_PERSON_NOT_FOUND"
	CodeAuthSignatureInvalid        = "AUTHENTICATE_SIGNATURE_INVALID"
	CodeAuthFaceScanRejected        = "AUTHENTICATE_FACE_SCAN_REJECTED"
	CodeAuthSigningFailed           = "AUTHENTICATE_SIGNING_FAILED"
	CodeVendorUnavailable           = "VENDOR_UNAVAILABLE"
	CodeVendorError                 = "VENDOR_ERROR"
	CodeSequenceUnavailable         = "SEQUENCE_UNAVAILABLE"
	CodeRequestTimeout              = "REQUEST_TIMEOUT"
	CodeInternal                    = "LOGIC_INTERNAL_ERROR"
)

// signatureSize is the length of an Ed25519 signature.
const signatureSize = 64

// EnrollRequest is the POST /enroll body. Byte fields are base64, the key is hex.
type EnrollRequest struct {
	LivenessData          []byte           `json:"liveness_data"`
	LivenessDataSignature []byte           `json:"liveness_data_signature"`
	PublicKey             ticket.PublicKey `json:"public_key"`
}

func (r *EnrollRequest) Validate() error {
	if r.PublicKey.IsZero() {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: CodeEnrollInvalidPublicKey, Description: "public_key is required"}
	}
	if len(r.LivenessData) == 0 {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: CodeEnrollInvalidLivenessData, Description: "liveness_data is required"}
	}
	if len(r.LivenessDataSignature) != signatureSize {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: CodeEnrollSignatureInvalid, Description: "liveness_data_signature must be 64 bytes"}
	}
	return nil
}

// AuthenticateRequest is the POST /authenticate body.
type AuthenticateRequest struct {
	LivenessData          []byte `json:"liveness_data"`
	LivenessDataSignature []byte `json:"liveness_data_signature"`
}

func (r *AuthenticateRequest) Validate() error {
	if len(r.LivenessData) == 0 {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: CodeAuthInvalidLivenessData, Description: "liveness_data is required"}
	}
	if len(r.LivenessDataSignature) != signatureSize {
		return &httputil.APIError{Status: http.StatusBadRequest, Code: CodeAuthSignatureInvalid, Description: "liveness_data_signature must be 64 bytes"}
	}
	return nil
}

// AuthenticateResponse carries the signed ticket.
type AuthenticateResponse struct {
	AuthTicket          []byte           `json:"auth_ticket"`
	AuthTicketSignature []byte           `json:"auth_ticket_signature"`
	SignerPublicKey     ticket.PublicKey `json:"signer_public_key"`
}

type SessionTokenResponse struct {
	SessionToken string `json:"session_token"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	Vendor          string `json:"vendor"`
	SignerPublicKey string `json:"signer_public_key"`
}
