package rpc

import (
	"errors"

	"bioauth/internal/chain"
	gatewayclient "bioauth/internal/gateway/client"
	"bioauth/internal/node/keystore"
	"bioauth/internal/node/service"
)

// Standard JSON-RPC codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application codes, grouped by failure source in blocks of one hundred.
const (
	CodeSigner             = 100
	CodeGateway            = 200
	CodeRuntimeQuery       = 300
	CodeTransaction        = 400
	CodeInvalidTransaction = 401
	CodeAlreadyInPool      = 402
	CodePoolFull           = 403
	CodeKeyNotFound        = 500
	CodeKeyExtraction      = 600
)

// errorFor maps a service error to exactly one RPC error.
func errorFor(err error) *Error {
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound):
		return &Error{Code: CodeKeyNotFound, Message: "validator key not found in keystore"}
	case errors.Is(err, service.ErrKeyExtraction):
		return &Error{Code: CodeKeyExtraction, Message: err.Error()}
	case errors.Is(err, service.ErrSigning):
		return &Error{Code: CodeSigner, Message: err.Error()}
	case errors.Is(err, service.ErrGateway):
		return gatewayError(err)
	case errors.Is(err, service.ErrStatusQuery):
		return &Error{Code: CodeRuntimeQuery, Message: "unable to query authorization status"}
	case errors.Is(err, service.ErrTransaction):
		return transactionError(err)
	default:
		return &Error{Code: CodeInternalError, Message: "internal error"}
	}
}

func gatewayError(err error) *Error {
	e := &Error{Code: CodeGateway, Message: err.Error()}
	var gwErr *gatewayclient.Error
	if errors.As(err, &gwErr) {
		e.Data = &ErrorData{ShouldRetry: gwErr.ShouldRetry, GatewayCode: gwErr.Code}
	}
	return e
}

func transactionError(err error) *Error {
	switch {
	case errors.Is(err, chain.ErrInvalidTransaction):
		return &Error{Code: CodeInvalidTransaction, Message: err.Error()}
	case errors.Is(err, chain.ErrAlreadyInPool):
		return &Error{Code: CodeAlreadyInPool, Message: err.Error()}
	case errors.Is(err, chain.ErrPoolFull):
		return &Error{Code: CodePoolFull, Message: err.Error()}
	default:
		return &Error{Code: CodeTransaction, Message: err.Error()}
	}
}
