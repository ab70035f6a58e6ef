package service

import "errors"

// Each failure leaving the service wraps exactly one of these.
var (
	ErrSigning       = errors.New("signing failed")
	ErrKeyExtraction = errors.New("key extraction failed")
	ErrGateway       = errors.New("gateway call failed")
	ErrStatusQuery   = errors.New("ledger status query failed")
	ErrTransaction   = errors.New("transaction submission failed")
)
