package service

import "errors"

var (
	// ErrInvalidLivenessData reports a liveness blob that cannot be decoded.
	ErrInvalidLivenessData = errors.New("invalid liveness data")
	// ErrInvalidLivenessSignature reports a liveness blob not signed by the expected key.
	ErrInvalidLivenessSignature = errors.New("invalid liveness data signature")
	// ErrPublicKeyAlreadyUsed reports an enrollment for a key the vendor already holds.
	ErrPublicKeyAlreadyUsed = errors.New("public key already used")
	// ErrPersonAlreadyEnrolled reports a face that matches an existing enrollment.
	ErrPersonAlreadyEnrolled = errors.New("person already enrolled")
	// ErrFaceScanRejected reports a scan that failed liveness checks.
	ErrFaceScanRejected = errors.New("face scan rejected")
	// ErrNoMatchFound reports an authentication scan with no enrolled match.
	ErrNoMatchFound = errors.New("no match found")
	// ErrInvalidMatchReference reports a match whose reference id was not minted by this gateway.
	ErrInvalidMatchReference = errors.New("invalid match reference")
	// ErrSigningFailed reports a ticket the signer could not sign.
	ErrSigningFailed = errors.New("ticket signing failed")
	// ErrSequenceUnavailable reports a nonce checkpoint that could not be saved.
	ErrSequenceUnavailable = errors.New("sequence checkpoint unavailable")
)
