package ledger

import "errors"

var (
	// ErrInvalidSignature reports a ticket not signed by the configured gateway key.
	ErrInvalidSignature = errors.New("invalid ticket signature")
	// ErrInvalidTicket reports a correctly signed payload that is not a ticket.
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrNonceAlreadyConsumed reports a replayed ticket.
	ErrNonceAlreadyConsumed = errors.New("authentication nonce already consumed")
	// ErrTooManyAuthorizations reports a full authorization table.
	ErrTooManyAuthorizations = errors.New("too many authorizations")
	// ErrNotAuthorized reports a deauthentication of an identity with no entry.
	ErrNotAuthorized = errors.New("identity is not authorized")
	// ErrInvalidReason reports an unknown deauthentication reason.
	ErrInvalidReason = errors.New("invalid deauthentication reason")
)
