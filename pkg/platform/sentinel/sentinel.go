// Package sentinel holds the infrastructure facts stores report. Stores return
// them, optionally wrapped, and domain packages translate them into their own
// errors.
package sentinel

import "errors"

var (
	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed means a single-use record, such as a ticket nonce, was
	// already written.
	ErrAlreadyUsed = errors.New("already used")
)
