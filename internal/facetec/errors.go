package facetec

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateExternalRefMessage is how the server reports an enrollment under an
// already used externalDatabaseRefID. There is no structured code for this
// case, so TranslateEnrollmentError matches this text and nothing else may.
const DuplicateExternalRefMessage = "An enrollment already exists for this externalDatabaseRefID."

var (
	// ErrExternalRefIDInUse reports an enrollment under an already used reference id.
	ErrExternalRefIDInUse = errors.New("external database reference id already in use")
	// ErrFaceScanRejected reports a processed scan that failed liveness checks.
	ErrFaceScanRejected = errors.New("face scan rejected")
)

// VendorError is any failure talking to the server that is not a domain outcome.
type VendorError struct {
	Op        string
	Status    int
	Message   string
	Retryable bool
	Err       error
}

func (e *VendorError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "facetec %s", e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, " [status %d]", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *VendorError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a vendor failure worth retrying later.
func IsRetryable(err error) bool {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// TranslateEnrollmentError maps the duplicate-reference server message to
// ErrExternalRefIDInUse and passes anything else through. This is the only
// place that depends on the server's wording.
func TranslateEnrollmentError(err error) error {
	var ve *VendorError
	if errors.As(err, &ve) && ve.Message == DuplicateExternalRefMessage {
		return fmt.Errorf("%w: %s", ErrExternalRefIDInUse, ve.Message)
	}
	return err
}
