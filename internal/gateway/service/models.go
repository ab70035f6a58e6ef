package service

import (
	"encoding/json"
	"fmt"

	"bioauth/internal/facetec"
	"bioauth/internal/ticket"
)

// EnrollRequest carries a liveness capture signed by the key being enrolled.
type EnrollRequest struct {
	LivenessData          []byte
	LivenessDataSignature []byte
	PublicKey             ticket.PublicKey
}

// AuthenticateRequest carries a liveness capture signed by an enrolled key.
type AuthenticateRequest struct {
	LivenessData          []byte
	LivenessDataSignature []byte
}

// Settings control how enrollments are named and matched on the vendor.
type Settings struct {
	GroupName       string
	EnrollRefPrefix string
	TempRefPrefix   string
	MatchLevel      int
}

// DefaultSettings match the development defaults in the process config.
func DefaultSettings() Settings {
	return Settings{
		GroupName:       "humans",
		EnrollRefPrefix: "enroll_",
		TempRefPrefix:   "tmp_auth_",
		MatchLevel:      10,
	}
}

// ParseLivenessData decodes the JSON face scan the device SDK produced.
func ParseLivenessData(raw []byte) (facetec.FaceScan, error) {
	var scan facetec.FaceScan
	if len(raw) == 0 {
		return scan, fmt.Errorf("%w: empty", ErrInvalidLivenessData)
	}
	if err := json.Unmarshal(raw, &scan); err != nil {
		return scan, fmt.Errorf("%w: %v", ErrInvalidLivenessData, err)
	}
	if scan.FaceScan == "" {
		return scan, fmt.Errorf("%w: missing faceScan", ErrInvalidLivenessData)
	}
	return scan, nil
}
