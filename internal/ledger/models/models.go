// Package models holds the ledger state shared by the ledger and its stores.
package models

import (
	"fmt"

	"bioauth/internal/ticket"
)

// BlockNumber is the chain height.
type BlockNumber uint64

// Authorization is the active validator-eligibility window of one identity.
// The identity may act while the current block is below ExpiresAt.
type Authorization struct {
	PublicKey ticket.PublicKey
	Nonce     ticket.Nonce
	IssuedAt  BlockNumber
	ExpiresAt BlockNumber
}

// ActiveAt reports whether the window covers block.
func (a *Authorization) ActiveAt(block BlockNumber) bool {
	return a != nil && block < a.ExpiresAt
}

// ConsumedNonce records that a ticket nonce was applied.
type ConsumedNonce struct {
	Nonce      ticket.Nonce
	PublicKey  ticket.PublicKey
	ConsumedAt BlockNumber
}

// ReasonKind classifies why an authorization was force-removed.
type ReasonKind string

const (
	ReasonOffence     ReasonKind = "offence"
	ReasonRoot        ReasonKind = "root"
	ReasonKeyRotation ReasonKind = "key_rotation"
)

func (k ReasonKind) IsValid() bool {
	switch k {
	case ReasonOffence, ReasonRoot, ReasonKeyRotation:
		return true
	}
	return false
}

// DeauthenticationReason is attached to a forced removal.
type DeauthenticationReason struct {
	Kind   ReasonKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}

func (r DeauthenticationReason) String() string {
	if r.Detail == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

// Status is the externally visible authorization state of one identity.
type Status struct {
	PublicKey  ticket.PublicKey `json:"public_key"`
	Authorized bool             `json:"authorized"`
	IssuedAt   BlockNumber      `json:"issued_at,omitempty"`
	ExpiresAt  BlockNumber      `json:"expires_at,omitempty"`
	Block      BlockNumber      `json:"block"`
}
