// Package ticket defines the authentication ticket and its canonical byte encoding.
//
// The encoding is what the gateway signs and what the ledger verifies, so it must
// stay stable: version byte, 32-byte public key, 8-byte little-endian nonce.
package ticket

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// PublicKeySize is the length of an Ed25519 public key.
	PublicKeySize = 32
	// EncodingVersion prefixes every canonical ticket.
	EncodingVersion byte = 0x01
	// EncodedSize is the length of a canonical ticket.
	EncodedSize = 1 + PublicKeySize + 8
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrMalformedTicket  = errors.New("malformed ticket")
)

// PublicKey identifies an enrolled human and doubles as the chain authority id.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a hex public key, with or without a 0x prefix.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(raw)
}

// PublicKeyFromBytes copies a raw key, checking its length.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var pk PublicKey
	if len(raw) != PublicKeySize {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Nonce is the single-use authentication nonce minted by the gateway sequence.
type Nonce uint64

// AuthTicket binds a public key to a nonce.
type AuthTicket struct {
	PublicKey PublicKey
	Nonce     Nonce
}

// Encode returns the canonical encoding.
func (t AuthTicket) Encode() []byte {
	buf := make([]byte, EncodedSize)
	buf[0] = EncodingVersion
	copy(buf[1:1+PublicKeySize], t.PublicKey[:])
	binary.LittleEndian.PutUint64(buf[1+PublicKeySize:], uint64(t.Nonce))
	return buf
}

// Decode parses a canonical encoding. Trailing or missing bytes are rejected.
func Decode(raw []byte) (AuthTicket, error) {
	var t AuthTicket
	if len(raw) != EncodedSize {
		return t, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedTicket, EncodedSize, len(raw))
	}
	if raw[0] != EncodingVersion {
		return t, fmt.Errorf("%w: unknown version %d", ErrMalformedTicket, raw[0])
	}
	copy(t.PublicKey[:], raw[1:1+PublicKeySize])
	t.Nonce = Nonce(binary.LittleEndian.Uint64(raw[1+PublicKeySize:]))
	return t, nil
}

// SignedTicket is what the gateway hands back after a successful authentication.
// Ticket holds the canonical encoding exactly as signed.
type SignedTicket struct {
	Ticket          []byte
	Signature       []byte
	SignerPublicKey PublicKey
}

// Decode parses the embedded ticket.
func (s SignedTicket) Decode() (AuthTicket, error) {
	return Decode(s.Ticket)
}
