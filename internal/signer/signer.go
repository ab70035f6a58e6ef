// Package signer signs arbitrary payloads with an Ed25519 key.
//
// The gateway signs tickets with it, validator nodes sign liveness data with it,
// and the ledger verifies with Verify.
package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"bioauth/internal/ticket"
)

var ErrInvalidSeed = errors.New("invalid signer seed")

// Signer signs byte payloads. Implementations may reach out to a keystore or
// remote HSM, so Sign takes a context and can fail.
type Signer interface {
	Sign(ctx context.Context, msg []byte) ([]byte, error)
	PublicKey() ticket.PublicKey
}

// Ed25519Signer holds an in-process private key.
type Ed25519Signer struct {
	private ed25519.PrivateKey
	public  ticket.PublicKey
}

// NewEd25519 builds a signer from a 32-byte seed.
func NewEd25519(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, ed25519.SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	var public ticket.PublicKey
	copy(public[:], private.Public().(ed25519.PublicKey))
	return &Ed25519Signer{private: private, public: public}, nil
}

// NewEd25519FromHex builds a signer from a hex seed, with or without a 0x prefix.
func NewEd25519FromHex(seedHex string) (*Ed25519Signer, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(seedHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return NewEd25519(seed)
}

// NewDerived derives the seed from a master secret with HKDF-SHA256. The info
// string separates keys derived from the same secret.
func NewDerived(secret []byte, info string) (*Ed25519Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty master secret", ErrInvalidSeed)
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), seed); err != nil {
		return nil, fmt.Errorf("derive signer seed: %w", err)
	}
	return NewEd25519(seed)
}

func (s *Ed25519Signer) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(s.private, msg), nil
}

func (s *Ed25519Signer) PublicKey() ticket.PublicKey {
	return s.public
}

// Verify checks an Ed25519 signature. Malformed signatures verify false.
func Verify(public ticket.PublicKey, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(public[:]), msg, sig)
}
