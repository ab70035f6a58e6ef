package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bioauth/internal/facetec"
	"bioauth/internal/signer"
	"bioauth/internal/ticket"
)

// Authenticate matches the face in req.LivenessData against enrolled people
// and returns a ticket for the matched key carrying a fresh nonce.
//
// The nonce is minted before the vendor is asked, so a failed match or a
// signing failure leaves a gap in issued nonces. Gaps are harmless; reuse is not.
func (l *Logic) Authenticate(ctx context.Context, req AuthenticateRequest) (*ticket.SignedTicket, error) {
	scan, err := ParseLivenessData(req.LivenessData)
	if err != nil {
		return nil, err
	}

	var signed *ticket.SignedTicket
	err = l.withLock(ctx, "authenticate", func(ctx context.Context, st *locked) error {
		st.sequence.Increment()
		nonce := st.sequence.Current()
		if st.checkpoint != nil {
			if err := st.checkpoint.Save(ctx, nonce); err != nil {
				l.logger.ErrorContext(ctx, "failed to save sequence checkpoint", "nonce", nonce, "error", err)
				return fmt.Errorf("%w: %v", ErrSequenceUnavailable, err)
			}
		}

		// Vendor enrollments outlive the process, so the temp ref must not
		// repeat even when the sequence restarts without a checkpoint.
		tmpRef := l.settings.TempRefPrefix + uuid.NewString()
		_, err := st.vendor.Enrollment3D(ctx, facetec.Enrollment3DRequest{
			ExternalDatabaseRefID: tmpRef,
			FaceScan:              scan,
		})
		if errors.Is(err, facetec.ErrFaceScanRejected) {
			return ErrFaceScanRejected
		}
		if err != nil {
			return fmt.Errorf("enrollment-3d: %w", err)
		}

		found, err := st.vendor.DBSearch(ctx, facetec.DBSearchRequest{
			ExternalDatabaseRefID: tmpRef,
			GroupName:             l.settings.GroupName,
			MinMatchLevel:         l.settings.MatchLevel,
		})
		if err != nil {
			return fmt.Errorf("3d-db search: %w", err)
		}
		best, ok := bestMatch(found.Results, l.settings.MatchLevel)
		if !ok {
			return ErrNoMatchFound
		}

		pk, err := l.publicKeyFromRef(best.Identifier)
		if err != nil {
			return err
		}
		if !signer.Verify(pk, req.LivenessData, req.LivenessDataSignature) {
			return ErrInvalidLivenessSignature
		}

		encoded := ticket.AuthTicket{PublicKey: pk, Nonce: ticket.Nonce(nonce)}.Encode()
		sig, err := st.signer.Sign(ctx, encoded)
		if err != nil {
			l.logger.ErrorContext(ctx, "ticket signing failed", "nonce", nonce, "error", err)
			return fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}

		signed = &ticket.SignedTicket{
			Ticket:          encoded,
			Signature:       sig,
			SignerPublicKey: st.signer.PublicKey(),
		}
		l.metrics.TicketIssued(nonce)
		l.logger.InfoContext(ctx, "auth ticket issued",
			"public_key", pk.String(),
			"nonce", nonce,
			"match_level", best.MatchLevel,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return signed, nil
}

func bestMatch(results []facetec.DBSearchResult, minLevel int) (facetec.DBSearchResult, bool) {
	var best facetec.DBSearchResult
	ok := false
	for _, r := range results {
		if r.MatchLevel < minLevel {
			continue
		}
		if !ok || r.MatchLevel > best.MatchLevel {
			best = r
			ok = true
		}
	}
	return best, ok
}
