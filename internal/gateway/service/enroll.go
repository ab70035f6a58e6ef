package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bioauth/internal/facetec"
	"bioauth/internal/signer"
	"bioauth/internal/ticket"
)

// Enroll registers the face in req.LivenessData under req.PublicKey.
// A key can be enrolled once and a face can be enrolled once.
func (l *Logic) Enroll(ctx context.Context, req EnrollRequest) error {
	if req.PublicKey.IsZero() {
		return ticket.ErrInvalidPublicKey
	}
	scan, err := ParseLivenessData(req.LivenessData)
	if err != nil {
		return err
	}
	if !signer.Verify(req.PublicKey, req.LivenessData, req.LivenessDataSignature) {
		return ErrInvalidLivenessSignature
	}
	ref := l.enrollRef(req.PublicKey)

	return l.withLock(ctx, "enroll", func(ctx context.Context, st *locked) error {
		_, err := st.vendor.Enrollment3D(ctx, facetec.Enrollment3DRequest{
			ExternalDatabaseRefID: ref,
			FaceScan:              scan,
		})
		switch {
		case errors.Is(err, facetec.ErrExternalRefIDInUse):
			return ErrPublicKeyAlreadyUsed
		case errors.Is(err, facetec.ErrFaceScanRejected):
			return ErrFaceScanRejected
		case err != nil:
			return fmt.Errorf("enrollment-3d: %w", err)
		}

		found, err := st.vendor.DBSearch(ctx, facetec.DBSearchRequest{
			ExternalDatabaseRefID: ref,
			GroupName:             l.settings.GroupName,
			MinMatchLevel:         l.settings.MatchLevel,
		})
		if err != nil {
			return fmt.Errorf("3d-db search: %w", err)
		}
		if len(found.Results) > 0 {
			l.logger.InfoContext(ctx, "enrollment matches existing person",
				"public_key", req.PublicKey.String(),
				"matches", len(found.Results),
			)
			return ErrPersonAlreadyEnrolled
		}

		if err := st.vendor.DBEnroll(ctx, facetec.DBEnrollRequest{
			ExternalDatabaseRefID: ref,
			GroupName:             l.settings.GroupName,
		}); err != nil {
			return fmt.Errorf("3d-db enroll: %w", err)
		}
		l.logger.InfoContext(ctx, "person enrolled", "public_key", req.PublicKey.String())
		return nil
	})
}

func (l *Logic) enrollRef(pk ticket.PublicKey) string {
	return l.settings.EnrollRefPrefix + pk.String()
}

// publicKeyFromRef recovers the key an enrollment reference was minted for.
func (l *Logic) publicKeyFromRef(ref string) (ticket.PublicKey, error) {
	rest, ok := strings.CutPrefix(ref, l.settings.EnrollRefPrefix)
	if !ok {
		return ticket.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidMatchReference, ref)
	}
	pk, err := ticket.ParsePublicKey(rest)
	if err != nil {
		return ticket.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidMatchReference, err)
	}
	return pk, nil
}
