package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"bioauth/internal/ledger/models"
)

// PrunePolicy decides when consumed nonces may be forgotten.
// The zero value never prunes.
type PrunePolicy struct {
	// Horizon is how many blocks a consumed nonce is kept. Zero keeps it forever.
	Horizon uint64
}

// ParsePrunePolicy accepts "never" or "horizon:<blocks>". A horizon must
// exceed window so a nonce outlives every ticket that could carry it.
func ParsePrunePolicy(s string, window uint64) (PrunePolicy, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "never" {
		return PrunePolicy{}, nil
	}
	raw, ok := strings.CutPrefix(s, "horizon:")
	if !ok {
		return PrunePolicy{}, fmt.Errorf("unknown prune policy %q", s)
	}
	horizon, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || horizon == 0 {
		return PrunePolicy{}, fmt.Errorf("invalid prune horizon %q", raw)
	}
	if horizon <= window {
		return PrunePolicy{}, fmt.Errorf("prune horizon %d must exceed validity window %d", horizon, window)
	}
	return PrunePolicy{Horizon: horizon}, nil
}

func (p PrunePolicy) Enabled() bool {
	return p.Horizon > 0
}

// Cutoff returns the block before which consumed nonces may be removed.
func (p PrunePolicy) Cutoff(current models.BlockNumber) (models.BlockNumber, bool) {
	if !p.Enabled() || uint64(current) <= p.Horizon {
		return 0, false
	}
	return current - models.BlockNumber(p.Horizon), true
}

func (p PrunePolicy) String() string {
	if !p.Enabled() {
		return "never"
	}
	return fmt.Sprintf("horizon:%d", p.Horizon)
}
