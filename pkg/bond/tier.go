package bond

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Tier thresholds in token minor units (6 decimals).
const (
	tierSilverMin   = 10_000_000         // 10 tokens
	tierGoldMin     = 100_000_000        // 100 tokens
	tierPlatinumMin = 1_000_000_000      // 1000 tokens
)

// TierFor buckets a bonded amount.
func TierFor(amount int64) contracts.BondTier {
	switch {
	case amount >= tierPlatinumMin:
		return contracts.TierPlatinum
	case amount >= tierGoldMin:
		return contracts.TierGold
	case amount >= tierSilverMin:
		return contracts.TierSilver
	default:
		return contracts.TierBronze
	}
}

// Tier returns the current tier of the identity's bond.
func (e *Engine) Tier(identity string) (contracts.BondTier, error) {
	b, err := e.Bond(identity)
	if err != nil {
		return "", err
	}
	return TierFor(b.BondedAmount), nil
}

// emitTierChange publishes a tier_changed event when the bonded amount
// crossed a tier boundary.
func (e *Engine) emitTierChange(ctx context.Context, identity string, oldAmount, newAmount int64) {
	oldTier := TierFor(oldAmount)
	newTier := TierFor(newAmount)
	if oldTier == newTier {
		return
	}
	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventTierChanged, identity, identity, map[string]interface{}{
		"old_tier": string(oldTier),
		"new_tier": string(newTier),
	})
}
