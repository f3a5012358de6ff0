// Package treasury computes fee splits in basis points and forwards
// collected fees to the external treasury address. All math is integer
// and rounds down; the treasury never receives more than the configured
// fraction.
package treasury

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/safemath"
	"github.com/credence-labs/credence-core/pkg/token"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

// SplitFee returns (fee, net) for amount at bps. Integer division
// rounds the fee down, so the residual ties favor the payer.
func SplitFee(amount int64, bps uint32) (fee, net int64, err error) {
	if bps > BpsDenominator {
		return 0, 0, contracts.ErrInvalidFeeBps
	}
	if err := safemath.RequirePositive(amount); err != nil {
		return 0, 0, err
	}
	product, err := safemath.Mul(amount, int64(bps))
	if err != nil {
		return 0, 0, err
	}
	fee = product / BpsDenominator
	net = amount - fee
	return fee, net, nil
}

// EarlyExitPenalty returns the penalty for withdrawing amount with
// remaining lock-up time left out of the full duration. The nominal
// penalty (amount * bps / 10000) is scaled linearly by remaining time,
// rounding down at the final division:
//
//	penalty = amount * bps * remaining / (duration * 10000)
//
// A withdrawal at the very start of the lock-up pays the full bps
// penalty; one moments before the end pays almost nothing.
func EarlyExitPenalty(amount int64, remaining, duration int64, bps uint32) (int64, error) {
	if bps > BpsDenominator {
		return 0, contracts.ErrInvalidFeeBps
	}
	if err := safemath.RequirePositive(amount); err != nil {
		return 0, err
	}
	if duration <= 0 || remaining < 0 || remaining > duration {
		return 0, contracts.ErrInvalidDuration
	}

	product, err := safemath.Mul(amount, int64(bps))
	if err != nil {
		return 0, err
	}
	scaled, err := safemath.Mul(product, remaining)
	if err != nil {
		// Fall back to dividing first when the triple product overflows;
		// the loss of precision stays within one minor unit.
		nominal := product / BpsDenominator
		scaled, err = safemath.Mul(nominal, remaining)
		if err != nil {
			return 0, err
		}
		return scaled / duration, nil
	}
	denom, err := safemath.Mul(duration, BpsDenominator)
	if err != nil {
		return 0, err
	}
	return scaled / denom, nil
}

// Adapter forwards fees to the treasury address through the token
// collaborator. No callback is awaited.
type Adapter struct {
	treasury string
	tok      token.Token
}

// NewAdapter binds the adapter to a treasury address and token.
func NewAdapter(treasuryAddr string, tok token.Token) *Adapter {
	return &Adapter{treasury: treasuryAddr, tok: tok}
}

// Address returns the treasury address fees land at.
func (a *Adapter) Address() string {
	return a.treasury
}

// Forward moves amount from the custody account to the treasury.
func (a *Adapter) Forward(ctx context.Context, from string, amount int64) error {
	if amount == 0 {
		return nil
	}
	return a.tok.Transfer(ctx, from, a.treasury, amount)
}
