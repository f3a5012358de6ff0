//go:build property
// +build property

// Package bond_test contains property-based tests for the custody
// engine's accounting invariants.
package bond_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/bond"
	"github.com/credence-labs/credence-core/pkg/registry"
	"github.com/credence-labs/credence-core/pkg/token"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

const (
	propIdentity = "alice"
	propInitial  = int64(1_000_000_000)
)

type propWorld struct {
	engine *bond.Engine
	tok    *token.InMemory
	now    time.Time
}

func newPropWorld() *propWorld {
	tok := token.NewInMemory()
	tok.Mint(propIdentity, propInitial)
	tok.Approve(propIdentity, "custody", propInitial)
	w := &propWorld{tok: tok, now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	w.engine = bond.NewEngine(bond.DefaultConfig(), tok, treasury.NewAdapter("treasury", tok), registry.Nop{}, audit.Nop()).
		WithClock(func() time.Time { return w.now })
	return w
}

// opCode is one step of a randomized operation sequence.
type opCode struct {
	Kind   int // 0 top-up, 1 slash, 2 partial withdraw, 3 full withdraw, 4 advance clock
	Amount int64
}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.Int64Range(1, 50_000_000),
	).Map(func(vals []interface{}) opCode {
		return opCode{Kind: vals[0].(int), Amount: vals[1].(int64)}
	})
}

// TestSlashNeverExceedsBond verifies the core accounting invariant
// under arbitrary operation sequences.
// Property: 0 <= slashed_amount <= bonded_amount at every step
func TestSlashNeverExceedsBond(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("slashed amount stays within the bonded amount", prop.ForAll(
		func(ops []opCode) bool {
			w := newPropWorld()
			ctx := context.Background()
			if _, err := w.engine.CreateBond(ctx, propIdentity, propIdentity, 100_000_000, 365*24*time.Hour); err != nil {
				return false
			}
			for _, op := range ops {
				w.apply(ctx, op)
				b, err := w.engine.Bond(propIdentity)
				if err != nil {
					// Fully withdrawn and closed; nothing left to check.
					return true
				}
				if b.SlashedAmount < 0 || b.SlashedAmount > b.BondedAmount {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}

// TestTokenConservation verifies the conservation law: every minor
// unit minted is either still with the identity, custodied, or at the
// treasury.
// Property: identity + custody + treasury == initial supply
func TestTokenConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("token balances are conserved across operations", prop.ForAll(
		func(ops []opCode) bool {
			w := newPropWorld()
			ctx := context.Background()
			if _, err := w.engine.CreateBond(ctx, propIdentity, propIdentity, 100_000_000, 365*24*time.Hour); err != nil {
				return false
			}
			for _, op := range ops {
				w.apply(ctx, op)
			}
			identity, _ := w.tok.BalanceOf(ctx, propIdentity)
			custody, _ := w.tok.BalanceOf(ctx, "custody")
			treasuryBal, _ := w.tok.BalanceOf(ctx, "treasury")
			return identity+custody+treasuryBal == propInitial
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}

// apply runs one op, ignoring rejections: the properties must hold
// whether or not each individual operation succeeds.
func (w *propWorld) apply(ctx context.Context, op opCode) {
	switch op.Kind {
	case 0:
		_, _ = w.engine.TopUp(ctx, propIdentity, op.Amount)
	case 1:
		_, _ = w.engine.ApplySlash(ctx, propIdentity, op.Amount, 1, "governance")
	case 2:
		_, _ = w.engine.WithdrawEarly(ctx, propIdentity, op.Amount)
	case 3:
		_, _ = w.engine.WithdrawBond(ctx, propIdentity)
	case 4:
		w.now = w.now.Add(time.Duration(op.Amount) * time.Second)
	}
}
