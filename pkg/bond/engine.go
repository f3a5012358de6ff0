// Package bond owns the custody engine: one Bond record per identity,
// the withdrawal paths that compete over its balance, and the slashing
// executor that forfeits part of it on governance's instruction.
//
// Every mutating entry point acquires the execution lock before any
// check and releases it on every exit path. Engine state is committed
// only after external token transfers succeed, so a failed transfer
// leaves the ledger untouched.
package bond

import (
	"context"
	"sync"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/execlock"
	"github.com/credence-labs/credence-core/pkg/registry"
	"github.com/credence-labs/credence-core/pkg/token"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

// Default bond amount bounds, in token minor units (6 decimals).
const (
	DefaultMinBondAmount   = 1_000_000           // 1 token
	DefaultMaxBondAmount   = 100_000_000_000_000 // 100M tokens
	DefaultMaxBondDuration = 10 * 365 * 24 * time.Hour
)

// Config parameterizes the custody engine.
type Config struct {
	// CustodyAccount is the token address holding custodied funds.
	CustodyAccount string
	// Admin may collect accumulated protocol fees.
	Admin string
	// MinBondAmount / MaxBondAmount bound create and top-up results.
	MinBondAmount int64
	MaxBondAmount int64
	// MaxBondDuration bounds create and extend results.
	MaxBondDuration time.Duration
	// CreationFeeBps is charged on top of the bonded principal at
	// creation and forwarded to the treasury.
	CreationFeeBps uint32
	// EarlyExitPenaltyBps is the nominal early-exit penalty; the
	// effective penalty scales with remaining lock-up time.
	EarlyExitPenaltyBps uint32
}

// DefaultConfig returns the engine defaults used when a field is zero.
func DefaultConfig() Config {
	return Config{
		CustodyAccount:      "custody",
		MinBondAmount:       DefaultMinBondAmount,
		MaxBondAmount:       DefaultMaxBondAmount,
		MaxBondDuration:     DefaultMaxBondDuration,
		EarlyExitPenaltyBps: 500,
	}
}

// Engine is the bond ledger. It owns the Bond records exclusively;
// governance and the emergency module mutate them only through its
// methods.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	bonds map[string]*contracts.Bond

	feePool int64

	lock    *execlock.Guard
	tok     token.Token
	treas   *treasury.Adapter
	reg     registry.Registry
	logger  audit.Logger
	history *audit.Trail
	clock   func() time.Time
}

// NewEngine wires the custody engine to its collaborators.
func NewEngine(cfg Config, tok token.Token, treas *treasury.Adapter, reg registry.Registry, logger audit.Logger) *Engine {
	if cfg.MinBondAmount == 0 {
		cfg.MinBondAmount = DefaultMinBondAmount
	}
	if cfg.MaxBondAmount == 0 {
		cfg.MaxBondAmount = DefaultMaxBondAmount
	}
	if cfg.MaxBondDuration == 0 {
		cfg.MaxBondDuration = DefaultMaxBondDuration
	}
	if cfg.CustodyAccount == "" {
		cfg.CustodyAccount = "custody"
	}
	if reg == nil {
		reg = registry.Nop{}
	}
	if logger == nil {
		logger = audit.Nop()
	}
	return &Engine{
		cfg:     cfg,
		bonds:   make(map[string]*contracts.Bond),
		lock:    execlock.New(),
		tok:     tok,
		treas:   treas,
		reg:     reg,
		logger:  logger,
		history: audit.NewTrail(audit.TrailSlash),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Bond returns a copy of the identity's bond record.
func (e *Engine) Bond(identity string) (*contracts.Bond, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bonds[identity]
	if !ok {
		return nil, contracts.ErrBondNotFound
	}
	copied := *b
	return &copied, nil
}

// SlashHistory exposes the append-only slash trail.
func (e *Engine) SlashHistory() *audit.Trail {
	return e.history
}

// FeePool returns the accumulated protocol fees held in custody.
func (e *Engine) FeePool() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feePool
}

// Locked reports whether the execution lock is currently held. Exposed
// for monitoring and reentrancy tests.
func (e *Engine) Locked() bool {
	return e.lock.Held()
}

// Guard exposes the custody execution lock. The emergency module holds
// it across its whole validate-debit-transfer sequence so that a token
// callback cannot re-enter the engine while custody funds are moving.
func (e *Engine) Guard() *execlock.Guard {
	return e.lock
}

// requireOwner authenticates caller as the bond owner, logging a denial
// event on mismatch.
func (e *Engine) requireOwner(ctx context.Context, caller string, b *contracts.Bond) error {
	if caller != b.Identity {
		_ = e.logger.Denial(ctx, caller, "identity", contracts.ErrNotAuthorized)
		return contracts.ErrNotAuthorized
	}
	return nil
}

// activeBond returns the caller-visible bond under e.mu, or the State
// error explaining why there is none.
func (e *Engine) activeBond(identity string) (*contracts.Bond, error) {
	b, ok := e.bonds[identity]
	if !ok {
		return nil, contracts.ErrBondNotFound
	}
	if !b.Active {
		return nil, contracts.ErrBondNotActive
	}
	return b, nil
}
