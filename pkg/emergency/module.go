// Package emergency implements the crisis-only withdrawal channel. It
// bypasses the proposal/vote cycle and is gated instead by requiring
// two independent, pre-configured principals (admin and governance) to
// co-sign every call. Each withdrawal leaves an immutable record on a
// hash-chained trail.
package emergency

import (
	"context"
	"sync"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/execlock"
	"github.com/credence-labs/credence-core/pkg/token"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

// Ledger is the custody surface the module debits. The bond engine
// satisfies this. Guard hands out the ledger's execution lock; the
// module holds that same lock across Withdraw so token callbacks
// cannot re-enter the ledger while custody funds are moving, and the
// debit/credit pair runs with the lock already held.
type Ledger interface {
	Guard() *execlock.Guard
	Available(identity string) (int64, error)
	EmergencyDebit(ctx context.Context, identity string, amount int64) error
	EmergencyCredit(ctx context.Context, identity string, amount int64) error
}

// Module owns the emergency configuration and the record list. Records
// are append-only; no update or delete operation exists.
type Module struct {
	mu      sync.Mutex
	admin   string
	custody string
	cfg     contracts.EmergencyConfig
	records []contracts.EmergencyRecord
	counter uint64

	lock   *execlock.Guard
	ledger Ledger
	tok    token.Token
	trail  *audit.Trail
	logger audit.Logger
	clock  func() time.Time
}

// NewModule binds the emergency channel to the custody ledger and
// token. The custody argument is the token address holding bonded
// funds.
func NewModule(admin, custody string, ledger Ledger, tok token.Token, logger audit.Logger) *Module {
	if logger == nil {
		logger = audit.Nop()
	}
	// Share the ledger's execution lock so a withdrawal in flight also
	// blocks direct ledger entry points.
	lock := execlock.New()
	if ledger != nil {
		lock = ledger.Guard()
	}
	return &Module{
		admin:   admin,
		custody: custody,
		lock:    lock,
		ledger:  ledger,
		tok:     tok,
		trail:   audit.NewTrail(audit.TrailEmergency),
		logger:  logger,
		clock:   time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (m *Module) WithClock(clock func() time.Time) *Module {
	m.clock = clock
	return m
}

// SetEmergencyConfig replaces the singleton configuration. Admin only.
func (m *Module) SetEmergencyConfig(ctx context.Context, caller string, cfg contracts.EmergencyConfig) error {
	if err := m.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if cfg.FeeBps > treasury.BpsDenominator {
		return contracts.ErrInvalidFeeBps
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

// SetEmergencyMode toggles the channel. Elevated approval: both the
// stored admin and the stored governance principal must co-sign.
func (m *Module) SetEmergencyMode(ctx context.Context, admin, governance string, enabled bool) error {
	if err := m.requireAdmin(ctx, admin); err != nil {
		return err
	}

	m.mu.Lock()
	if m.cfg.Governance == "" {
		m.mu.Unlock()
		return contracts.ErrEmergencyUnconfigured
	}
	if governance != m.cfg.Governance {
		m.mu.Unlock()
		_ = m.logger.Denial(ctx, governance, "governance", contracts.ErrNotGovernance)
		return contracts.ErrNotGovernance
	}
	m.cfg.Enabled = enabled
	m.mu.Unlock()

	_ = m.logger.Record(ctx, audit.ClassEmergency, contracts.EventEmergencyMode, admin, governance, map[string]interface{}{
		"enabled":    enabled,
		"admin":      admin,
		"governance": governance,
		"timestamp":  m.clock(),
	})
	return nil
}

// Config returns a copy of the current configuration.
func (m *Module) Config() contracts.EmergencyConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Record returns the immutable record with the given id.
func (m *Module) Record(id uint64) (*contracts.EmergencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			copied := m.records[i]
			return &copied, nil
		}
	}
	return nil, contracts.ErrRecordNotFound
}

// Records returns a copy of every withdrawal record in id order.
func (m *Module) Records() []contracts.EmergencyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contracts.EmergencyRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Trail exposes the hash-chained record trail for verification.
func (m *Module) Trail() *audit.Trail {
	return m.trail
}

func (m *Module) requireAdmin(ctx context.Context, caller string) error {
	if caller != m.admin {
		_ = m.logger.Denial(ctx, caller, "admin", contracts.ErrNotAdmin)
		return contracts.ErrNotAdmin
	}
	return nil
}
