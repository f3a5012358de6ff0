// Package auth models the caller roles of the custody system as a
// closed set of capability predicates. Roles are flat grants over a
// caller address; there is no hierarchy and no inheritance.
package auth

import (
	"context"
	"sync"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Role is one of the closed set of caller capabilities.
type Role string

const (
	// RoleAdmin holds full administrative privileges: configuration,
	// fee collection, vetoes and dispute resolution.
	RoleAdmin Role = "admin"
	// RoleGovernance is the second principal of the emergency channel.
	RoleGovernance Role = "governance"
	// RoleGovernor may propose and vote on slash proposals.
	RoleGovernor Role = "governor"
	// RoleIdentity manages its own bond only.
	RoleIdentity Role = "identity"
)

// Registry holds role grants per caller address.
type Registry struct {
	mu     sync.RWMutex
	grants map[string]map[Role]bool
	logger audit.Logger
}

// NewRegistry returns an empty role registry.
func NewRegistry(logger audit.Logger) *Registry {
	if logger == nil {
		logger = audit.Nop()
	}
	return &Registry{
		grants: make(map[string]map[Role]bool),
		logger: logger,
	}
}

// Grant assigns a role to an address.
func (r *Registry) Grant(addr string, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grants[addr] == nil {
		r.grants[addr] = make(map[Role]bool)
	}
	r.grants[addr][role] = true
}

// Revoke removes a role from an address.
func (r *Registry) Revoke(addr string, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants[addr], role)
}

// HasRole reports whether addr holds role.
func (r *Registry) HasRole(addr string, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grants[addr][role]
}

// RequireAdmin fails with ErrNotAdmin and logs a denial event unless
// caller holds the admin role.
func (r *Registry) RequireAdmin(ctx context.Context, caller string) error {
	if !r.HasRole(caller, RoleAdmin) {
		_ = r.logger.Denial(ctx, caller, string(RoleAdmin), contracts.ErrNotAdmin)
		return contracts.ErrNotAdmin
	}
	return nil
}

// RequireGovernor fails with ErrNotGovernor and logs a denial event
// unless caller holds the governor role.
func (r *Registry) RequireGovernor(ctx context.Context, caller string) error {
	if !r.HasRole(caller, RoleGovernor) {
		_ = r.logger.Denial(ctx, caller, string(RoleGovernor), contracts.ErrNotGovernor)
		return contracts.ErrNotGovernor
	}
	return nil
}

// RequireOwner fails with ErrNotAuthorized unless caller is the
// identity that owns the state being accessed. A direct equality
// comparison; ownership is never stored as a grant.
func (r *Registry) RequireOwner(ctx context.Context, caller, identity string) error {
	if caller != identity {
		_ = r.logger.Denial(ctx, caller, string(RoleIdentity), contracts.ErrNotAuthorized)
		return contracts.ErrNotAuthorized
	}
	return nil
}
