// Package execlock implements the per-engine execution lock that rejects
// re-entrant calls. The host model processes each external call to
// completion, but an external collaborator (token, treasury) may call
// back into the engine before the original call returns; the lock turns
// that into an immediate ErrReentrantCall instead of corrupted state.
//
// The lock is an owned boolean, not a blocking mutex: there is no
// blocking primitive in the execution model, so an attempted re-entry
// fails rather than waits.
package execlock

import (
	"sync"

	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Guard is a non-blocking, owned boolean lock.
type Guard struct {
	mu   sync.Mutex
	held bool
}

// New returns an unlocked Guard.
func New() *Guard {
	return &Guard{}
}

// TryAcquire takes the lock or fails with ErrReentrantCall if it is
// already held. Callers must pair every successful acquire with a
// deferred Release so the lock is dropped on every exit path.
func (g *Guard) TryAcquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return contracts.ErrReentrantCall
	}
	g.held = true
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}

// Held reports whether the lock is currently held.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
