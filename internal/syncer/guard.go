package syncer

import "sync"

// TenantGuard enforces at most one active sync or reconciliation job per
// tenant. Overlapping runs would re-validate existence against a store the
// other run is simultaneously mutating, risking duplicate inserts. Jobs
// for different tenants proceed concurrently.
type TenantGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewTenantGuard() *TenantGuard {
	return &TenantGuard{active: make(map[string]struct{})}
}

// TryAcquire reserves the tenant, reporting false when a job is already
// active.
func (g *TenantGuard) TryAcquire(tenantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[tenantID]; busy {
		return false
	}
	g.active[tenantID] = struct{}{}
	return true
}

func (g *TenantGuard) Release(tenantID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, tenantID)
}
