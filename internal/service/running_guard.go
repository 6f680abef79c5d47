package service

import (
	"context"
	"sync"
)

// ExportedRunGuard is an exported alias so _test packages can test the guard.
type ExportedRunGuard = runGuard

// ─────────────────────────────────────────────────────────────
// runGuard: one run per export job at a time
// ─────────────────────────────────────────────────────────────

// runGuard tracks which export jobs are executing. The zero value is ready.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks jobID as running and reports whether it was idle.
func (g *runGuard) TryLock(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, busy := g.running[jobID]; busy {
		return false
	}
	g.running[jobID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases jobID. Only call it after a successful TryLock.
func (g *runGuard) Unlock(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[jobID]; !busy {
		return
	}
	delete(g.running, jobID)
	g.wg.Done()
}

// Running reports whether jobID currently holds the guard.
func (g *runGuard) Running(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[jobID]
	return busy
}

// WaitAll blocks until every in-flight run has finished or ctx is done.
func (g *runGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
