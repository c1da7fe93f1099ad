package qrtoken

import (
	"sync"
	"time"
)

// ReplayGuard remembers consumed nonces for as long as their tokens could still verify.
type ReplayGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func NewReplayGuard(ttl time.Duration) *ReplayGuard {
	return &ReplayGuard{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// Consume records the nonce of claims, failing with ErrReplayed if it was already consumed.
func (g *ReplayGuard) Consume(claims Claims, now time.Time) error {
	key := claims.EmployeeID + "|" + claims.Nonce

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiresAt, ok := g.seen[key]; ok && now.Before(expiresAt) {
		return ErrReplayed
	}
	// Keep the nonce until the token itself can no longer verify.
	g.seen[key] = claims.IssuedAt.Add(g.ttl + time.Second)
	return nil
}

// Purge drops expired nonces and returns how many were removed.
func (g *ReplayGuard) Purge(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, expiresAt := range g.seen {
		if !now.Before(expiresAt) {
			delete(g.seen, key)
			removed++
		}
	}
	return removed
}

func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// Release forgets a consumed nonce so the same token can be retried after a transient failure.
func (g *ReplayGuard) Release(claims Claims) {
	g.mu.Lock()
	delete(g.seen, claims.EmployeeID+"|"+claims.Nonce)
	g.mu.Unlock()
}
