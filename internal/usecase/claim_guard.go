package usecase

import (
	"strings"
	"sync"
)

// ClaimGuard holds the set of match ids with an active pipeline run.
// Claims never block: a second TryAcquire for a claimed id is rejected.
type ClaimGuard struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewClaimGuard() *ClaimGuard {
	return &ClaimGuard{claimed: make(map[string]struct{})}
}

func (g *ClaimGuard) TryAcquire(matchID string) bool {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.claimed[matchID]; ok {
		return false
	}
	g.claimed[matchID] = struct{}{}
	return true
}

func (g *ClaimGuard) Release(matchID string) {
	matchID = strings.TrimSpace(matchID)

	g.mu.Lock()
	delete(g.claimed, matchID)
	g.mu.Unlock()
}

func (g *ClaimGuard) IsClaimed(matchID string) bool {
	matchID = strings.TrimSpace(matchID)

	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.claimed[matchID]
	return ok
}

// Len returns the number of active claims.
func (g *ClaimGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claimed)
}
