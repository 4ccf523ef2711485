package stealth

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// DefaultUserAgents are desktop Chromium user agents. Only Chromium strings are
// listed because the session runs on Chrome and a mismatched engine is itself a signal.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

// UserAgentPool hands out user agents. It is safe for concurrent use.
type UserAgentPool struct {
	agents  []string
	counter atomic.Uint64
}

// NewUserAgentPool copies agents into a pool, falling back to DefaultUserAgents when empty
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	copied := make([]string, len(agents))
	copy(copied, agents)
	return &UserAgentPool{agents: copied}
}

// Sequential returns agents round-robin
func (p *UserAgentPool) Sequential() string {
	idx := p.counter.Add(1) - 1
	return p.agents[idx%uint64(len(p.agents))]
}

// Random returns a uniformly chosen agent
func (p *UserAgentPool) Random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.agents))))
	if err != nil {
		return p.Sequential()
	}
	return p.agents[n.Int64()]
}

// Len returns the number of agents in the pool
func (p *UserAgentPool) Len() int {
	return len(p.agents)
}
