package ledger

import "sync"

// portfolioLocks serialises read-modify-write cycles per portfolio.
type portfolioLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPortfolioLocks() *portfolioLocks {
	return &portfolioLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the portfolio's mutex and returns its release func.
func (p *portfolioLocks) lock(portfolio string) func() {
	p.mu.Lock()
	m, ok := p.locks[portfolio]
	if !ok {
		m = &sync.Mutex{}
		p.locks[portfolio] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
