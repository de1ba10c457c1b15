package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// MemoryStore keeps ledgers and price series in process memory, stored as
// JSON so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string][]byte
	series  map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[string][]byte),
		series:  make(map[string][]byte),
	}
}

func (m *MemoryStore) GetLedger(_ context.Context, portfolio string) (*models.Ledger, error) {
	m.mu.RLock()
	data, ok := m.ledgers[portfolio]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrLedgerNotFound
	}
	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	return &l, nil
}

func (m *MemoryStore) SaveLedger(_ context.Context, l *models.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	m.mu.Lock()
	m.ledgers[l.Portfolio] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteLedger(_ context.Context, portfolio string) error {
	m.mu.Lock()
	delete(m.ledgers, portfolio)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListPortfolios(_ context.Context) ([]string, error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.ledgers))
	for name := range m.ledgers {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) GetSeries(_ context.Context, symbol string) (*models.PriceSeries, error) {
	m.mu.RLock()
	data, ok := m.series[symbol]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrSeriesNotFound
	}
	var s models.PriceSeries
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price series: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) SaveSeries(_ context.Context, s *models.PriceSeries) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal price series: %w", err)
	}
	m.mu.Lock()
	m.series[s.Symbol] = data
	m.mu.Unlock()
	return nil
}

// Compile-time interface checks
var (
	_ interfaces.LedgerStore = (*MemoryStore)(nil)
	_ interfaces.PriceCache  = (*MemoryStore)(nil)
)
