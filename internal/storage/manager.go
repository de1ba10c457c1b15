// Package storage provides the StorageManager that backs ledgers and the
// price cache with SurrealDB, JSON files, or process memory.
package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/storage/surrealdb"
)

// Backend names.
const (
	BackendSurrealDB = "surrealdb"
	BackendFile      = "file"
	BackendMemory    = "memory"
)

// Manager implements interfaces.StorageManager over a single store that
// holds both ledgers and cached series.
type Manager struct {
	ledgers interfaces.LedgerStore
	prices  interfaces.PriceCache
	backend string
	logger  *common.Logger
}

// NewStorageManager opens the backend named by config.Storage.Backend.
// An empty backend selects the file store.
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendSurrealDB:
		m, err := surrealdb.NewManager(logger, config)
		if err != nil {
			return nil, fmt.Errorf("failed to open surrealdb storage: %w", err)
		}
		return m, nil

	case BackendFile:
		fs, err := NewFileStore(logger, &config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		logger.Info().Str("path", config.Storage.Path).Int("versions", config.Storage.Versions).
			Msg("File storage manager initialized")
		return &Manager{ledgers: fs, prices: fs, backend: BackendFile, logger: logger}, nil

	case BackendMemory:
		ms := NewMemoryStore()
		logger.Info().Msg("Memory storage manager initialized")
		return &Manager{ledgers: ms, prices: ms, backend: BackendMemory, logger: logger}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.ledgers
}

func (m *Manager) PriceCache() interfaces.PriceCache {
	return m.prices
}

func (m *Manager) Backend() string {
	return m.backend
}

// Close is a no-op; file and memory stores hold no open handles.
func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
