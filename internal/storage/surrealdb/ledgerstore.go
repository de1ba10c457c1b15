package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// ledgerRecord is one portfolio's ledger. The ledger itself is kept as a
// JSON string so lot fields round-trip unchanged.
type ledgerRecord struct {
	Portfolio string    `json:"portfolio"`
	Value     string    `json:"value"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerStore implements interfaces.LedgerStore on the ledger table.
type LedgerStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewLedgerStore(db *surrealdb.DB, logger *common.Logger) *LedgerStore {
	return &LedgerStore{
		db:     db,
		logger: logger,
	}
}

func (s *LedgerStore) GetLedger(ctx context.Context, portfolio string) (*models.Ledger, error) {
	record, err := surrealdb.Select[ledgerRecord](ctx, s.db, surrealmodels.NewRecordID(ledgerTable, portfolio))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to select ledger: %w", err)
	}
	if record == nil || record.Value == "" {
		return nil, models.ErrLedgerNotFound
	}

	var l models.Ledger
	if err := json.Unmarshal([]byte(record.Value), &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger %s: %w", portfolio, err)
	}
	return &l, nil
}

func (s *LedgerStore) SaveLedger(ctx context.Context, l *models.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	record := ledgerRecord{
		Portfolio: l.Portfolio,
		Value:     string(data),
		Version:   l.Version,
		UpdatedAt: l.UpdatedAt,
	}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(ledgerTable, l.Portfolio), "record": record}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]ledgerRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Debug().Str("portfolio", l.Portfolio).Int("attempt", attempt).Err(err).Msg("Ledger upsert failed")
	}
	return fmt.Errorf("failed to save ledger after retries: %w", lastErr)
}

func (s *LedgerStore) DeleteLedger(ctx context.Context, portfolio string) error {
	_, err := surrealdb.Delete[ledgerRecord](ctx, s.db, surrealmodels.NewRecordID(ledgerTable, portfolio))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return nil
}

func (s *LedgerStore) ListPortfolios(ctx context.Context) ([]string, error) {
	sql := "SELECT portfolio FROM " + ledgerTable

	results, err := surrealdb.Query[[]ledgerRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}

	names := []string{}
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			names = append(names, r.Portfolio)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Compile-time check
var _ interfaces.LedgerStore = (*LedgerStore)(nil)
