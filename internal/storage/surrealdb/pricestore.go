package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

type seriesRecord struct {
	Symbol    string    `json:"symbol"`
	Source    string    `json:"source"`
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PriceStore implements interfaces.PriceCache on the price_series table.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: logger,
	}
}

func (s *PriceStore) GetSeries(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	record, err := surrealdb.Select[seriesRecord](ctx, s.db, surrealmodels.NewRecordID(priceTable, symbol))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to select price series: %w", err)
	}
	if record == nil || record.Value == "" {
		return nil, models.ErrSeriesNotFound
	}

	var series models.PriceSeries
	if err := json.Unmarshal([]byte(record.Value), &series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price series %s: %w", symbol, err)
	}
	return &series, nil
}

func (s *PriceStore) SaveSeries(ctx context.Context, series *models.PriceSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal price series: %w", err)
	}

	record := seriesRecord{
		Symbol:    series.Symbol,
		Source:    series.Source,
		Value:     string(data),
		FetchedAt: series.FetchedAt,
	}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(priceTable, series.Symbol), "record": record}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]seriesRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save price series after retries: %w", lastErr)
}

// Compile-time check
var _ interfaces.PriceCache = (*PriceStore)(nil)
