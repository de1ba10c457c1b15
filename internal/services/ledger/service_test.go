package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// --- Mock ledger store ---

type mockLedgerStore struct {
	mu      sync.Mutex
	ledgers map[string][]byte
	saves   int
	failOn  error
}

func newMockLedgerStore() *mockLedgerStore {
	return &mockLedgerStore{ledgers: make(map[string][]byte)}
}

func (m *mockLedgerStore) GetLedger(_ context.Context, portfolio string) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.ledgers[portfolio]
	if !ok {
		return nil, models.ErrLedgerNotFound
	}
	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (m *mockLedgerStore) SaveLedger(_ context.Context, l *models.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	m.ledgers[l.Portfolio] = data
	m.saves++
	return nil
}

func (m *mockLedgerStore) DeleteLedger(_ context.Context, portfolio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ledgers, portfolio)
	return nil
}

func (m *mockLedgerStore) ListPortfolios(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.ledgers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func newTestService() (*Service, *mockLedgerStore) {
	store := newMockLedgerStore()
	return NewService(store, common.NewSilentLogger()), store
}

func TestService_GetLedger_UnknownPortfolioIsEmpty(t *testing.T) {
	svc, store := newTestService()

	l, err := svc.GetLedger(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", l.Portfolio)
	assert.NotNil(t, l.Lots)
	assert.Empty(t, l.Lots)
	assert.Equal(t, 0, store.saves)
}

func TestService_BuyAndSellPersist(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	lot, err := svc.Buy(ctx, "main", models.BuyOrder{Symbol: "AAPL", Quantity: 10, PurchasePrice: 100, PurchaseDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", lot.Symbol)

	res, err := svc.Sell(ctx, "main", models.SellOrder{Symbol: "AAPL", Quantity: 4, SellPrice: 120, SellDate: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Ledger.Version)
	assert.False(t, res.Ledger.UpdatedAt.IsZero())

	stored, err := svc.GetLedger(ctx, "main")
	require.NoError(t, err)
	require.Len(t, stored.Lots, 1)
	assert.Equal(t, lot.ID, stored.Lots[0].ID)
	assert.Equal(t, 4.0, stored.Lots[0].SoldQuantity)
	assert.InDelta(t, 480.0, stored.CashWithdrawnFromSales, 1e-9)
	assert.Equal(t, 2, store.saves)
}

func TestService_FailedSellDoesNotSave(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.Buy(ctx, "main", models.BuyOrder{Symbol: "XYZ", Quantity: 10, PurchasePrice: 1, PurchaseDate: "2024-01-01"})
	require.NoError(t, err)

	_, err = svc.Sell(ctx, "main", models.SellOrder{Symbol: "XYZ", Quantity: 20, SellPrice: 1, SellDate: "2024-01-02"})
	assert.ErrorIs(t, err, models.ErrInsufficientShares)
	assert.Equal(t, 1, store.saves)

	l, err := svc.GetLedger(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 0.0, l.Lots[0].SoldQuantity)
	assert.Equal(t, 1, l.Version)
}

func TestService_StoreErrorsAreWrapped(t *testing.T) {
	svc, store := newTestService()
	store.failOn = errors.New("disk full")

	_, err := svc.Buy(context.Background(), "main", models.BuyOrder{Symbol: "AAPL", Quantity: 1, PurchasePrice: 1, PurchaseDate: "2024-01-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, models.ErrValidation)
}

func TestService_InvalidPortfolio(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Buy(context.Background(), "../etc", models.BuyOrder{Symbol: "AAPL", Quantity: 1, PurchasePrice: 1, PurchaseDate: "2024-01-01"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestService_ConcurrentBuysAreSerialised(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(ctx, "main", models.BuyOrder{Symbol: "AAPL", Quantity: 1, PurchasePrice: 100, PurchaseDate: "2024-01-01"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	l, err := svc.GetLedger(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, l.Lots, n)
	assert.Equal(t, n, l.Version)
}

func TestService_ConcurrentSellsNeverOversell(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Buy(ctx, "main", models.BuyOrder{Symbol: "AAPL", Quantity: 10, PurchasePrice: 100, PurchaseDate: "2024-01-01"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Sell(ctx, "main", models.SellOrder{Symbol: "AAPL", Quantity: 1, SellPrice: 110, SellDate: "2024-02-01"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, models.ErrInsufficientShares)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	l, err := svc.GetLedger(ctx, "main")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, l.OpenQuantity("AAPL"), models.Epsilon)
	assert.InDelta(t, 10.0, l.TotalQuantity("AAPL"), models.Epsilon)
}

func TestService_GetHoldingsAndList(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Buy(ctx, "b", models.BuyOrder{Symbol: "AAPL", Quantity: 2, PurchasePrice: 10, PurchaseDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "a", models.BuyOrder{Symbol: "MSFT", Quantity: 3, PurchasePrice: 20, PurchaseDate: "2024-01-01"})
	require.NoError(t, err)

	holdings, err := svc.GetHoldings(ctx, "a")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "MSFT", holdings[0].Symbol)

	names, err := svc.ListPortfolios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestService_ImportCSV(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	csv := strings.Join([]string{
		"type,symbol,quantity,price,date",
		"buy,AAPL,10,100,2024-01-01",
		"buy, msft ,5,300,2024-01-02",
		"sell,AAPL,4,120,2024-01-10",
		"SELL,AAPL,2,130,2024-01-20",
	}, "\n")

	summary, err := svc.ImportCSV(ctx, "main", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 2, summary.Buys)
	assert.Equal(t, 2, summary.Sells)
	assert.InDelta(t, 740.0, summary.Proceeds, 1e-9)

	l, err := svc.GetLedger(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Version)
	assert.InDelta(t, 4.0, l.OpenQuantity("AAPL"), models.Epsilon)
	assert.InDelta(t, 5.0, l.OpenQuantity("MSFT"), models.Epsilon)
	assert.InDelta(t, 740.0, l.CashWithdrawnFromSales, 1e-9)
}

func TestService_ImportCSV_AllOrNothing(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	csv := "type,symbol,quantity,price,date\n" +
		"buy,AAPL,10,100,2024-01-01\n" +
		"sell,AAPL,40,120,2024-01-10\n"

	_, err := svc.ImportCSV(ctx, "main", strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientShares)
	assert.Contains(t, err.Error(), "row 2")
	assert.Equal(t, 0, store.saves)
}

func TestService_ImportCSV_RowErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad type", "type,symbol,quantity,price,date\nhold,AAPL,1,1,2024-01-01\n", "row 1"},
		{"bad quantity", "type,symbol,quantity,price,date\nbuy,AAPL,ten,1,2024-01-01\n", "row 1"},
		{"bad date", "type,symbol,quantity,price,date\nbuy,AAPL,1,1,2024-01-01\nbuy,AAPL,1,1,yesterday\n", "row 2"},
		{"header only", "type,symbol,quantity,price,date\n", "invalid csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			_, err := svc.ImportCSV(context.Background(), "main", strings.NewReader(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
