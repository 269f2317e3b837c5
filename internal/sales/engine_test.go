package sales

import (
	"context"
	"errors"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/repository"
	"register-service/internal/repository/repotest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newEngine(store *repotest.Store, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewEngine(store.Sales(), opts...)
}

func TestCommitSaleDecrementsStockAndPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)

	engine := newEngine(store)

	saleID, err := engine.CommitSale(ctx, []LineRequest{
		{ProductID: milk.ProductID, Quantity: 7},
	}, "Cash")
	require.NoError(t, err)

	sale, items, err := engine.GetSale(ctx, saleID)
	require.NoError(t, err)

	assert.Equal(t, "21.00", money.Format(sale.Total))
	assert.Equal(t, "Cash", sale.PaymentMethod)
	assert.Equal(t, fixedNow, sale.CreatedAt)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].ProductName)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, "3.00", money.Format(items[0].UnitPrice))
	assert.Equal(t, "21.00", money.Format(items[0].Subtotal))

	assert.Equal(t, 3, store.Product(milk.ProductID).Stock)
	assert.Equal(t, 5, store.Product(bread.ProductID).Stock, "untouched product must keep its stock")
}

func TestCommitSaleTotalMatchesItemSubtotals(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	a := store.AddProduct("Greek Yogurt 500g", "5.49", 25)
	b := store.AddProduct("Chocolate Bar", "1.99", 80)
	c := store.AddProduct("Loose Candy", "0.333", 100)

	engine := newEngine(store)

	saleID, err := engine.CommitSale(ctx, []LineRequest{
		{ProductID: a.ProductID, Quantity: 3},
		{ProductID: b.ProductID, Quantity: 11},
		{ProductID: c.ProductID, Quantity: 7},
	}, "Card")
	require.NoError(t, err)

	sale, items, err := engine.GetSale(ctx, saleID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(sale.Total), "sum %s != total %s", sum, sale.Total)
	assert.Equal(t, "40.67", money.Format(sale.Total))
}

func TestCommitSaleInsufficientStockLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 2)

	engine := newEngine(store)

	_, err := engine.CommitSale(ctx, []LineRequest{
		{ProductID: milk.ProductID, Quantity: 1},
		{ProductID: bread.ProductID, Quantity: 5},
	}, "Cash")
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Bread", stockErr.Name)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	assert.Equal(t, 10, store.Product(milk.ProductID).Stock)
	assert.Equal(t, 2, store.Product(bread.ProductID).Stock)
	assert.Zero(t, store.SaleCount())
}

func TestCommitSaleSumsRepeatedLinesPerProduct(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	cola := store.AddProduct("Cola 2L", "2.99", 5)

	engine := newEngine(store)

	_, err := engine.CommitSale(ctx, []LineRequest{
		{ProductID: cola.ProductID, Quantity: 3},
		{ProductID: cola.ProductID, Quantity: 3},
	}, "")

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 5, store.Product(cola.ProductID).Stock)
}

func TestCommitSaleUnknownProduct(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	engine := newEngine(store)

	_, err := engine.CommitSale(ctx, []LineRequest{
		{ProductID: milk.ProductID, Quantity: 1},
		{ProductID: 404, Quantity: 1},
	}, "Cash")
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.Equal(t, 10, store.Product(milk.ProductID).Stock)
	assert.Zero(t, store.SaleCount())
}

func TestCommitSaleRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	engine := newEngine(store)

	tests := []struct {
		name  string
		items []LineRequest
		want  error
	}{
		{"empty", nil, ErrEmptyCart},
		{"zero quantity", []LineRequest{{ProductID: milk.ProductID, Quantity: 0}}, repository.ErrInvalidInput},
		{"negative quantity", []LineRequest{{ProductID: milk.ProductID, Quantity: -2}}, repository.ErrInvalidInput},
		{"bad id", []LineRequest{{ProductID: 0, Quantity: 1}}, repository.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CommitSale(ctx, tt.items, "Cash")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, store.SaleCount())
}

func TestCommitSaleRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	store.FailInsertItems = errors.New("disk full")

	engine := newEngine(store)

	_, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 2}}, "Cash")
	require.EqualError(t, err, "disk full")

	assert.Zero(t, store.SaleCount())
	assert.Equal(t, 10, store.Product(milk.ProductID).Stock)
	assert.Empty(t, store.Movements())
}

func TestCommitSaleMapsGuardedDecrementToStockError(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	store.FailDecrement = repository.ErrNotEnough

	engine := newEngine(store)

	_, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 2}}, "Cash")

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Milk", stockErr.Name)
	assert.Zero(t, store.SaleCount())
}

func TestCommitSaleDefaultsPaymentMethod(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	engine := newEngine(store)

	saleID, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 1}}, "   ")
	require.NoError(t, err)

	sale, _, err := engine.GetSale(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, sale.PaymentMethod)
}

func TestCommitSaleRecordsStockMovements(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	engine := newEngine(store)

	saleID, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 4}}, "Cash")
	require.NoError(t, err)

	movements := store.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementSale, movements[0].MovementType)
	assert.Equal(t, -4, movements[0].ChangeQuant)
	require.NotNil(t, movements[0].SaleID)
	assert.Equal(t, saleID, *movements[0].SaleID)
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingInvalidator) InvalidateProducts(ctx context.Context, ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ids...)
}

func TestCommitSaleInvalidatesOnlyAfterSuccess(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 1)

	inv := &recordingInvalidator{}
	engine := newEngine(store, WithInvalidator(inv))

	_, err := engine.CommitSale(ctx, []LineRequest{{ProductID: bread.ProductID, Quantity: 2}}, "Cash")
	require.Error(t, err)
	assert.Empty(t, inv.ids)

	_, err = engine.CommitSale(ctx, []LineRequest{
		{ProductID: bread.ProductID, Quantity: 1},
		{ProductID: milk.ProductID, Quantity: 1},
	}, "Cash")
	require.NoError(t, err)
	assert.Equal(t, []int64{milk.ProductID, bread.ProductID}, inv.ids)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 5)
	engine := newEngine(store)

	const buyers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 1}}, "Cash")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, 0, store.Product(milk.ProductID).Stock)
	assert.Equal(t, 5, store.SaleCount())
}

func TestConcurrentOvercommitLoserSeesPostCommitStock(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 5)
	engine := newEngine(store)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 4}}, "Cash")
		}()
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		failed++
		var stockErr *StockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 1, stockErr.Available)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, store.Product(milk.ProductID).Stock)
}

func TestListRecentSalesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	engine := newEngine(store)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := engine.CommitSale(ctx, []LineRequest{{ProductID: milk.ProductID, Quantity: 1}}, "Cash")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	recent, err := engine.ListRecentSales(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].SaleID)
	assert.Equal(t, ids[1], recent[1].SaleID)
	assert.Equal(t, 1, recent[0].ItemCount)
}

func TestGetSaleNotFound(t *testing.T) {
	engine := newEngine(repotest.New())

	_, _, err := engine.GetSale(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
