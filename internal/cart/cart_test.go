package cart

import (
	"context"
	"errors"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/repository"
	"register-service/internal/repository/repotest"
	"register-service/internal/sales"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addBarcoded(t *testing.T, store *repotest.Store, name, price, barcode string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:              name,
		Barcode:           &barcode,
		Price:             decimal.RequireFromString(price),
		Stock:             stock,
		LowStockThreshold: models.DefaultLowStockThreshold,
	}
	require.NoError(t, store.Products().Create(context.Background(), &p))
	return p
}

func TestAddMilkWithinStock(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 7))

	lines := c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, "Milk", lines[0].Name)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, "21.00", money.Format(lines[0].Subtotal))

	totals := c.Totals()
	assert.Equal(t, 7, totals.ItemCount)
	assert.Equal(t, "21.00", money.Format(totals.Subtotal))
	assert.Equal(t, "1.05", money.Format(totals.Tax))
	assert.Equal(t, "22.05", money.Format(totals.Total))
}

func TestAddMergesRepeatedProduct(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 2))
	require.NoError(t, c.Add(ctx, store.Products(), bread.ProductID, 1))
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 3))

	lines := c.Snapshot()
	require.Len(t, lines, 2)
	assert.Equal(t, milk.ProductID, lines[0].ProductID, "merge keeps the original position")
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "15.00", money.Format(lines[0].Subtotal))
	assert.Equal(t, bread.ProductID, lines[1].ProductID)
}

func TestAddBeyondStockLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 7))
	before := c.Snapshot()

	err := c.Add(ctx, store.Products(), milk.ProductID, 4)
	require.ErrorIs(t, err, sales.ErrInsufficientStock)

	var stockErr *sales.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Milk", stockErr.Name)
	assert.Equal(t, 11, stockErr.Requested)
	assert.Equal(t, 10, stockErr.Available)

	assert.Equal(t, before, c.Snapshot())
}

func TestAddRefreshesPriceOnMerge(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 1))

	price := decimal.RequireFromString("3.50")
	_, err := store.Products().Update(ctx, milk.ProductID, models.ProductChanges{Price: &price})
	require.NoError(t, err)

	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 1))

	lines := c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, "3.50", money.Format(lines[0].UnitPrice))
	assert.Equal(t, "7.00", money.Format(lines[0].Subtotal))
}

func TestAddRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	c := New()
	require.ErrorIs(t, c.Add(ctx, store.Products(), milk.ProductID, 0), repository.ErrInvalidInput)
	require.ErrorIs(t, c.Add(ctx, store.Products(), 999, 1), sales.ErrUnknownProduct)
	require.ErrorIs(t, c.AddByBarcode(ctx, store.Products(), "000", 1), sales.ErrUnknownProduct)
	assert.Equal(t, 0, c.Len())
}

func TestAddByBarcode(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	addBarcoded(t, store, "Whole Milk 1L", "1.29", "4001234567890", 50)

	c := New()
	require.NoError(t, c.AddByBarcode(ctx, store.Products(), " 4001234567890 ", 2))
	require.NoError(t, c.AddByBarcode(ctx, store.Products(), "4001234567890", 1))

	lines := c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "3.87", money.Format(lines[0].Subtotal))
}

func TestRemoveChecksBounds(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 1))
	require.NoError(t, c.Add(ctx, store.Products(), bread.ProductID, 1))

	for _, idx := range []int{-1, 2, 10} {
		require.ErrorIs(t, c.Remove(idx), ErrIndexOutOfRange)
	}
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Remove(0))
	lines := c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, bread.ProductID, lines[0].ProductID)
}

func TestTotalsArePure(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 3))
	require.NoError(t, c.Add(ctx, store.Products(), bread.ProductID, 2))

	first := c.Totals()
	second := c.Totals()
	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.ItemCount)
	assert.Equal(t, "13.98", money.Format(first.Subtotal))
	assert.Equal(t, "0.70", money.Format(first.Tax))
	assert.Equal(t, "14.68", money.Format(first.Total))

	empty := New().Totals()
	assert.Equal(t, 0, empty.ItemCount)
	assert.True(t, empty.Total.IsZero())
}

func TestClearEmptiesCart(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 1))
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Snapshot())
}

func TestCheckoutCommitsAndClears(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)
	engine := sales.NewEngine(store.Sales())

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 2))
	require.NoError(t, c.Add(ctx, store.Products(), bread.ProductID, 1))

	saleID, err := c.Checkout(ctx, engine, "")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	sale, items, err := engine.GetSale(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, "8.49", money.Format(sale.Total))
	assert.Equal(t, models.PaymentCash, sale.PaymentMethod)
	assert.Len(t, items, 2)

	assert.Equal(t, 8, store.Product(milk.ProductID).Stock)
	assert.Equal(t, 4, store.Product(bread.ProductID).Stock)
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := repotest.New()
	engine := sales.NewEngine(store.Sales())

	_, err := New().Checkout(context.Background(), engine, "Cash")
	require.ErrorIs(t, err, sales.ErrEmptyCart)
	assert.Equal(t, 0, store.SaleCount())
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	bread := store.AddProduct("Bread", "2.49", 5)
	engine := sales.NewEngine(store.Sales())

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), bread.ProductID, 4))

	// Another register sold most of the bread in the meantime.
	store.SetStock(bread.ProductID, 2)

	_, err := c.Checkout(ctx, engine, "Card")
	require.ErrorIs(t, err, sales.ErrInsufficientStock)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, store.Product(bread.ProductID).Stock)
	assert.Equal(t, 0, store.SaleCount())
}

func TestMilkScenario(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)
	engine := sales.NewEngine(store.Sales())

	c := New()
	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 4))
	lines := c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "12.00", money.Format(lines[0].Subtotal))

	require.NoError(t, c.Add(ctx, store.Products(), milk.ProductID, 3))
	lines = c.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, "21.00", money.Format(lines[0].Subtotal))

	saleID, err := c.Checkout(ctx, engine, "Cash")
	require.NoError(t, err)

	sale, _, err := engine.GetSale(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, "21.00", money.Format(sale.Total))
	assert.Equal(t, 3, store.Product(milk.ProductID).Stock)
}

func TestBreadScenario(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	bread := store.AddProduct("Bread", "2.49", 2)

	c := New()
	err := c.Add(ctx, store.Products(), bread.ProductID, 5)

	var stockErr *sales.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 0, c.Len())
}
