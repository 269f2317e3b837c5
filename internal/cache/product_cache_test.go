package cache

import (
	"context"
	"register-service/internal/models"
	"register-service/internal/repository"
	"register-service/internal/repository/repotest"
	"register-service/internal/sales"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	repository.ProductRepository
	byID      int
	byBarcode int
	all       int
}

func (r *countingRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	r.byID++
	return r.ProductRepository.GetByID(ctx, id)
}

func (r *countingRepo) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	r.byBarcode++
	return r.ProductRepository.GetByBarcode(ctx, barcode)
}

func (r *countingRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	r.all++
	return r.ProductRepository.GetAll(ctx)
}

func setupCache(t *testing.T) (*CachedProductRepository, *countingRepo, *repotest.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := repotest.New()
	counting := &countingRepo{ProductRepository: store.Products()}
	return NewCachedProductRepository(counting, rdb), counting, store, mr
}

func TestGetByIDServesFromCache(t *testing.T) {
	ctx := context.Background()
	cached, counting, store, mr := setupCache(t)
	milk := store.AddProduct("Milk", "3.00", 10)

	first, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	second, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.byID)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
	assert.True(t, mr.Exists("product:1"))
}

func TestGetByIDCachesNotFound(t *testing.T) {
	ctx := context.Background()
	cached, counting, _, mr := setupCache(t)

	_, err := cached.GetByID(ctx, 99)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = cached.GetByID(ctx, 99)
	require.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, 1, counting.byID)
	value, err := mr.Get("product:99")
	require.NoError(t, err)
	assert.Equal(t, "notfound", value)
}

func TestCreateClearsNotFoundMarker(t *testing.T) {
	ctx := context.Background()
	cached, _, _, _ := setupCache(t)

	_, err := cached.GetByID(ctx, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	p := &models.Product{Name: "Milk", Price: decimal.RequireFromString("3.00"), Stock: 4}
	require.NoError(t, cached.Create(ctx, p))

	got, err := cached.GetByID(ctx, p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Name)
}

func TestGetByBarcodeUsesIDCache(t *testing.T) {
	ctx := context.Background()
	cached, counting, store, mr := setupCache(t)

	code := "4001234567890"
	p := &models.Product{Name: "Milk", Barcode: &code, Price: decimal.RequireFromString("1.29"), Stock: 4}
	require.NoError(t, store.Products().Create(ctx, p))

	_, err := cached.GetByBarcode(ctx, code)
	require.NoError(t, err)
	got, err := cached.GetByBarcode(ctx, code)
	require.NoError(t, err)

	assert.Equal(t, p.ProductID, got.ProductID)
	assert.Equal(t, 1, counting.byBarcode)
	assert.Equal(t, 0, counting.byID)

	id, err := mr.Get("product:barcode:" + code)
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestUpdateInvalidatesProduct(t *testing.T) {
	ctx := context.Background()
	cached, _, store, _ := setupCache(t)
	milk := store.AddProduct("Milk", "3.00", 10)

	_, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	_, err = cached.GetAll(ctx)
	require.NoError(t, err)

	price := decimal.RequireFromString("3.50")
	_, err = cached.Update(ctx, milk.ProductID, models.ProductChanges{Price: &price})
	require.NoError(t, err)

	got, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "3.50", got.Price.StringFixed(2))

	all, err := cached.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "3.50", all[0].Price.StringFixed(2))
}

func TestGetAllServesFromCache(t *testing.T) {
	ctx := context.Background()
	cached, counting, store, _ := setupCache(t)
	store.AddProduct("Milk", "3.00", 10)
	store.AddProduct("Bread", "2.49", 5)

	for range 3 {
		products, err := cached.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 2)
	}
	assert.Equal(t, 1, counting.all)
}

func TestSaleInvalidatesStock(t *testing.T) {
	ctx := context.Background()
	cached, _, store, _ := setupCache(t)
	milk := store.AddProduct("Milk", "3.00", 10)

	before, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	require.Equal(t, 10, before.Stock)

	engine := sales.NewEngine(store.Sales(), sales.WithInvalidator(cached))
	_, err = engine.CommitSale(ctx, []sales.LineRequest{{ProductID: milk.ProductID, Quantity: 3}}, "Cash")
	require.NoError(t, err)

	after, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 7, after.Stock)
}

func TestRedisOutageFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	milk := store.AddProduct("Milk", "3.00", 10)

	// Nothing listens on port 1.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	counting := &countingRepo{ProductRepository: store.Products()}
	cached := NewCachedProductRepository(counting, rdb)

	got, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Name)
	assert.Equal(t, 1, counting.byID)

	_, err = cached.AdjustStock(ctx, milk.ProductID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, store.Product(milk.ProductID).Stock)
}

func TestNotFoundMarkerExpires(t *testing.T) {
	ctx := context.Background()
	cached, _, store, mr := setupCache(t)

	_, err := cached.GetByID(ctx, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Created behind the cache's back.
	store.AddProduct("Milk", "3.00", 10)
	mr.FastForward(2 * time.Minute)

	got, err := cached.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Name)
}

func TestCategoryDeleteInvalidatesProducts(t *testing.T) {
	ctx := context.Background()
	cached, _, store, mr := setupCache(t)
	milk := store.AddProduct("Milk", "3.00", 10)
	bread := store.AddProduct("Bread", "2.49", 5)

	categories := NewCachedCategoryRepository(store.Categories(), cached)
	dairy := &models.Category{Name: "Dairy"}
	require.NoError(t, categories.Create(ctx, dairy))
	_, err := cached.Update(ctx, milk.ProductID, models.ProductChanges{CategoryID: &dairy.CategoryID})
	require.NoError(t, err)

	linked, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	require.NotNil(t, linked.CategoryID)
	_, err = cached.GetByID(ctx, bread.ProductID)
	require.NoError(t, err)
	_, err = cached.GetAll(ctx)
	require.NoError(t, err)

	detached, err := categories.Delete(ctx, dairy.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, []int64{milk.ProductID}, detached)
	assert.False(t, mr.Exists("product:1"))
	assert.False(t, mr.Exists("products:all"))
	assert.True(t, mr.Exists("product:2"))

	got, err := cached.GetByID(ctx, milk.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	all, err := cached.GetAll(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.Nil(t, p.CategoryID)
	}

	_, err = categories.Delete(ctx, dairy.CategoryID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
