package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"register-service/internal/models"
	"register-service/internal/repository"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	allProductsKey = "products:all"
	notFoundMarker = "notfound"
)

// CachedProductRepository fronts a ProductRepository with Redis. Redis
// failures are logged and the call falls through to the database; the
// checkout path never reads through this cache.
type CachedProductRepository struct {
	realRepo    repository.ProductRepository
	redis       *redis.Client
	ttl         time.Duration
	notFoundTTL time.Duration
}

func NewCachedProductRepository(realRepo repository.ProductRepository, redis *redis.Client) *CachedProductRepository {
	return &CachedProductRepository{
		realRepo:    realRepo,
		redis:       redis,
		ttl:         5 * time.Minute,
		notFoundTTL: 1 * time.Minute,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func barcodeKey(barcode string) string {
	return "product:barcode:" + barcode
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}

		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			log.Printf("Failed to unmarshal cached product (continuing with DB): %v", err)
			break
		}

		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		log.Printf("Redis error (continuing with DB): %v", err)
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, c.notFoundTTL).Err(); setErr != nil {
				log.Printf("Failed to cache notfound: %v", setErr)
			}
		}
		return nil, err
	}

	c.store(ctx, key, product)

	return product, nil
}

// GetByBarcode caches the barcode to id mapping and resolves the product
// through the id cache, so invalidating by id is enough for price changes.
func (c *CachedProductRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	key := barcodeKey(barcode)

	id, err := c.redis.Get(ctx, key).Int64()
	switch {
	case err == nil:
		product, err := c.GetByID(ctx, id)
		if err == nil && product.Barcode != nil && *product.Barcode == barcode {
			return product, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		c.del(ctx, key)

	case errors.Is(err, redis.Nil):

	default:
		log.Printf("Redis error (continuing with DB): %v", err)
	}

	product, err := c.realRepo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	if err := c.redis.Set(ctx, key, strconv.FormatInt(product.ProductID, 10), c.ttl).Err(); err != nil {
		log.Printf("failed to cache barcode %s: %v", barcode, err)
	}
	c.store(ctx, productKey(product.ProductID), product)

	return product, nil
}

func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	data, err := c.redis.Get(ctx, allProductsKey).Bytes()

	if err == nil {
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		log.Printf("Failed to unmarshal cached products (continuing with DB): %v", err)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("Redis error: %v (continuing with DB)", err)
	}

	products, err := c.realRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, allProductsKey, products)

	return products, nil
}

// Search and GetLowStock depend on live stock and filters; they are not cached.
func (c *CachedProductRepository) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return c.realRepo.Search(ctx, filter)
}

func (c *CachedProductRepository) GetLowStock(ctx context.Context) ([]models.Product, error) {
	return c.realRepo.GetLowStock(ctx)
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}

	// A previous miss may have cached the new id or barcode as not found.
	keys := []string{allProductsKey, productKey(product.ProductID)}
	if product.Barcode != nil {
		keys = append(keys, barcodeKey(*product.Barcode))
	}
	c.del(ctx, keys...)

	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, id int64, changes models.ProductChanges) (*models.Product, error) {
	old, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		c.InvalidateProducts(ctx, id)
		return nil, err
	}

	updated, err := c.realRepo.Update(ctx, id, changes)
	c.invalidate(ctx, old)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		c.InvalidateProducts(ctx, id)
		return err
	}

	err = c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, product)

	return err
}

func (c *CachedProductRepository) AdjustStock(ctx context.Context, id int64, change int) (*models.Product, error) {
	product, err := c.realRepo.AdjustStock(ctx, id, change)
	c.InvalidateProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// InvalidateProducts drops the cached entries of the given products, for
// example after a sale changed their stock.
func (c *CachedProductRepository) InvalidateProducts(ctx context.Context, ids ...int64) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, allProductsKey)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	c.del(ctx, keys...)
}

func (c *CachedProductRepository) invalidate(ctx context.Context, product *models.Product) {
	keys := []string{allProductsKey, productKey(product.ProductID)}
	if product.Barcode != nil {
		keys = append(keys, barcodeKey(*product.Barcode))
	}
	c.del(ctx, keys...)
}

func (c *CachedProductRepository) store(ctx context.Context, key string, value any) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		log.Printf("Failed to marshal %s: %v", key, err)
		return
	}

	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		log.Printf("failed to cache %s: %v", key, err)
	}
}

func (c *CachedProductRepository) del(ctx context.Context, keys ...string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to delete cache keys %v: %v", keys, err)
	}
}
