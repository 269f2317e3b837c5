package cache

import (
	"context"
	"register-service/internal/models"
	"register-service/internal/repository"
)

// CachedCategoryRepository keeps cached products consistent with category
// deletes, which rewrite category_id on product rows behind the product cache.
type CachedCategoryRepository struct {
	realRepo repository.CategoryRepository
	products *CachedProductRepository
}

func NewCachedCategoryRepository(realRepo repository.CategoryRepository, products *CachedProductRepository) *CachedCategoryRepository {
	return &CachedCategoryRepository{realRepo: realRepo, products: products}
}

func (c *CachedCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return c.realRepo.Create(ctx, category)
}

func (c *CachedCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	return c.realRepo.GetAll(ctx)
}

func (c *CachedCategoryRepository) Delete(ctx context.Context, id int64) ([]int64, error) {
	detached, err := c.realRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	c.products.InvalidateProducts(ctx, detached...)

	return detached, nil
}
