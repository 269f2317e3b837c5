package repository

import (
	"context"
	"fmt"
	"register-service/internal/models"
	"strings"

	"github.com/jackc/pgx/v5"
)

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: category name required", ErrInvalidInput)
	}

	sql := `INSERT INTO categories (name) VALUES ($1) RETURNING category_id`

	if err := r.db.QueryRow(ctx, sql, c.Name).Scan(&c.CategoryID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q already exists", ErrDuplicate, c.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepo) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT category_id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	defer rows.Close()

	categories := []models.Category{}

	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.CategoryID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return categories, nil
}

// Delete removes the category and detaches its products; products are never
// deleted along with their category.
func (r *categoryRepo) Delete(ctx context.Context, id int64) ([]int64, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `UPDATE products SET category_id = NULL, updated_at = NOW() WHERE category_id = $1 RETURNING product_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to detach products from category %d: %w", id, err)
	}

	detached, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to detach products from category %d: %w", id, err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM categories WHERE category_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete category %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return detached, nil
}
