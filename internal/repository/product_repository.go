package repository

import (
	"context"
	"errors"
	"fmt"
	"register-service/internal/models"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var productColumns = []string{
	"p.product_id",
	"p.name",
	"p.barcode",
	"p.category_id",
	"c.name",
	"p.price",
	"p.cost_price",
	"p.stock",
	"p.low_stock_threshold",
	"p.created_at",
	"p.updated_at",
}

type productRepo struct {
	db DBTX
}

func NewProductRepository(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

func selectProducts() squirrel.SelectBuilder {
	return psql.Select(productColumns...).
		From("products p").
		LeftJoin("categories c ON c.category_id = p.category_id")
}

func scanProduct(row pgx.Row, p *models.Product) error {
	return row.Scan(
		&p.ProductID,
		&p.Name,
		&p.Barcode,
		&p.CategoryID,
		&p.CategoryName,
		&p.Price,
		&p.CostPrice,
		&p.Stock,
		&p.LowStockThreshold,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func validateProduct(p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price cannot be negative", ErrInvalidInput)
	}
	if p.CostPrice.IsNegative() {
		return fmt.Errorf("%w: product cost price cannot be negative", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}
	if p.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold cannot be negative", ErrInvalidInput)
	}
	return nil
}

// nullableBarcode stores blank barcodes as NULL so the unique index ignores them.
func nullableBarcode(barcode *string) *string {
	if barcode == nil || strings.TrimSpace(*barcode) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	return &trimmed
}

func nullableCategory(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = models.DefaultLowStockThreshold
	}
	if err := validateProduct(p); err != nil {
		return err
	}

	p.Barcode = nullableBarcode(p.Barcode)
	p.CategoryID = nullableCategory(p.CategoryID)

	sql := `
		INSERT INTO products (
			name,
			barcode,
			category_id,
			price,
			cost_price,
			stock,
			low_stock_threshold
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING product_id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql,
		strings.TrimSpace(p.Name),
		p.Barcode,
		p.CategoryID,
		p.Price,
		p.CostPrice,
		p.Stock,
		p.LowStockThreshold,
	).Scan(&p.ProductID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: barcode already exists", ErrDuplicate)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: unknown category", ErrInvalidInput)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return r.getOne(ctx, r.db, squirrel.Eq{"p.product_id": id})
}

func (r *productRepo) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode cannot be empty", ErrInvalidInput)
	}

	return r.getOne(ctx, r.db, squirrel.Eq{"p.barcode": barcode})
}

func (r *productRepo) getOne(ctx context.Context, db DBTX, where squirrel.Sqlizer) (*models.Product, error) {
	sql, args, err := selectProducts().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product query: %w", err)
	}

	var product models.Product
	if err := scanProduct(db.QueryRow(ctx, sql, args...), &product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.Search(ctx, models.ProductFilter{})
}

func (r *productRepo) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	q := selectProducts().OrderBy("p.name", "p.product_id")

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + escapeLike(keyword) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"p.name": like},
			squirrel.ILike{"p.barcode": like},
		})
	}
	if filter.CategoryID > 0 {
		q = q.Where(squirrel.Eq{"p.category_id": filter.CategoryID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product search: %w", err)
	}

	return r.queryProducts(ctx, sql, args...)
}

func (r *productRepo) GetLowStock(ctx context.Context) ([]models.Product, error) {
	sql, args, err := selectProducts().
		Where("p.stock <= p.low_stock_threshold").
		OrderBy("p.stock ASC", "p.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build low stock query: %w", err)
	}

	return r.queryProducts(ctx, sql, args...)
}

func (r *productRepo) queryProducts(ctx context.Context, sql string, args ...any) ([]models.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	defer rows.Close()

	products := []models.Product{}

	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

// productChangeSet maps the allowed columns of a partial update.
type productChangeSet models.ProductChanges

func (c productChangeSet) validate() error {
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return fmt.Errorf("%w: product name cannot be empty", ErrInvalidInput)
	}
	if c.Price != nil && c.Price.IsNegative() {
		return fmt.Errorf("%w: product price cannot be negative", ErrInvalidInput)
	}
	if c.CostPrice != nil && c.CostPrice.IsNegative() {
		return fmt.Errorf("%w: product cost price cannot be negative", ErrInvalidInput)
	}
	if c.Stock != nil && *c.Stock < 0 {
		return fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}
	if c.LowStockThreshold != nil && *c.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (c productChangeSet) toMap() map[string]interface{} {
	m := make(map[string]interface{})
	if c.Name != nil {
		m["name"] = strings.TrimSpace(*c.Name)
	}
	if c.Barcode != nil {
		m["barcode"] = nullableBarcode(c.Barcode)
	}
	if c.CategoryID != nil {
		m["category_id"] = nullableCategory(c.CategoryID)
	}
	if c.Price != nil {
		m["price"] = *c.Price
	}
	if c.CostPrice != nil {
		m["cost_price"] = *c.CostPrice
	}
	if c.Stock != nil {
		m["stock"] = *c.Stock
	}
	if c.LowStockThreshold != nil {
		m["low_stock_threshold"] = *c.LowStockThreshold
	}
	return m
}

func (r *productRepo) Update(ctx context.Context, id int64, changes models.ProductChanges) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	changeSet := productChangeSet(changes)
	if err := changeSet.validate(); err != nil {
		return nil, err
	}

	setMap := changeSet.toMap()
	if len(setMap) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	setMap["updated_at"] = squirrel.Expr("NOW()")

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentStock int
	err = tx.QueryRow(ctx, "SELECT stock FROM products WHERE product_id = $1 FOR UPDATE", id).Scan(&currentStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}

	sql, args, err := psql.Update("products").
		SetMap(setMap).
		Where(squirrel.Eq{"product_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product update: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%w: barcode already exists", ErrDuplicate)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("%w: unknown category", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}

	if changes.Stock != nil && *changes.Stock != currentStock {
		err := insertMovement(ctx, tx, id, nil, models.MovementAdjustment, *changes.Stock-currentStock)
		if err != nil {
			return nil, err
		}
	}

	product, err := r.getOne(ctx, tx, squirrel.Eq{"p.product_id": id})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return product, nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `DELETE FROM products WHERE product_id = $1`

	result, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AdjustStock applies a signed stock change outside of a sale, e.g. a
// delivery or a stock count correction, and records it as a movement.
func (r *productRepo) AdjustStock(ctx context.Context, id int64, change int) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}
	if change == 0 {
		return nil, fmt.Errorf("%w: stock change cannot be 0", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int
	err = tx.QueryRow(ctx, "SELECT stock FROM products WHERE product_id = $1 FOR UPDATE", id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}

	if current+change < 0 {
		return nil, fmt.Errorf("%w: current: %d, requested change: %d", ErrNotEnough, current, change)
	}

	sql := `UPDATE products SET
		stock = stock + $1,
		updated_at = NOW()
	WHERE product_id = $2
	`
	if _, err := tx.Exec(ctx, sql, change, id); err != nil {
		return nil, fmt.Errorf("failed to update product stock %d: %w", id, err)
	}

	if err := insertMovement(ctx, tx, id, nil, models.MovementAdjustment, change); err != nil {
		return nil, err
	}

	product, err := r.getOne(ctx, tx, squirrel.Eq{"p.product_id": id})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return product, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
