package repository

import (
	"context"
	"errors"
	"fmt"
	"register-service/internal/models"

	"github.com/jackc/pgx/v5"
)

const DefaultRecentSalesLimit = 20

type saleRepo struct {
	db DBTX
}

func NewSaleRepository(db DBTX) SaleRepository {
	return &saleRepo{db: db}
}

func (r *saleRepo) WithinTx(ctx context.Context, fn func(tx SaleTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&saleTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type saleTx struct {
	tx pgx.Tx
}

func (s *saleTx) LockProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	// Rows are locked in id order so that overlapping checkouts cannot deadlock.
	sql := ` SELECT
	product_id,
	name,
	barcode,
	category_id,
	price,
	cost_price,
	stock,
	low_stock_threshold,
	created_at,
	updated_at
	FROM products WHERE product_id = ANY($1)
	ORDER BY product_id
	FOR UPDATE
	`

	rows, err := s.tx.Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	defer rows.Close()

	products := make(map[int64]models.Product, len(ids))

	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ProductID,
			&p.Name,
			&p.Barcode,
			&p.CategoryID,
			&p.Price,
			&p.CostPrice,
			&p.Stock,
			&p.LowStockThreshold,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product data: %w", err)
		}

		products[p.ProductID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

func (s *saleTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	if sale == nil {
		return fmt.Errorf("%w: sale cannot be nil", ErrInvalidInput)
	}

	insert := `INSERT INTO sales (
	total,
	payment_method,
	created_at
	) VALUES ($1, $2, $3)
	RETURNING sale_id
	`

	err := s.tx.QueryRow(ctx, insert, sale.Total, sale.PaymentMethod, sale.CreatedAt).Scan(&sale.SaleID)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	return nil
}

func (s *saleTx) InsertItems(ctx context.Context, saleID int64, items []models.SaleItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: sale items cannot be empty", ErrInvalidInput)
	}

	insertItemSQL := `INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING sale_item_id
	`

	for i := range items {
		item := &items[i]
		item.SaleID = saleID

		err := s.tx.QueryRow(ctx, insertItemSQL,
			saleID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		).Scan(&item.SaleItemID)
		if err != nil {
			return fmt.Errorf("failed to create sale item: %w", err)
		}
	}

	return nil
}

// DecrementStock refuses to take stock below zero even if the caller's
// validation was wrong, and records the change in the movement ledger.
func (s *saleTx) DecrementStock(ctx context.Context, productID int64, quantity int, saleID int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	update := `UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE product_id = $2 AND stock >= $1`

	result, err := s.tx.Exec(ctx, update, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", productID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrNotEnough, productID)
	}

	return insertMovement(ctx, s.tx, productID, &saleID, models.MovementSale, -quantity)
}

func (r *saleRepo) GetSaleWithItems(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error) {
	if id <= 0 {
		return nil, nil, fmt.Errorf("%w: sale ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT
		sale_id,
		total,
		payment_method,
		created_at
		FROM sales
		WHERE sale_id = $1
	`

	var sale models.Sale

	err := r.db.QueryRow(ctx, sql, id).Scan(
		&sale.SaleID,
		&sale.Total,
		&sale.PaymentMethod,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get sale %d: %w", id, err)
	}

	itemsSQL := `SELECT
		sale_item_id,
		sale_id,
		product_id,
		product_name,
		quantity,
		unit_price,
		subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY sale_item_id
	`

	rows, err := r.db.Query(ctx, itemsSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get items of sale %d: %w", id, err)
	}

	defer rows.Close()

	items := []models.SaleItem{}

	for rows.Next() {
		var item models.SaleItem

		err := rows.Scan(&item.SaleItemID,
			&item.SaleID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan sale item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration: %w", err)
	}

	sale.CreatedAt = sale.CreatedAt.UTC()

	return &sale, items, nil
}

func (r *saleRepo) GetRecent(ctx context.Context, limit int) ([]models.SaleSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentSalesLimit
	}

	sql := `
	SELECT
		s.sale_id,
		s.total,
		s.payment_method,
		s.created_at,
		COUNT(si.sale_item_id)
		FROM sales s
		LEFT JOIN sale_items si ON si.sale_id = s.sale_id
		GROUP BY s.sale_id
		ORDER BY s.created_at DESC, s.sale_id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sales: %w", err)
	}

	defer rows.Close()

	sales := []models.SaleSummary{}

	for rows.Next() {
		var s models.SaleSummary

		err := rows.Scan(&s.SaleID,
			&s.Total,
			&s.PaymentMethod,
			&s.CreatedAt,
			&s.ItemCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent sales: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return sales, nil
}
