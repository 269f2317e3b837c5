package repository

import (
	"context"
	"fmt"
	"register-service/internal/models"
)

type movementRepo struct {
	db DBTX
}

func NewMovementRepository(db DBTX) MovementRepository {
	return &movementRepo{db: db}
}

var validMovementTypes = map[string]bool{
	models.MovementSale:       true,
	models.MovementAdjustment: true,
}

// insertMovement is only called from inside the transaction that changes the stock.
func insertMovement(ctx context.Context, db DBTX, productID int64, saleID *int64, movementType string, change int) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product ID must be positive", ErrInvalidInput)
	}
	if change == 0 {
		return fmt.Errorf("%w: the quantity change cannot be 0", ErrInvalidInput)
	}
	if !validMovementTypes[movementType] {
		return fmt.Errorf("%w: invalid movement type '%s'", ErrInvalidInput, movementType)
	}

	sql := ` INSERT INTO stock_movements (
		product_id,
		sale_id,
		movement_type,
		change_quant
		) VALUES ($1, $2, $3, $4)
	`

	if _, err := db.Exec(ctx, sql, productID, saleID, movementType, change); err != nil {
		return fmt.Errorf("failed to create stock movement: %w", err)
	}

	return nil
}

func (r *movementRepo) GetByProductID(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return r.query(ctx, "product_id", productID)
}

func (r *movementRepo) GetBySaleID(ctx context.Context, saleID int64) ([]models.StockMovement, error) {
	if saleID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return r.query(ctx, "sale_id", saleID)
}

func (r *movementRepo) query(ctx context.Context, column string, id int64) ([]models.StockMovement, error) {
	sql := `SELECT
		movement_id,
		product_id,
		sale_id,
		movement_type,
		change_quant,
		created_at
		FROM stock_movements
		WHERE ` + column + ` = $1
		ORDER BY movement_id`

	rows, err := r.db.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock movements by %s %d: %w", column, id, err)
	}

	defer rows.Close()

	movements := []models.StockMovement{}

	for rows.Next() {
		var m models.StockMovement

		err := rows.Scan(&m.MovementID,
			&m.ProductID,
			&m.SaleID,
			&m.MovementType,
			&m.ChangeQuant,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movements: %w", err)
		}

		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return movements, nil
}
