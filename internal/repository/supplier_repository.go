package repository

import (
	"context"
	"errors"
	"fmt"
	"register-service/internal/models"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type supplierRepo struct {
	db DBTX
}

var validate = validator.New()

func NewSupplierRepository(db DBTX) SupplierRepository {
	return &supplierRepo{db: db}
}

func supplierValidationError(err error) error {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		switch validationErr[0].Field() {
		case "Email":
			return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
		case "Phone":
			return fmt.Errorf("%w: phone must be at most 30 characters", ErrInvalidInput)
		case "Name":
			return fmt.Errorf("%w: name must be 2-150 characters", ErrInvalidInput)
		case "Address":
			return fmt.Errorf("%w: address must be at most 255 characters", ErrInvalidInput)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func (r *supplierRepo) Create(ctx context.Context, s *models.Supplier) error {
	s.Name = strings.TrimSpace(s.Name)
	if err := validate.Struct(s); err != nil {
		return supplierValidationError(err)
	}

	sql := `
		INSERT INTO suppliers (
			name,
			phone,
			email,
			address
	) VALUES ($1, $2, $3, $4)
	RETURNING supplier_id
	`

	err := r.db.QueryRow(ctx, sql,
		s.Name,
		s.Phone,
		s.Email,
		s.Address,
	).Scan(&s.SupplierID)
	if err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}

	return nil
}

func (r *supplierRepo) GetByID(ctx context.Context, id int64) (*models.Supplier, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return getSupplier(ctx, r.db, id)
}

func getSupplier(ctx context.Context, db DBTX, id int64) (*models.Supplier, error) {
	sql := `
		SELECT
		supplier_id,
		name,
		phone,
		email,
		address
		FROM suppliers WHERE supplier_id = $1
	`

	var supplier models.Supplier

	err := db.QueryRow(ctx, sql, id).Scan(
		&supplier.SupplierID,
		&supplier.Name,
		&supplier.Phone,
		&supplier.Email,
		&supplier.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get supplier with id %d: %w", id, err)
	}

	return &supplier, nil
}

func (r *supplierRepo) GetAll(ctx context.Context) ([]models.Supplier, error) {
	sql := `
	SELECT
	supplier_id,
	name,
	phone,
	email,
	address
	FROM suppliers
	ORDER BY name, supplier_id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get all suppliers: %w", err)
	}

	defer rows.Close()

	suppliers := []models.Supplier{}

	for rows.Next() {
		var s models.Supplier

		err := rows.Scan(&s.SupplierID,
			&s.Name,
			&s.Phone,
			&s.Email,
			&s.Address,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suppliers: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return suppliers, nil
}

func (r *supplierRepo) Update(ctx context.Context, id int64, changes models.SupplierChanges) (*models.Supplier, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}
	if err := validate.Struct(changes); err != nil {
		return nil, supplierValidationError(err)
	}

	setMap := map[string]interface{}{}
	if changes.Name != nil {
		setMap["name"] = strings.TrimSpace(*changes.Name)
	}
	if changes.Phone != nil {
		setMap["phone"] = *changes.Phone
	}
	if changes.Email != nil {
		setMap["email"] = *changes.Email
	}
	if changes.Address != nil {
		setMap["address"] = *changes.Address
	}
	if len(setMap) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	sql, args, err := psql.Update("suppliers").
		SetMap(setMap).
		Where(squirrel.Eq{"supplier_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build supplier update: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update supplier %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return getSupplier(ctx, r.db, id)
}

func (r *supplierRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE supplier_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// LinkProduct records that the supplier delivers the product; linking an
// already linked product replaces its supply price.
func (r *supplierRepo) LinkProduct(ctx context.Context, supplierID, productID int64, supplyPrice decimal.Decimal) error {
	if supplierID <= 0 || productID <= 0 {
		return fmt.Errorf("%w: IDs must be positive", ErrInvalidInput)
	}
	if supplyPrice.IsNegative() {
		return fmt.Errorf("%w: supply price cannot be negative", ErrInvalidInput)
	}

	sql := `
		INSERT INTO supplier_products (supplier_id, product_id, supply_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (supplier_id, product_id) DO UPDATE SET supply_price = EXCLUDED.supply_price
	`

	if _, err := r.db.Exec(ctx, sql, supplierID, productID, supplyPrice); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to link product %d to supplier %d: %w", productID, supplierID, err)
	}

	return nil
}

func (r *supplierRepo) UnlinkProduct(ctx context.Context, supplierID, productID int64) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM supplier_products WHERE supplier_id = $1 AND product_id = $2`,
		supplierID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to unlink product %d from supplier %d: %w", productID, supplierID, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *supplierRepo) GetProducts(ctx context.Context, supplierID int64) ([]models.SupplierProduct, error) {
	if supplierID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT
		p.product_id,
		p.name,
		p.barcode,
		p.price,
		sp.supply_price
		FROM supplier_products sp
		JOIN products p ON p.product_id = sp.product_id
		WHERE sp.supplier_id = $1
		ORDER BY p.name`

	rows, err := r.db.Query(ctx, sql, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products of supplier %d: %w", supplierID, err)
	}

	defer rows.Close()

	products := []models.SupplierProduct{}

	for rows.Next() {
		var p models.SupplierProduct

		if err := rows.Scan(&p.ProductID, &p.Name, &p.Barcode, &p.Price, &p.SupplyPrice); err != nil {
			return nil, fmt.Errorf("failed to scan supplier products: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}
