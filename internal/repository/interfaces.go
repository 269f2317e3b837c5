package repository

import (
	"context"
	"register-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, id int64, changes models.ProductChanges) (*models.Product, error)
	Delete(ctx context.Context, id int64) error

	AdjustStock(ctx context.Context, id int64, change int) (*models.Product, error)
	GetLowStock(ctx context.Context) ([]models.Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetAll(ctx context.Context) ([]models.Category, error)
	// Delete returns the ids of the products that lost their category.
	Delete(ctx context.Context, id int64) ([]int64, error)
}

// SaleRepository runs a checkout inside a single transaction. Everything
// done through the SaleTx passed to fn is rolled back if fn returns an error.
type SaleRepository interface {
	WithinTx(ctx context.Context, fn func(tx SaleTx) error) error
	GetSaleWithItems(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error)
	GetRecent(ctx context.Context, limit int) ([]models.SaleSummary, error)
}

type SaleTx interface {
	// LockProducts re-reads the products and holds row locks on them until
	// the transaction ends. Missing ids are absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	InsertSale(ctx context.Context, sale *models.Sale) error
	InsertItems(ctx context.Context, saleID int64, items []models.SaleItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int, saleID int64) error
}

type MovementRepository interface {
	GetByProductID(ctx context.Context, productID int64) ([]models.StockMovement, error)
	GetBySaleID(ctx context.Context, saleID int64) ([]models.StockMovement, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, id int64) (*models.Supplier, error)
	GetAll(ctx context.Context) ([]models.Supplier, error)
	Update(ctx context.Context, id int64, changes models.SupplierChanges) (*models.Supplier, error)
	Delete(ctx context.Context, id int64) error

	LinkProduct(ctx context.Context, supplierID, productID int64, supplyPrice decimal.Decimal) error
	UnlinkProduct(ctx context.Context, supplierID, productID int64) error
	GetProducts(ctx context.Context, supplierID int64) ([]models.SupplierProduct, error)
}

type StatsRepository interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}
