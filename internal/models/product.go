package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 10

type Product struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	Barcode           *string         `json:"barcode"`
	CategoryID        *int64          `json:"category_id"`
	CategoryName      *string         `json:"category_name"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	Stock             int             `json:"stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether stock has reached the replenishment threshold.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// ProductChanges is a partial update. Nil fields are left untouched.
// An empty Barcode or a zero CategoryID clears the stored value.
type ProductChanges struct {
	Name              *string          `json:"name,omitempty"`
	Barcode           *string          `json:"barcode,omitempty"`
	CategoryID        *int64           `json:"category_id,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	CostPrice         *decimal.Decimal `json:"cost_price,omitempty"`
	Stock             *int             `json:"stock,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty"`
}

type Category struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

type ProductFilter struct {
	Keyword    string
	CategoryID int64
}

const (
	MovementSale       = "sale"
	MovementAdjustment = "adjustment"
)

type StockMovement struct {
	MovementID   int64     `json:"movement_id"`
	ProductID    int64     `json:"product_id"`
	SaleID       *int64    `json:"sale_id"`
	MovementType string    `json:"movement_type"`
	ChangeQuant  int       `json:"change_quant"`
	CreatedAt    time.Time `json:"created_at"`
}
