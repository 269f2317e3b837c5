package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash   = "Cash"
	PaymentCard   = "Card"
	PaymentMobile = "Mobile"
)

// NormalizePaymentMethod trims the label and falls back to cash when it is blank.
func NormalizePaymentMethod(method string) string {
	method = strings.TrimSpace(method)
	if method == "" {
		return PaymentCash
	}
	return method
}

// Sale is immutable once committed. Total never includes tax.
type Sale struct {
	SaleID        int64           `json:"sale_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaleItem copies the product name and price at the moment of sale so the
// record survives later renames, repricing or deletion of the product.
type SaleItem struct {
	SaleItemID  int64           `json:"sale_item_id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   *int64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SaleSummary struct {
	Sale
	ItemCount int `json:"item_count"`
}

type DashboardStats struct {
	TotalProducts   int             `json:"total_products"`
	TotalCategories int             `json:"total_categories"`
	LowStockCount   int             `json:"low_stock_count"`
	TodaySalesCount int             `json:"today_sales_count"`
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}
