package handlers

import (
	"register-service/internal/models"
	"register-service/internal/money"
	"time"
)

// Responses render money as strings with exactly two decimals.

type productResponse struct {
	ProductID         int64     `json:"id"`
	Name              string    `json:"name"`
	Barcode           *string   `json:"barcode"`
	CategoryID        *int64    `json:"category_id"`
	CategoryName      *string   `json:"category_name"`
	Price             string    `json:"price"`
	CostPrice         string    `json:"cost_price"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	LowStock          bool      `json:"low_stock"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toProductResponse(p models.Product) productResponse {
	return productResponse{
		ProductID:         p.ProductID,
		Name:              p.Name,
		Barcode:           p.Barcode,
		CategoryID:        p.CategoryID,
		CategoryName:      p.CategoryName,
		Price:             money.Format(p.Price),
		CostPrice:         money.Format(p.CostPrice),
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		LowStock:          p.IsLowStock(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toProductResponses(products []models.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type cartLineResponse struct {
	Index     int    `json:"index"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Items     []cartLineResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Tax       string             `json:"tax"`
	Total     string             `json:"total"`
}

func toCartResponse(lines []models.CartLine, totals models.CartTotals) cartResponse {
	items := make([]cartLineResponse, 0, len(lines))
	for i, l := range lines {
		items = append(items, cartLineResponse{
			Index:     i,
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money.Format(l.UnitPrice),
			Quantity:  l.Quantity,
			Subtotal:  money.Format(l.Subtotal),
		})
	}

	return cartResponse{
		Items:     items,
		ItemCount: totals.ItemCount,
		Subtotal:  money.Format(totals.Subtotal),
		Tax:       money.Format(totals.Tax),
		Total:     money.Format(totals.Total),
	}
}

type saleSummaryResponse struct {
	SaleID        int64     `json:"id"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type saleItemResponse struct {
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

// saleResponse shows the stored pre-tax total next to the tax computed for
// display and the amount actually paid.
type saleResponse struct {
	SaleID        int64              `json:"id"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     time.Time          `json:"created_at"`
	Items         []saleItemResponse `json:"items"`
	Subtotal      string             `json:"subtotal"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
}

func toSaleResponse(sale *models.Sale, items []models.SaleItem) saleResponse {
	out := saleResponse{
		SaleID:        sale.SaleID,
		PaymentMethod: sale.PaymentMethod,
		CreatedAt:     sale.CreatedAt,
		Items:         make([]saleItemResponse, 0, len(items)),
		Subtotal:      money.Format(sale.Total),
		Tax:           money.Format(money.Tax(sale.Total)),
		Total:         money.Format(money.WithTax(sale.Total)),
	}

	for _, item := range items {
		out.Items = append(out.Items, saleItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money.Format(item.UnitPrice),
			Subtotal:    money.Format(item.Subtotal),
		})
	}

	return out
}

type supplierProductResponse struct {
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	Barcode     *string `json:"barcode"`
	Price       string  `json:"price"`
	SupplyPrice string  `json:"supply_price"`
}

type dashboardResponse struct {
	TotalProducts   int    `json:"total_products"`
	TotalCategories int    `json:"total_categories"`
	LowStockCount   int    `json:"low_stock_count"`
	TodaySalesCount int    `json:"today_sales_count"`
	TodayRevenue    string `json:"today_revenue"`
	TotalRevenue    string `json:"total_revenue"`
}
