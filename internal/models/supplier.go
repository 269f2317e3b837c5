package models

import "github.com/shopspring/decimal"

type Supplier struct {
	SupplierID int64  `json:"supplier_id"`
	Name       string `json:"name" validate:"required,min=2,max=150"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"omitempty,max=255"`
}

type SupplierChanges struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2,max=150"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

type SupplierProduct struct {
	ProductID   int64           `json:"product_id"`
	Name        string          `json:"name"`
	Barcode     *string         `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	SupplyPrice decimal.Decimal `json:"supply_price"`
}
