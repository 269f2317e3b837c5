// Package sales commits sales. A commit re-reads every product under a row
// lock, validates all lines, then writes the sale, its items and the stock
// decrements in one transaction.
package sales

import (
	"context"
	"errors"
	"fmt"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/repository"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Invalidator drops cached copies of products whose stock just changed.
type Invalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int64)
}

type Engine struct {
	sales       repository.SaleRepository
	invalidator Invalidator
	now         func() time.Time
}

type Option func(*Engine)

func WithInvalidator(inv Invalidator) Option {
	return func(e *Engine) {
		e.invalidator = inv
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(sales repository.SaleRepository, opts ...Option) *Engine {
	e := &Engine{
		sales: sales,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CommitSale validates the requested lines against the locked product rows
// and persists the sale. Prices and stock supplied by callers are never
// used; nothing is written unless every line validates.
func (e *Engine) CommitSale(ctx context.Context, items []LineRequest, paymentMethod string) (int64, error) {
	if len(items) == 0 {
		return 0, ErrEmptyCart
	}

	demand := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			return 0, fmt.Errorf("%w: product ID must be positive", repository.ErrInvalidInput)
		}
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("%w: quantity must be positive", repository.ErrInvalidInput)
		}
		if _, seen := demand[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		demand[item.ProductID] += item.Quantity
	}
	slices.Sort(ids)

	sale := models.Sale{
		PaymentMethod: models.NormalizePaymentMethod(paymentMethod),
		CreatedAt:     e.now().UTC(),
	}

	err := e.sales.WithinTx(ctx, func(tx repository.SaleTx) error {
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		lines, total, err := priceLines(items, demand, products)
		if err != nil {
			return err
		}
		sale.Total = total

		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}

		if err := tx.InsertItems(ctx, sale.SaleID, lines); err != nil {
			return err
		}

		for _, id := range ids {
			err := tx.DecrementStock(ctx, id, demand[id], sale.SaleID)
			if errors.Is(err, repository.ErrNotEnough) {
				p := products[id]
				return &StockError{ProductID: id, Name: p.Name, Requested: demand[id], Available: p.Stock}
			}
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if e.invalidator != nil {
		e.invalidator.InvalidateProducts(ctx, ids...)
	}

	return sale.SaleID, nil
}

// priceLines checks every line in request order before building the sale
// items. Demand is summed per product so repeated lines cannot oversell.
func priceLines(items []LineRequest, demand map[int64]int, products map[int64]models.Product) ([]models.SaleItem, decimal.Decimal, error) {
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: product %d not found", ErrUnknownProduct, item.ProductID)
		}
		if demand[item.ProductID] > p.Stock {
			return nil, decimal.Zero, &StockError{
				ProductID: p.ProductID,
				Name:      p.Name,
				Requested: demand[item.ProductID],
				Available: p.Stock,
			}
		}
	}

	lines := make([]models.SaleItem, 0, len(items))
	subtotals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		p := products[item.ProductID]
		productID := p.ProductID
		price := money.Round(p.Price)
		subtotal := money.LineSubtotal(price, item.Quantity)

		lines = append(lines, models.SaleItem{
			ProductID:   &productID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			Subtotal:    subtotal,
		})
		subtotals = append(subtotals, subtotal)
	}

	return lines, money.Sum(subtotals...), nil
}

func (e *Engine) GetSale(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error) {
	return e.sales.GetSaleWithItems(ctx, id)
}

// ListRecentSales returns sale summaries, newest first.
func (e *Engine) ListRecentSales(ctx context.Context, limit int) ([]models.SaleSummary, error) {
	return e.sales.GetRecent(ctx, limit)
}
